package client

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/reelprompt/reelprompt/internal/handler/dto"
)

func TestStreamCredits_ReturnsOnCancel(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /api/user/credits/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: credits\ndata: {\"credits\":20,\"reason\":\"initialize\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan CreditsEvent, 1)
	done := make(chan error, 1)
	go func() {
		done <- newTestClient(srv).StreamCredits(ctx, func(evt CreditsEvent) { got <- evt })
	}()

	select {
	case evt := <-got:
		if evt.Reason != "initialize" || evt.Credits.String() != "20" {
			t.Errorf("unexpected event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("StreamCredits() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("StreamCredits did not return after cancel")
	}
}

func TestStreamCredits_Unauthenticated(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /api/user/credits/stream", respond(http.StatusUnauthorized, dto.ErrorResponse{Error: "Authentication required", Code: "UNAUTHORIZED"}))

	err := newTestClient(srv).StreamCredits(context.Background(), func(CreditsEvent) {
		t.Error("callback should not run")
	})
	if !IsUnauthenticated(err) {
		t.Errorf("expected unauthenticated error, got %v", err)
	}
}
