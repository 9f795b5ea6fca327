package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reelprompt/reelprompt/internal/handler/dto"
	"github.com/reelprompt/reelprompt/internal/model"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSession_InitializesOnce(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("POST /api/user/initialize", respond(http.StatusOK, dto.ProfileResponse{Credits: model.WholeCredits(20)}))

	store := NewBalanceStore()
	s := NewSession(newTestClient(srv), store, WithLogger(discardLogger))
	defer s.Close()

	for i := 0; i < 3; i++ {
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}

	if n := api.count("POST /api/user/initialize"); n != 1 {
		t.Errorf("initialize called %d times, want 1", n)
	}
	if got, _ := store.Get(); got != model.WholeCredits(20) {
		t.Errorf("balance = %s, want 20", got)
	}
	if !s.Initialized() {
		t.Error("expected session to be initialized")
	}
}

func TestSession_RetriesOnceAfterFailure(t *testing.T) {
	api, srv := newFakeAPI(t)
	var attempts atomic.Int32
	api.handle("POST /api/user/initialize", func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error", Code: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, http.StatusOK, dto.ProfileResponse{Credits: model.WholeCredits(20)})
	})

	store := NewBalanceStore()
	s := NewSession(newTestClient(srv), store, WithRetryDelay(10*time.Millisecond), WithLogger(discardLogger))
	defer s.Close()

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	waitFor(t, s.Initialized)

	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	if got, _ := store.Get(); got != model.WholeCredits(20) {
		t.Errorf("balance = %s, want 20", got)
	}
}

func TestSession_RetryIsScheduledOnlyOnce(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("POST /api/user/initialize", respond(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "down"}))

	s := NewSession(newTestClient(srv), NewBalanceStore(), WithRetryDelay(50*time.Millisecond), WithLogger(discardLogger))

	_ = s.Start(context.Background())
	_ = s.Start(context.Background())
	waitFor(t, func() bool { return api.count("POST /api/user/initialize") >= 3 })
	s.Close()

	// Two direct attempts plus the single scheduled retry.
	if n := api.count("POST /api/user/initialize"); n != 3 {
		t.Errorf("initialize called %d times, want 3", n)
	}
}

func TestSession_CloseCancelsPendingRetry(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("POST /api/user/initialize", respond(http.StatusInternalServerError, dto.ErrorResponse{Error: "boom"}))

	s := NewSession(newTestClient(srv), NewBalanceStore(), WithRetryDelay(time.Hour), WithLogger(discardLogger))
	_ = s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	if n := api.count("POST /api/user/initialize"); n != 1 {
		t.Errorf("initialize called %d times, want 1", n)
	}
	if err := s.Start(context.Background()); err != ErrSessionClosed {
		t.Errorf("Start after Close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_PurchaseRefreshesBalance(t *testing.T) {
	tests := []struct {
		name          string
		profileStatus int
		want          model.Credits
	}{
		{"uses profile", http.StatusOK, model.CreditsFromFloat(18.8)},
		{"falls back to reported", http.StatusInternalServerError, model.WholeCredits(19)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, srv := newFakeAPI(t)
			api.handle("POST /api/prompts/purchase", respond(http.StatusOK, dto.PurchaseResponse{Credits: model.WholeCredits(19)}))
			api.handle("GET /api/user/profile", func(w http.ResponseWriter, _ *http.Request) {
				if tt.profileStatus != http.StatusOK {
					writeJSON(w, tt.profileStatus, dto.ErrorResponse{Error: "Internal server error"})
					return
				}
				writeJSON(w, http.StatusOK, dto.ProfileResponse{Credits: model.CreditsFromFloat(18.8)})
			})

			store := NewBalanceStore()
			s := NewSession(newTestClient(srv), store, WithLogger(discardLogger))
			defer s.Close()

			if _, err := s.Purchase(context.Background(), "neon-city"); err != nil {
				t.Fatalf("Purchase() error = %v", err)
			}
			if got, _ := store.Get(); got != tt.want {
				t.Errorf("balance = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSession_EnhanceChecksFreshBalanceFirst(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /api/user/profile", respond(http.StatusOK, dto.ProfileResponse{Credits: model.CreditsFromFloat(0.1)}))
	api.handle("POST /api/enhance-prompt", respond(http.StatusOK, dto.EnhanceResponse{EnhancedPrompt: "<prompt/>"}))

	store := NewBalanceStore()
	store.Set(model.WholeCredits(20))
	s := NewSession(newTestClient(srv), store, WithLogger(discardLogger))
	defer s.Close()

	_, err := s.Enhance(context.Background(), dto.EnhanceRequest{Prompt: "a cat"})
	if !IsInsufficientCredits(err) {
		t.Fatalf("expected insufficient credits, got %v", err)
	}
	if n := api.count("POST /api/enhance-prompt"); n != 0 {
		t.Errorf("enhance called %d times with a short balance", n)
	}
	if got, _ := store.Get(); got != model.CreditsFromFloat(0.1) {
		t.Errorf("balance = %s, want 0.1", got)
	}
}

func TestSession_EnhanceInsufficientLeavesBalance(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /api/user/profile", respond(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "unavailable"}))
	api.handle("POST /api/enhance-prompt", respond(http.StatusPaymentRequired, dto.ErrorResponse{Error: "Insufficient credits", Code: "INSUFFICIENT_CREDITS"}))

	store := NewBalanceStore()
	store.Set(model.CreditsFromFloat(0.1))
	s := NewSession(newTestClient(srv), store, WithLogger(discardLogger))
	defer s.Close()

	_, err := s.Enhance(context.Background(), dto.EnhanceRequest{Prompt: "a cat"})
	if !IsInsufficientCredits(err) {
		t.Fatalf("expected insufficient credits, got %v", err)
	}
	if n := api.count("POST /api/enhance-prompt"); n != 1 {
		t.Errorf("enhance called %d times, want the server to decide once", n)
	}
	if got, _ := store.Get(); got != model.CreditsFromFloat(0.1) {
		t.Errorf("balance = %s, want 0.1", got)
	}
	if n := api.count("GET /api/user/profile"); n != 1 {
		t.Errorf("profile read %d times, want only the pre-check", n)
	}
}

func TestSession_WatchFollowsStream(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /api/user/credits/stream", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": connected\n\n")
		fmt.Fprint(w, "event: credits\ndata: {\"credits\":20,\"reason\":\"initialize\"}\n\n")
		fmt.Fprint(w, "event: credits\ndata: {\"credits\":19.8,\"reason\":\"enhancement\"}\n\n")
	})

	store := NewBalanceStore()
	var seen []model.Credits
	store.Subscribe(func(c model.Credits) { seen = append(seen, c) })

	s := NewSession(newTestClient(srv), store, WithLogger(discardLogger))
	defer s.Close()

	if err := s.Watch(context.Background()); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	want := []model.Credits{model.WholeCredits(20), model.CreditsFromFloat(19.8)}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}
