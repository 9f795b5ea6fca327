package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/reelprompt/reelprompt/internal/auth"
	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/service"
)

// DefaultKeepAlive is the interval between SSE comment pings.
const DefaultKeepAlive = 25 * time.Second

// BalanceSubscriber hands out per-user balance event streams.
type BalanceSubscriber interface {
	Subscribe(userID string) (<-chan events.BalanceEvent, func())
}

// ProfileReader reads the caller's current balance.
type ProfileReader interface {
	Reconcile(ctx context.Context, id *model.Identity) (*service.Profile, error)
}

// StreamHandler pushes balance changes to the browser as server-sent events.
type StreamHandler struct {
	bus       BalanceSubscriber
	profiles  ProfileReader
	keepAlive time.Duration
	logger    *slog.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(bus BalanceSubscriber, profiles ProfileReader, keepAlive time.Duration, logger *slog.Logger) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &StreamHandler{
		bus:       bus,
		profiles:  profiles,
		keepAlive: keepAlive,
		logger:    logger,
	}
}

// Credits handles GET /api/user/credits/stream. The first event carries the
// current balance; later events follow every change until the client leaves.
func (h *StreamHandler) Credits(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeUnauthenticated(w)
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	// Subscribe before reading the balance so no change slips in between.
	ch, cancel := h.bus.Subscribe(id.UID)
	defer cancel()

	profile, err := h.profiles.Reconcile(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeCreditsEvent(w, events.BalanceEvent{UserID: id.UID, Credits: profile.Credits, Reason: events.ReasonInitialize}); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Warn("sse_flush_unsupported", "error", err)
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := writeCreditsEvent(w, evt); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

type creditsEventData struct {
	Credits model.Credits `json:"credits"`
	Reason  string        `json:"reason"`
}

func writeCreditsEvent(w http.ResponseWriter, evt events.BalanceEvent) error {
	data, err := json.Marshal(creditsEventData{Credits: evt.Credits, Reason: evt.Reason})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: credits\ndata: %s\n\n", data)
	return err
}
