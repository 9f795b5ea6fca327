package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/reelprompt/reelprompt/internal/handler/dto"
	"github.com/reelprompt/reelprompt/internal/model"
)

// DefaultRetryDelay is how long a failed first initialize waits before its
// single retry.
const DefaultRetryDelay = 1500 * time.Millisecond

// ErrSessionClosed is returned by calls made after Close.
var ErrSessionClosed = errors.New("session closed")

// Session initializes one signed-in user's account exactly once and keeps
// the shared BalanceStore current after every balance-changing call.
type Session struct {
	client     *Client
	balance    *BalanceStore
	retryDelay time.Duration
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	initialized bool
	inFlight    bool
	retry       *time.Timer
	wg          sync.WaitGroup
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRetryDelay overrides DefaultRetryDelay.
func WithRetryDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.retryDelay = d }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates a Session. balance may be shared with other views.
func NewSession(c *Client, balance *BalanceStore, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		client:     c,
		balance:    balance,
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "client_session")
	return s
}

// Start initializes the account. If the attempt fails, one retry is
// scheduled after the retry delay and the first error is returned.
// Calls after a successful initialize, or while one is running, are no-ops.
func (s *Session) Start(ctx context.Context) error {
	err := s.tryInitialize(ctx)
	if err == nil || errors.Is(err, ErrSessionClosed) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retry != nil || s.ctx.Err() != nil {
		return err
	}
	s.wg.Add(1)
	s.retry = time.AfterFunc(s.retryDelay, func() {
		defer s.wg.Done()
		if rerr := s.tryInitialize(s.ctx); rerr != nil && !errors.Is(rerr, ErrSessionClosed) {
			s.logger.Warn("initialize_retry_failed", "error", rerr)
		}
	})
	return err
}

// Initialized reports whether the account has been initialized.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Close cancels a pending retry and waits for a running one to finish.
func (s *Session) Close() {
	s.cancel()

	s.mu.Lock()
	if s.retry != nil && s.retry.Stop() {
		s.wg.Done()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Session) tryInitialize(ctx context.Context) error {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.initialized || s.inFlight {
		s.mu.Unlock()
		return nil
	}
	s.inFlight = true
	s.mu.Unlock()

	profile, err := s.client.Initialize(ctx)

	s.mu.Lock()
	s.inFlight = false
	if err == nil {
		s.initialized = true
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.balance.Set(profile.Credits)
	return nil
}

// Purchase buys promptID and refreshes the balance.
func (s *Session) Purchase(ctx context.Context, promptID string) (*dto.PurchaseResponse, error) {
	res, err := s.client.Purchase(ctx, promptID)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, res.Credits)
	return res, nil
}

// Enhance generates a prompt and refreshes the balance. A fresh profile
// showing less than EnhancementCost fails fast with a 402 APIError; if the
// profile cannot be read the server makes the decision.
func (s *Session) Enhance(ctx context.Context, req dto.EnhanceRequest) (*dto.EnhanceResponse, error) {
	profile, err := s.client.Profile(ctx)
	switch {
	case err != nil:
		s.logger.Warn("enhance_precheck_failed", "error", err)
	case profile.Credits < model.EnhancementCost:
		s.balance.Set(profile.Credits)
		return nil, &APIError{
			Status:  http.StatusPaymentRequired,
			Code:    "INSUFFICIENT_CREDITS",
			Message: "Insufficient credits",
		}
	}

	res, err := s.client.Enhance(ctx, req)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, res.Credits)
	return res, nil
}

// refresh re-reads the profile, falling back to the balance the mutating
// call reported if the profile cannot be read.
func (s *Session) refresh(ctx context.Context, reported model.Credits) {
	profile, err := s.client.Profile(ctx)
	if err != nil {
		s.logger.Warn("profile_refresh_failed", "error", err)
		s.balance.Set(reported)
		return
	}
	s.balance.Set(profile.Credits)
}

// Watch follows the server's credit stream into the BalanceStore until ctx
// ends or the stream closes.
func (s *Session) Watch(ctx context.Context) error {
	return s.client.StreamCredits(ctx, func(evt CreditsEvent) {
		s.balance.Set(evt.Credits)
	})
}
