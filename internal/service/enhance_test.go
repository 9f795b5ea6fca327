package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reelprompt/reelprompt/internal/enhancer"
	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/model"
)

func newEnhanceEnv(t *testing.T, balance model.Credits, limiter RateLimiter) (*EnhanceService, *memStore, *stubGenerator, *recordingPublisher) {
	t.Helper()
	store := newMemStore()
	store.users["uid-1"] = &model.User{ID: "uid-1", Credits: balance, SignupBonusApplied: true}
	gen := &stubGenerator{}
	pub := &recordingPublisher{}
	limits := EnhanceLimits{RatePerMinute: 10, Burst: 5}
	return NewEnhanceService(store, gen, limiter, limits, pub, discardLogger, nil), store, gen, pub
}

func TestEnhanceService_Enhance(t *testing.T) {
	t.Parallel()

	svc, store, gen, pub := newEnhanceEnv(t, model.WholeCredits(20), fakeLimiter{allow: true})
	ctx := context.Background()

	res, err := svc.Enhance(ctx, "uid-1", EnhanceInput{Prompt: "moody portrait in the city"})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if res.Credits != model.CreditsFromFloat(19.8) {
		t.Errorf("credits = %s, want 19.8", res.Credits)
	}
	if !strings.HasPrefix(res.EnhancedPrompt, "<prompt>") {
		t.Errorf("EnhancedPrompt = %q, want XML", res.EnhancedPrompt)
	}

	fromXML, err := enhancer.ParseXML(res.EnhancedPrompt)
	if err != nil {
		t.Fatalf("ParseXML() error = %v", err)
	}
	fromJSON, err := enhancer.ParseJSON(res.JSONOutput)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if fromXML.Subject != fromJSON.Subject || fromXML.Camera != fromJSON.Camera {
		t.Errorf("renderings disagree: %+v vs %+v", fromXML, fromJSON)
	}

	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	if evt, ok := pub.last(); !ok || evt.Reason != events.ReasonEnhancement {
		t.Errorf("published = %+v", evt)
	}
	if n := len(store.ledger["uid-1"]); n != 1 {
		t.Errorf("ledger entries = %d, want 1", n)
	}
}

func TestEnhanceService_Validation(t *testing.T) {
	t.Parallel()

	svc, _, gen, _ := newEnhanceEnv(t, model.WholeCredits(20), nil)

	tests := []struct {
		name  string
		input EnhanceInput
		want  error
	}{
		{"empty", EnhanceInput{Prompt: "   "}, ErrEmptyPrompt},
		{"too long", EnhanceInput{Prompt: strings.Repeat("é", MaxPromptLength+1)}, ErrPromptTooLong},
		{"refine without previous", EnhanceInput{Prompt: "warmer", IsRefine: true}, ErrRefineRequiresPrevious},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Enhance(context.Background(), "uid-1", tt.input); !errors.Is(err, tt.want) {
				t.Errorf("Enhance() error = %v, want %v", err, tt.want)
			}
		})
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for invalid input", gen.calls)
	}
}

func TestEnhanceService_MaxLengthAccepted(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newEnhanceEnv(t, model.WholeCredits(1), nil)
	if _, err := svc.Enhance(context.Background(), "uid-1", EnhanceInput{Prompt: strings.Repeat("é", MaxPromptLength)}); err != nil {
		t.Errorf("Enhance() at max length error = %v", err)
	}
}

func TestEnhanceService_InsufficientSkipsGeneration(t *testing.T) {
	t.Parallel()

	svc, store, gen, pub := newEnhanceEnv(t, model.CreditsFromFloat(0.19), nil)

	if _, err := svc.Enhance(context.Background(), "uid-1", EnhanceInput{Prompt: "beach"}); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("Enhance() error = %v, want ErrInsufficientCredits", err)
	}
	if gen.calls != 0 {
		t.Errorf("generator calls = %d, want 0", gen.calls)
	}
	u, _ := store.GetUser(context.Background(), "uid-1")
	if u.Credits != model.CreditsFromFloat(0.19) {
		t.Errorf("balance = %s, want 0.19", u.Credits)
	}
	if _, ok := pub.last(); ok {
		t.Error("nothing should be published")
	}
}

func TestEnhanceService_GenerationFailureDoesNotDebit(t *testing.T) {
	t.Parallel()

	svc, store, gen, _ := newEnhanceEnv(t, model.WholeCredits(20), nil)
	gen.err = errors.New("model unavailable")

	if _, err := svc.Enhance(context.Background(), "uid-1", EnhanceInput{Prompt: "beach"}); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Enhance() error = %v, want ErrGenerationFailed", err)
	}
	u, _ := store.GetUser(context.Background(), "uid-1")
	if u.Credits != model.WholeCredits(20) {
		t.Errorf("balance = %s, want 20", u.Credits)
	}
}

func TestEnhanceService_BalanceDrainedDuringGeneration(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newEnhanceEnv(t, model.WholeCredits(20), nil)
	store.debitHook = func() { store.setCredits("uid-1", model.CreditsFromFloat(0.1)) }

	res, err := svc.Enhance(context.Background(), "uid-1", EnhanceInput{Prompt: "beach"})
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("Enhance() = %+v, %v; want ErrInsufficientCredits", res, err)
	}
	u, _ := store.GetUser(context.Background(), "uid-1")
	if u.Credits != model.CreditsFromFloat(0.1) {
		t.Errorf("balance = %s, want 0.1", u.Credits)
	}
}

func TestEnhanceService_RateLimit(t *testing.T) {
	t.Parallel()

	t.Run("denied", func(t *testing.T) {
		svc, _, gen, _ := newEnhanceEnv(t, model.WholeCredits(20), fakeLimiter{allow: false, retryAfter: 6 * time.Second})
		_, err := svc.Enhance(context.Background(), "uid-1", EnhanceInput{Prompt: "beach"})
		if !errors.Is(err, ErrRateLimited) {
			t.Errorf("Enhance() error = %v, want ErrRateLimited", err)
		}
		var limited *RateLimitedError
		if !errors.As(err, &limited) || limited.RetryAfter != 6*time.Second {
			t.Errorf("Enhance() error = %#v, want RetryAfter 6s", err)
		}
		if gen.calls != 0 {
			t.Errorf("generator calls = %d, want 0", gen.calls)
		}
	})

	t.Run("limiter error fails open and is logged", func(t *testing.T) {
		store := newMemStore()
		store.users["uid-1"] = &model.User{ID: "uid-1", Credits: model.WholeCredits(20), SignupBonusApplied: true}
		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, nil))
		svc := NewEnhanceService(store, &stubGenerator{}, fakeLimiter{err: errors.New("redis down")},
			EnhanceLimits{RatePerMinute: 10, Burst: 5}, nil, logger, nil)

		if _, err := svc.Enhance(context.Background(), "uid-1", EnhanceInput{Prompt: "beach"}); err != nil {
			t.Errorf("Enhance() error = %v", err)
		}
		if !strings.Contains(logs.String(), "rate_limit_check_failed") || !strings.Contains(logs.String(), "redis down") {
			t.Errorf("limiter failure not logged: %s", logs.String())
		}
	})
}

func TestEnhanceService_RecordsRequestIDOnDebit(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newEnhanceEnv(t, model.WholeCredits(20), nil)
	if _, err := svc.Enhance(context.Background(), "uid-1", EnhanceInput{Prompt: "beach", RequestID: "req-42"}); err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}

	entries := store.ledger["uid-1"]
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].Kind != model.LedgerEnhancement || entries[0].Reference != "req-42" {
		t.Errorf("ledger entry = %+v, want enhancement referencing req-42", entries[0])
	}
}

func TestEnhanceService_Refine(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newEnhanceEnv(t, model.WholeCredits(20), nil)
	ctx := context.Background()

	first, err := svc.Enhance(ctx, "uid-1", EnhanceInput{Prompt: "woman on a beach"})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	refined, err := svc.Enhance(ctx, "uid-1", EnhanceInput{Prompt: "make it moody", PreviousPrompt: first.EnhancedPrompt, IsRefine: true})
	if err != nil {
		t.Fatalf("refine error = %v", err)
	}
	if refined.Credits != model.CreditsFromFloat(19.6) {
		t.Errorf("credits = %s, want 19.6", refined.Credits)
	}

	spec, err := enhancer.ParseXML(refined.EnhancedPrompt)
	if err != nil {
		t.Fatalf("ParseXML() error = %v", err)
	}
	if !strings.Contains(spec.Subject, "woman on a beach") {
		t.Errorf("refined subject %q lost the original", spec.Subject)
	}
}

func TestEnhanceService_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newEnhanceEnv(t, model.CreditsFromFloat(1), nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Enhance(context.Background(), "uid-1", EnhanceInput{Prompt: "beach"}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 5 {
		t.Errorf("successes = %d, want 5", successes)
	}
	u, _ := store.GetUser(context.Background(), "uid-1")
	if u.Credits != 0 {
		t.Errorf("balance = %s, want 0", u.Credits)
	}
}
