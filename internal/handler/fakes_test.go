package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/reelprompt/reelprompt/internal/auth"
	"github.com/reelprompt/reelprompt/internal/billing"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/service"
)

var errSecret = errors.New("pq: password authentication failed for user reelprompt")

var testIdentity = &model.Identity{UID: "uid-1", Email: "maker@example.com", DisplayName: "Maker"}

// newRequest builds a request, optionally authenticated as testIdentity.
func newRequest(method, target, body string, authed bool) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), testIdentity))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

type fakeAccounts struct {
	profile *service.Profile
	entries []*model.LedgerEntry
	err     error

	lastLimit int
}

func (f *fakeAccounts) Initialize(_ context.Context, _ *model.Identity) (*service.Profile, error) {
	return f.profile, f.err
}

func (f *fakeAccounts) Reconcile(_ context.Context, _ *model.Identity) (*service.Profile, error) {
	return f.profile, f.err
}

func (f *fakeAccounts) History(_ context.Context, _ string, limit int) ([]*model.LedgerEntry, error) {
	f.lastLimit = limit
	return f.entries, f.err
}

type fakePurchases struct {
	owned    bool
	result   *service.PurchaseResult
	link     string
	asset    string
	library  []*model.Purchase
	err      error
	promptID string
}

func (f *fakePurchases) CheckOwnership(_ context.Context, _, promptID string) (bool, error) {
	f.promptID = promptID
	return f.owned, f.err
}

func (f *fakePurchases) Purchase(_ context.Context, _, promptID string) (*service.PurchaseResult, error) {
	f.promptID = promptID
	return f.result, f.err
}

func (f *fakePurchases) DownloadLink(_ context.Context, _, promptID string) (string, error) {
	f.promptID = promptID
	return f.link, f.err
}

func (f *fakePurchases) ResolveDownload(_ context.Context, promptID string, _ url.Values) (string, error) {
	f.promptID = promptID
	return f.asset, f.err
}

func (f *fakePurchases) Library(_ context.Context, _ string) ([]*model.Purchase, error) {
	return f.library, f.err
}

type fakeEnhancer struct {
	result *service.EnhanceResult
	err    error
	input  service.EnhanceInput
}

func (f *fakeEnhancer) Enhance(_ context.Context, _ string, input service.EnhanceInput) (*service.EnhanceResult, error) {
	f.input = input
	return f.result, f.err
}

type fakeAdmin struct {
	mu      sync.Mutex
	bonuses map[string]*model.EmailBonus
	granted model.Credits
	err     error
}

func (f *fakeAdmin) SetEmailBonus(_ context.Context, email string, credits *model.Credits, note string) (*model.EmailBonus, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &model.EmailBonus{EmailKey: model.NormalizeEmailKey(email), Credits: credits, Note: note}
	f.bonuses[b.EmailKey] = b
	return b, nil
}

func (f *fakeAdmin) DeleteEmailBonus(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := model.NormalizeEmailKey(email)
	if _, ok := f.bonuses[key]; !ok {
		return service.ErrEmailBonusNotFound
	}
	delete(f.bonuses, key)
	return nil
}

func (f *fakeAdmin) ListEmailBonuses(_ context.Context) ([]*model.EmailBonus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.EmailBonus, 0, len(f.bonuses))
	for _, b := range f.bonuses {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeAdmin) GrantCredits(_ context.Context, _ string, amount model.Credits, _ string) (model.Credits, error) {
	if amount <= 0 {
		return 0, service.ErrInvalidAmount
	}
	f.granted += amount
	return f.granted, f.err
}

type fakeCatalog struct {
	prompts []*model.Prompt
	err     error
}

func (f *fakeCatalog) List(_ context.Context, _, _ string) ([]*model.Prompt, error) {
	return f.prompts, f.err
}

func (f *fakeCatalog) Get(_ context.Context, id string) (*model.Prompt, error) {
	for _, p := range f.prompts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, service.ErrPromptNotFound
}

func (f *fakeCatalog) Upsert(_ context.Context, p *model.Prompt) (*model.Prompt, error) {
	if p.ID == "" {
		p.ID = "generated-id"
	}
	f.prompts = append(f.prompts, p)
	return p, f.err
}

type fakeBilling struct {
	sig string
}

func (f *fakeBilling) Packs() []billing.CreditPack {
	return []billing.CreditPack{{Name: "starter", Credits: model.WholeCredits(10)}}
}

func (f *fakeBilling) Checkout(_ context.Context, _ *model.Identity, pack string) (string, error) {
	if pack != "starter" {
		return "", billing.ErrUnknownPack
	}
	return "https://checkout.stripe.com/c/pay/cs_test", nil
}

func (f *fakeBilling) HandleWebhook(_ context.Context, _ []byte, sigHeader string) error {
	if sigHeader != f.sig {
		return billing.ErrInvalidSignature
	}
	return nil
}
