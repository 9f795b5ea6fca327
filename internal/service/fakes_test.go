package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/reelprompt/reelprompt/internal/cache"
	"github.com/reelprompt/reelprompt/internal/enhancer"
	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// memStore is an in-memory stand-in for the repository. Debits follow the
// same conditional rule as the SQL: subtract only when the balance covers it.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	bonuses   map[string]*model.EmailBonus
	prompts   map[string]*model.Prompt
	purchases map[string]map[string]*model.Purchase
	ledger    map[string][]*model.LedgerEntry

	bonusErr   error
	listCalls  int
	createHook func()
	debitHook  func()
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*model.User{},
		bonuses:   map[string]*model.EmailBonus{},
		prompts:   map[string]*model.Prompt{},
		purchases: map[string]map[string]*model.Purchase{},
		ledger:    map[string][]*model.LedgerEntry{},
	}
}

func (m *memStore) appendLedger(userID string, kind model.LedgerKind, amount, after model.Credits) {
	m.ledger[userID] = append(m.ledger[userID], &model.LedgerEntry{
		UserID: userID, Kind: kind, Amount: amount, BalanceAfter: after, CreatedAt: time.Now(),
	})
}

func (m *memStore) GetUser(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateUser(_ context.Context, user *model.User) error {
	if m.createHook != nil {
		m.createHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; ok {
		return repository.ErrUserExists
	}
	cp := *user
	m.users[user.ID] = &cp
	if user.Credits > 0 {
		m.appendLedger(user.ID, model.LedgerSignupBonus, user.Credits, user.Credits)
	}
	return nil
}

func (m *memStore) ApplySignupBonus(_ context.Context, id string, bonus model.Credits) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, false, repository.ErrUserNotFound
	}
	if u.SignupBonusApplied {
		cp := *u
		return &cp, false, nil
	}
	prev := u.Credits
	u.Credits = model.MaxCredits(u.Credits, bonus)
	u.SignupBonusApplied = true
	m.appendLedger(id, model.LedgerSignupBonus, u.Credits-prev, u.Credits)
	cp := *u
	return &cp, true, nil
}

func (m *memStore) RaiseCreditsFloor(_ context.Context, id string, floor model.Credits) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, false, repository.ErrUserNotFound
	}
	if u.Credits >= floor {
		cp := *u
		return &cp, false, nil
	}
	m.appendLedger(id, model.LedgerAdminFloor, floor-u.Credits, floor)
	u.Credits = floor
	u.SignupBonusApplied = true
	u.IsAdmin = true
	cp := *u
	return &cp, true, nil
}

func (m *memStore) ListLedger(_ context.Context, userID string, _ int) ([]*model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.LedgerEntry(nil), m.ledger[userID]...), nil
}

func (m *memStore) GetEmailBonus(_ context.Context, key string) (*model.EmailBonus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bonusErr != nil {
		return nil, m.bonusErr
	}
	b, ok := m.bonuses[key]
	if !ok {
		return nil, repository.ErrEmailBonusNotFound
	}
	return b, nil
}

func (m *memStore) UpsertEmailBonus(_ context.Context, bonus *model.EmailBonus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bonuses[bonus.EmailKey] = bonus
	return nil
}

func (m *memStore) DeleteEmailBonus(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bonuses[key]; !ok {
		return repository.ErrEmailBonusNotFound
	}
	delete(m.bonuses, key)
	return nil
}

func (m *memStore) ListEmailBonuses(_ context.Context) ([]*model.EmailBonus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.EmailBonus
	for _, b := range m.bonuses {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmailKey < out[j].EmailKey })
	return out, nil
}

func (m *memStore) ListPrompts(_ context.Context) ([]*model.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []*model.Prompt
	for _, p := range m.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetPrompt(_ context.Context, id string) (*model.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[id]
	if !ok {
		return nil, repository.ErrPromptNotFound
	}
	return p, nil
}

func (m *memStore) UpsertPrompt(_ context.Context, p *model.Prompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Price <= 0 {
		p.Price = model.PromptPrice
	}
	m.prompts[p.ID] = p
	return nil
}

func (m *memStore) HasPurchase(_ context.Context, userID, promptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.purchases[userID][promptID]
	return ok, nil
}

func (m *memStore) PurchasePrompt(_ context.Context, userID string, prompt *model.Prompt) (*model.Purchase, model.Credits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, 0, repository.ErrUserNotFound
	}
	if _, owned := m.purchases[userID][prompt.ID]; owned {
		return nil, 0, repository.ErrAlreadyOwned
	}
	if u.Credits < prompt.Price {
		return nil, 0, repository.ErrInsufficientCredits
	}
	u.Credits -= prompt.Price
	p := &model.Purchase{ID: "pur-" + prompt.ID, UserID: userID, PromptID: prompt.ID, PricePaid: prompt.Price, GrantedAt: time.Now(), PromptTitle: prompt.Title}
	if m.purchases[userID] == nil {
		m.purchases[userID] = map[string]*model.Purchase{}
	}
	m.purchases[userID][prompt.ID] = p
	m.appendLedger(userID, model.LedgerPurchase, -prompt.Price, u.Credits)
	return p, u.Credits, nil
}

func (m *memStore) ListPurchases(_ context.Context, userID string) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.purchases[userID] {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) DebitCredits(_ context.Context, userID string, amount model.Credits, kind model.LedgerKind, reference string) (model.Credits, error) {
	if m.debitHook != nil {
		m.debitHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	if u.Credits < amount {
		return 0, repository.ErrInsufficientCredits
	}
	u.Credits -= amount
	m.appendLedger(userID, kind, -amount, u.Credits)
	entries := m.ledger[userID]
	entries[len(entries)-1].Reference = reference
	return u.Credits, nil
}

func (m *memStore) GrantCredits(_ context.Context, userID string, amount model.Credits, kind model.LedgerKind, _ string) (model.Credits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	u.Credits += amount
	m.appendLedger(userID, kind, amount, u.Credits)
	return u.Credits, nil
}

func (m *memStore) setCredits(userID string, c model.Credits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].Credits = c
}

// memCache implements CatalogCache.
type memCache struct {
	mu      sync.Mutex
	prompts []*model.Prompt
	getErr  error
}

func (c *memCache) GetCatalog(context.Context) ([]*model.Prompt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	if c.prompts == nil {
		return nil, cache.ErrCacheMiss
	}
	return c.prompts, nil
}

func (c *memCache) SetCatalog(_ context.Context, prompts []*model.Prompt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = prompts
	return nil
}

func (c *memCache) InvalidateCatalog(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = nil
	return nil
}

// fakeLocker implements Locker.
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[name] {
		return nil, nil
	}
	l.held[name] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, name)
		l.released++
		return nil
	}, nil
}

// fakeLimiter implements RateLimiter.
type fakeLimiter struct {
	allow      bool
	retryAfter time.Duration
	err        error
}

func (f fakeLimiter) CheckEnhanceRateLimit(context.Context, string, int, int) (*cache.RateLimitResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cache.RateLimitResult{Allowed: f.allow, RetryAfter: f.retryAfter}, nil
}

// recordingPublisher implements events.Publisher.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BalanceEvent
}

func (r *recordingPublisher) Publish(_ context.Context, evt events.BalanceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingPublisher) last() (events.BalanceEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return events.BalanceEvent{}, false
	}
	return r.events[len(r.events)-1], true
}

// fakeSigner implements URLSigner with readable links.
type fakeSigner struct{}

func (fakeSigner) DownloadURL(userID, promptID string) string {
	return "https://dl.test/" + promptID + "?uid=" + userID + "&sig=ok"
}

func (fakeSigner) Verify(_ string, q url.Values) (string, error) {
	if q.Get("sig") != "ok" {
		return "", errors.New("bad sig")
	}
	return q.Get("uid"), nil
}

// stubGenerator implements enhancer.Generator.
type stubGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, req enhancer.Request) (*enhancer.PromptSpec, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return enhancer.TemplateGenerator{}.Generate(ctx, req)
}
