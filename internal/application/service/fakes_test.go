package service

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/domain/agent"
	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/infrastructure/oidc"
)

// fakeStateStore is an in-memory state store with a switchable outage mode.
type fakeStateStore struct {
	mu      sync.Mutex
	records map[string]*models.PendingLogin
	failing bool
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{records: make(map[string]*models.PendingLogin)}
}

func (f *fakeStateStore) Store(_ context.Context, token string, login *models.PendingLogin, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return apperrors.ErrUnavailable("state store unavailable")
	}
	record := *login
	record.ExpiresAt = time.Now().Add(ttl)
	f.records[token] = &record
	return nil
}

func (f *fakeStateStore) Consume(_ context.Context, token string) (*models.PendingLogin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, apperrors.ErrUnavailable("state store unavailable")
	}
	login, ok := f.records[token]
	if !ok {
		return nil, nil
	}
	delete(f.records, token)
	if login.Expired(time.Now()) {
		return nil, nil
	}
	return login, nil
}

// fakeProvider scripts the IdP side of the login flow.
type fakeProvider struct {
	lastState    string
	exchangeErr  error
	userinfoErr  error
	userInfo     oidc.UserInfo
	exchangedFor string
}

func (f *fakeProvider) AuthorizeURL(state string) string {
	f.lastState = state
	return "https://idp.example.com/authorize?state=" + state
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code string) (*oidc.TokenResponse, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	f.exchangedFor = code
	return &oidc.TokenResponse{AccessToken: "idp-access-token"}, nil
}

func (f *fakeProvider) FetchUserInfo(_ context.Context, _ string) (*oidc.UserInfo, error) {
	if f.userinfoErr != nil {
		return nil, f.userinfoErr
	}
	info := f.userInfo
	return &info, nil
}

// fakeQuotaRepo is an in-memory QuotaRepository.
type fakeQuotaRepo struct {
	tiers       map[string]*models.QuotaTier
	assignments map[string]*models.QuotaAssignment
	overrides   map[string]*models.QuotaOverride
}

func newFakeQuotaRepo() *fakeQuotaRepo {
	return &fakeQuotaRepo{
		tiers:       make(map[string]*models.QuotaTier),
		assignments: make(map[string]*models.QuotaAssignment),
		overrides:   make(map[string]*models.QuotaOverride),
	}
}

func (f *fakeQuotaRepo) CreateTier(_ context.Context, tier *models.QuotaTier) error {
	f.tiers[tier.ID] = tier
	return nil
}

func (f *fakeQuotaRepo) GetTier(_ context.Context, id string) (*models.QuotaTier, error) {
	tier, ok := f.tiers[id]
	if !ok {
		return nil, apperrors.ErrNotFound("quota tier", id)
	}
	return tier, nil
}

func (f *fakeQuotaRepo) ListTiers(_ context.Context) ([]*models.QuotaTier, error) {
	out := make([]*models.QuotaTier, 0, len(f.tiers))
	for _, tier := range f.tiers {
		out = append(out, tier)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthlyUSD < out[j].MonthlyUSD })
	return out, nil
}

func (f *fakeQuotaRepo) UpdateTier(_ context.Context, tier *models.QuotaTier) error {
	if _, ok := f.tiers[tier.ID]; !ok {
		return apperrors.ErrNotFound("quota tier", tier.ID)
	}
	f.tiers[tier.ID] = tier
	return nil
}

func (f *fakeQuotaRepo) DeleteTier(_ context.Context, id string) error {
	if _, ok := f.tiers[id]; !ok {
		return apperrors.ErrNotFound("quota tier", id)
	}
	delete(f.tiers, id)
	return nil
}

func (f *fakeQuotaRepo) GetDefaultTier(_ context.Context) (*models.QuotaTier, error) {
	for _, tier := range f.tiers {
		if tier.Default {
			return tier, nil
		}
	}
	return nil, nil
}

func (f *fakeQuotaRepo) UpsertAssignment(_ context.Context, a *models.QuotaAssignment) error {
	f.assignments[a.UserID] = a
	return nil
}

func (f *fakeQuotaRepo) GetAssignment(_ context.Context, userID string) (*models.QuotaAssignment, error) {
	return f.assignments[userID], nil
}

func (f *fakeQuotaRepo) DeleteAssignment(_ context.Context, userID string) error {
	if _, ok := f.assignments[userID]; !ok {
		return apperrors.ErrNotFound("quota assignment", userID)
	}
	delete(f.assignments, userID)
	return nil
}

func (f *fakeQuotaRepo) UpsertOverride(_ context.Context, o *models.QuotaOverride) error {
	f.overrides[o.UserID] = o
	return nil
}

func (f *fakeQuotaRepo) GetOverride(_ context.Context, userID string) (*models.QuotaOverride, error) {
	return f.overrides[userID], nil
}

func (f *fakeQuotaRepo) DeleteOverride(_ context.Context, userID string) error {
	if _, ok := f.overrides[userID]; !ok {
		return apperrors.ErrNotFound("quota override", userID)
	}
	delete(f.overrides, userID)
	return nil
}

// fakeUsageRepo records events and serves summaries from memory.
type fakeUsageRepo struct {
	mu     sync.Mutex
	events []*models.UsageEvent
}

func (f *fakeUsageRepo) Record(_ context.Context, event *models.UsageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *event
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	f.events = append(f.events, &stored)
	return nil
}

func (f *fakeUsageRepo) Summarize(ctx context.Context, from, to time.Time) (*models.CostSummary, error) {
	return f.SummarizeUser(ctx, "", from, to)
}

func (f *fakeUsageRepo) SummarizeUser(_ context.Context, userID string, from, to time.Time) (*models.CostSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byModel := make(map[string]*models.ModelCostSlice)
	summary := &models.CostSummary{}
	for _, event := range f.events {
		if userID != "" && event.UserID != userID {
			continue
		}
		if event.CreatedAt.Before(from) || !event.CreatedAt.Before(to) {
			continue
		}
		slice, ok := byModel[event.ModelID]
		if !ok {
			slice = &models.ModelCostSlice{ModelID: event.ModelID}
			byModel[event.ModelID] = slice
		}
		slice.TotalUSD += event.CostUSD
		slice.InputTokens += int64(event.InputTokens)
		slice.OutputTokens += int64(event.OutputTokens)
		slice.Events++
		summary.TotalUSD += event.CostUSD
		summary.InputTokens += int64(event.InputTokens)
		summary.OutputTokens += int64(event.OutputTokens)
		summary.Events++
	}
	for _, slice := range byModel {
		summary.ByModel = append(summary.ByModel, *slice)
	}
	sort.Slice(summary.ByModel, func(i, j int) bool {
		return summary.ByModel[i].TotalUSD > summary.ByModel[j].TotalUSD
	})
	return summary, nil
}

func (f *fakeUsageRepo) UserCostSince(_ context.Context, userID string, since time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, event := range f.events {
		if event.UserID == userID && !event.CreatedAt.Before(since) {
			total += event.CostUSD
		}
	}
	return total, nil
}

// fakeSessionRepo is an in-memory SessionRepository.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	messages map[string][]*models.Message
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]*models.Session),
		messages: make(map[string][]*models.Message),
	}
}

func (f *fakeSessionRepo) CreateSession(_ context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *session
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.sessions[session.ID] = &stored
	return nil
}

func (f *fakeSessionRepo) GetSession(_ context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound("session", id)
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionRepo) ListSessions(_ context.Context, userID string, limit, offset int) ([]*models.Session, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.Session
	for _, session := range f.sessions {
		if session.UserID == userID {
			all = append(all, session)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeSessionRepo) TouchSession(_ context.Context, id string, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return apperrors.ErrNotFound("session", id)
	}
	if title != "" {
		session.Title = title
	}
	session.UpdatedAt = time.Now()
	return nil
}

func (f *fakeSessionRepo) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return apperrors.ErrNotFound("session", id)
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	return nil
}

func (f *fakeSessionRepo) CreateMessage(_ context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *message
	stored.CreatedAt = time.Now()
	f.messages[message.SessionID] = append(f.messages[message.SessionID], &stored)
	return nil
}

func (f *fakeSessionRepo) ListMessages(_ context.Context, sessionID string) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Message(nil), f.messages[sessionID]...), nil
}

// fakeModelRepo is an in-memory ModelRepository.
type fakeModelRepo struct {
	mu     sync.Mutex
	models map[string]*models.ManagedModel
	lists  int
}

func newFakeModelRepo() *fakeModelRepo {
	return &fakeModelRepo{models: make(map[string]*models.ManagedModel)}
}

func (f *fakeModelRepo) Create(_ context.Context, model *models.ManagedModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.models[model.ID]; ok {
		return apperrors.ErrConflict("a model with that id already exists")
	}
	f.models[model.ID] = model
	return nil
}

func (f *fakeModelRepo) Get(_ context.Context, id string) (*models.ManagedModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	model, ok := f.models[id]
	if !ok {
		return nil, apperrors.ErrNotFound("model", id)
	}
	return model, nil
}

func (f *fakeModelRepo) List(_ context.Context, enabledOnly bool) ([]*models.ManagedModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	var out []*models.ManagedModel
	for _, model := range f.models {
		if enabledOnly && !model.Enabled {
			continue
		}
		out = append(out, model)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (f *fakeModelRepo) Update(_ context.Context, model *models.ManagedModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.models[model.ID]; !ok {
		return apperrors.ErrNotFound("model", model.ID)
	}
	f.models[model.ID] = model
	return nil
}

func (f *fakeModelRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.models[id]; !ok {
		return apperrors.ErrNotFound("model", id)
	}
	delete(f.models, id)
	return nil
}

// fakeAssistantRepo is an in-memory AssistantRepository.
type fakeAssistantRepo struct {
	assistants map[string]*models.Assistant
}

func newFakeAssistantRepo() *fakeAssistantRepo {
	return &fakeAssistantRepo{assistants: make(map[string]*models.Assistant)}
}

func (f *fakeAssistantRepo) Create(_ context.Context, assistant *models.Assistant) error {
	f.assistants[assistant.ID] = assistant
	return nil
}

func (f *fakeAssistantRepo) Get(_ context.Context, id string) (*models.Assistant, error) {
	assistant, ok := f.assistants[id]
	if !ok {
		return nil, apperrors.ErrNotFound("assistant", id)
	}
	return assistant, nil
}

func (f *fakeAssistantRepo) ListForUser(_ context.Context, userID string) ([]*models.Assistant, error) {
	var out []*models.Assistant
	for _, assistant := range f.assistants {
		if assistant.OwnerID == userID || assistant.Shared {
			out = append(out, assistant)
		}
	}
	return out, nil
}

func (f *fakeAssistantRepo) Update(_ context.Context, assistant *models.Assistant) error {
	existing, ok := f.assistants[assistant.ID]
	if !ok {
		return apperrors.ErrNotFound("assistant", assistant.ID)
	}
	assistant.OwnerID = existing.OwnerID
	f.assistants[assistant.ID] = assistant
	return nil
}

func (f *fakeAssistantRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.assistants[id]; !ok {
		return apperrors.ErrNotFound("assistant", id)
	}
	delete(f.assistants, id)
	return nil
}

// fakeRunner plays back a scripted raw event sequence.
type fakeRunner struct {
	script  []agent.Event
	lastReq *agent.Request
	runErr  error
}

func (f *fakeRunner) Run(ctx context.Context, req *agent.Request) (<-chan agent.Event, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	f.lastReq = req
	out := make(chan agent.Event)
	go func() {
		defer close(out)
		for _, ev := range f.script {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// fakePublisher collects mirrored usage events.
type fakePublisher struct {
	mu     sync.Mutex
	events []*models.UsageEvent
}

func (f *fakePublisher) Publish(_ context.Context, event *models.UsageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }
