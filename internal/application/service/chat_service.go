package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/application/stream"
	"github.com/nimbusworks/nimbus/internal/config"
	"github.com/nimbusworks/nimbus/internal/domain/agent"
	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
	"github.com/nimbusworks/nimbus/internal/domain/service"
	"github.com/nimbusworks/nimbus/internal/infrastructure/monitoring"
)

const (
	defaultMaxTokens = 4096
	titleMaxLen      = 80
)

// EnvelopeSink receives normalized envelopes in order. Returning an error
// stops the stream; the transport uses this to signal a disconnected client.
type EnvelopeSink func(stream.Envelope) error

// ChatService owns sessions, messages, and the streaming turn loop.
type ChatService struct {
	cfg        config.AgentConfig
	sessions   repository.SessionRepository
	assistants repository.AssistantRepository
	usage      repository.UsageRepository
	catalog    *CatalogService
	quota      *QuotaService
	runner     agent.Runner
	publisher  service.UsagePublisher
	metrics    *monitoring.Metrics
	log        logger.Logger
}

func NewChatService(
	cfg config.AgentConfig,
	sessions repository.SessionRepository,
	assistants repository.AssistantRepository,
	usage repository.UsageRepository,
	catalog *CatalogService,
	quota *QuotaService,
	runner agent.Runner,
	publisher service.UsagePublisher,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *ChatService {
	return &ChatService{
		cfg:        cfg,
		sessions:   sessions,
		assistants: assistants,
		usage:      usage,
		catalog:    catalog,
		quota:      quota,
		runner:     runner,
		publisher:  publisher,
		metrics:    metrics,
		log:        log.WithComponent("chat"),
	}
}

// CreateSession opens a chat session for the user.
func (s *ChatService) CreateSession(ctx context.Context, userID string, req *dto.CreateSessionRequest) (*models.Session, error) {
	if req.ModelID != "" {
		if _, err := s.catalog.ResolveEnabledModel(ctx, req.ModelID); err != nil {
			return nil, err
		}
	}
	if req.AssistantID != "" {
		assistant, err := s.assistants.Get(ctx, req.AssistantID)
		if err != nil {
			return nil, err
		}
		if assistant.OwnerID != userID && !assistant.Shared {
			return nil, apperrors.ErrNotFound("assistant", req.AssistantID)
		}
	}

	session := &models.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		AssistantID: req.AssistantID,
		ModelID:     req.ModelID,
		Title:       req.Title,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns the session when the caller owns it. Other users' IDs
// are indistinguishable from nonexistent ones.
func (s *ChatService) GetSession(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperrors.ErrNotFound("session", sessionID)
	}
	return session, nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID string, limit, offset int) ([]*models.Session, int64, error) {
	return s.sessions.ListSessions(ctx, userID, limit, offset)
}

func (s *ChatService) RenameSession(ctx context.Context, userID, sessionID, title string) (*models.Session, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if err := s.sessions.TouchSession(ctx, sessionID, title); err != nil {
		return nil, err
	}
	return s.sessions.GetSession(ctx, sessionID)
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.sessions.DeleteSession(ctx, sessionID)
}

func (s *ChatService) ListMessages(ctx context.Context, userID, sessionID string) ([]*models.Message, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListMessages(ctx, sessionID)
}

// StreamMessage runs one chat turn: quota check, model invocation, envelope
// delivery through sink, then persistence and usage accounting.
//
// Failures before the first envelope return an error for the transport to
// map to a status code. Once streaming has started, failures surface as
// error envelopes instead, and StreamMessage returns nil.
func (s *ChatService) StreamMessage(ctx context.Context, userID, sessionID string, req *dto.SendMessageRequest, sink EnvelopeSink) error {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = session.ModelID
	}
	if modelID == "" {
		return apperrors.ErrInvalidRequest("no model selected for this session")
	}

	if err := s.quota.CheckQuota(ctx, userID); err != nil {
		if apperrors.IsCode(err, apperrors.CodeQuotaExceeded) {
			s.metrics.RecordQuotaDenial(modelID)
		}
		return err
	}

	model, err := s.catalog.ResolveEnabledModel(ctx, modelID)
	if err != nil {
		return err
	}

	agentReq, err := s.buildRequest(ctx, session, model.ID, req.Content)
	if err != nil {
		return err
	}

	// The user turn is persisted before streaming so it survives an
	// upstream failure mid-response.
	userMessage := &models.Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      models.MessageRoleUser,
		Content:   req.Content,
	}
	if err := s.sessions.CreateMessage(ctx, userMessage); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	raw, err := s.runner.Run(ctx, agentReq)
	if err != nil {
		return err
	}

	outcome := s.deliver(ctx, cancel, stream.Reshape(ctx, raw), sink)

	switch outcome.terminal {
	case stream.TypeComplete:
		s.metrics.RecordMessageStreamed(model.ID, "complete")
		s.persistTurn(ctx, session, model, userMessage, outcome)
	case stream.TypeError:
		s.metrics.RecordMessageStreamed(model.ID, "error")
		s.log.Warn(ctx, "stream ended without completion",
			logger.String("session_id", session.ID),
			logger.String("terminal", outcome.terminal),
		)
	default:
		// Client went away mid-stream.
		s.metrics.RecordMessageStreamed(model.ID, "interrupted")
		s.log.Warn(ctx, "stream ended without completion",
			logger.String("session_id", session.ID),
		)
	}
	return nil
}

// turnOutcome accumulates what the envelope stream reported.
type turnOutcome struct {
	terminal     string
	text         strings.Builder
	inputTokens  int
	outputTokens int
}

// deliver forwards envelopes to sink while accumulating the assistant text
// and token counts. A sink failure cancels the upstream invocation.
func (s *ChatService) deliver(ctx context.Context, cancel context.CancelFunc, envelopes <-chan stream.Envelope, sink EnvelopeSink) *turnOutcome {
	outcome := &turnOutcome{}
	for env := range envelopes {
		switch env.Type {
		case stream.TypeDelta:
			if text, ok := env.Data["text"].(string); ok {
				outcome.text.WriteString(text)
			}
		case stream.TypeUsage:
			if in, ok := env.Data["input_tokens"].(int); ok {
				outcome.inputTokens += in
			}
			if out, ok := env.Data["output_tokens"].(int); ok {
				outcome.outputTokens += out
			}
		case stream.TypeComplete, stream.TypeError:
			outcome.terminal = env.Type
		}

		if err := sink(env); err != nil {
			s.log.Debug(ctx, "client disconnected mid-stream")
			cancel()
			// Drain so the reshaper goroutine can finish.
			for range envelopes {
			}
			outcome.terminal = ""
			break
		}
	}
	return outcome
}

// persistTurn stores the assistant message, records the usage event, and
// mirrors it to the analytics broker.
func (s *ChatService) persistTurn(ctx context.Context, session *models.Session, model *models.ManagedModel, userMessage *models.Message, outcome *turnOutcome) {
	assistantMessage := &models.Message{
		ID:           uuid.NewString(),
		SessionID:    session.ID,
		Role:         models.MessageRoleAssistant,
		Content:      outcome.text.String(),
		ModelID:      model.ID,
		InputTokens:  outcome.inputTokens,
		OutputTokens: outcome.outputTokens,
	}
	if err := s.sessions.CreateMessage(ctx, assistantMessage); err != nil {
		s.log.Error(ctx, "failed to persist assistant message", err,
			logger.String("session_id", session.ID))
		return
	}

	title := ""
	if session.Title == "" {
		title = deriveTitle(userMessage.Content)
	}
	if err := s.sessions.TouchSession(ctx, session.ID, title); err != nil {
		s.log.Error(ctx, "failed to touch session", err,
			logger.String("session_id", session.ID))
	}

	event := &models.UsageEvent{
		ID:           uuid.NewString(),
		UserID:       session.UserID,
		SessionID:    session.ID,
		MessageID:    assistantMessage.ID,
		ModelID:      model.ID,
		InputTokens:  outcome.inputTokens,
		OutputTokens: outcome.outputTokens,
		CostUSD:      model.Cost(outcome.inputTokens, outcome.outputTokens),
	}
	if err := s.usage.Record(ctx, event); err != nil {
		s.log.Error(ctx, "failed to record usage event", err,
			logger.String("session_id", session.ID))
		return
	}
	s.metrics.RecordUsageCost(model.ID, event.CostUSD)
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The database row is authoritative; broker failures only degrade
		// analytics.
		s.log.Warn(ctx, "failed to mirror usage event to broker",
			logger.String("event_id", event.ID))
	}
}

// buildRequest assembles the model invocation from session history and the
// assistant's instructions.
func (s *ChatService) buildRequest(ctx context.Context, session *models.Session, modelID, content string) (*agent.Request, error) {
	history, err := s.sessions.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	var system string
	if session.AssistantID != "" {
		assistant, err := s.assistants.Get(ctx, session.AssistantID)
		if err != nil {
			return nil, err
		}
		system = assistant.Instructions
	}

	turns := make([]agent.TurnMessage, 0, len(history)+1)
	for _, message := range history {
		turns = append(turns, agent.TurnMessage{Role: message.Role, Content: message.Content})
	}
	turns = append(turns, agent.TurnMessage{Role: models.MessageRoleUser, Content: content})

	maxTokens := s.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &agent.Request{
		Model:     modelID,
		System:    system,
		Messages:  turns,
		MaxTokens: maxTokens,
	}, nil
}

// deriveTitle makes a session title from the first user message. Truncation
// counts runes so a multi-byte character is never split.
func deriveTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if runes := []rune(title); len(runes) > titleMaxLen {
		title = strings.TrimSpace(string(runes[:titleMaxLen]))
	}
	return title
}
