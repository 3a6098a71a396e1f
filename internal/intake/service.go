package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dentalchat/intake-agent/internal/observability/metrics"
	"github.com/dentalchat/intake-agent/pkg/logging"
)

// Service describes how the intake conversation engine behaves.
type Service interface {
	StartConversation(ctx context.Context) (*Response, error)
	ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error)
	Summary(ctx context.Context, sessionID string) (*SessionSummary, error)
}

// MessageRequest is a single patient turn.
type MessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Response is the DTO returned to the API layer for every turn.
type Response struct {
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionSummary reports the state of one conversation.
type SessionSummary struct {
	SessionID     string        `json:"session_id"`
	CreatedAt     time.Time     `json:"created_at"`
	Completed     bool          `json:"completed"`
	TurnCount     int           `json:"turn_count"`
	Record        PatientRecord `json:"patient_info"`
	MissingFields []string      `json:"missing_fields"`
}

// Session errors surfaced to the API layer. Both carry a user-facing message
// in the accompanying Response; neither mutates session state.
var (
	ErrSessionNotFound = errors.New("intake: session not found")
	ErrSessionFinished = errors.New("intake: session already finished")
)

const (
	sessionExpiredMessage  = "I'm sorry, but your session has expired. Please start a new conversation."
	sessionFinishedMessage = "This conversation is already finished. Please start a new conversation if there's anything else you need."
	apologyMessage         = "I apologize, but I'm having trouble processing your message. Could you please try rephrasing your concern?"
)

// recentTurnWindow bounds how much history feeds the conversational model.
const recentTurnWindow = 6

// IntakeService is the production conversation engine: it owns the turn
// lifecycle around the registry, extractor, completion policy, and the
// downstream post collaborator.
type IntakeService struct {
	registry  *Registry
	extractor *Extractor
	questions *QuestionGenerator
	chat      LLMClient
	posts     PostClient
	turns     *TurnStore    // optional transcript persistence
	archive   *ArchiveStore // optional completed-intake archive
	metrics   *metrics.IntakeMetrics
	logger    *logging.Logger
	maxTurns  int
}

// ServiceOption configures optional IntakeService collaborators.
type ServiceOption func(*IntakeService)

// WithTurnStore enables Redis transcript persistence.
func WithTurnStore(store *TurnStore) ServiceOption {
	return func(s *IntakeService) { s.turns = store }
}

// WithArchive enables the Postgres completed-intake archive.
func WithArchive(store *ArchiveStore) ServiceOption {
	return func(s *IntakeService) { s.archive = store }
}

// WithMaxTurns overrides the follow-up cap.
func WithMaxTurns(n int) ServiceOption {
	return func(s *IntakeService) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// NewService wires the intake conversation engine.
func NewService(
	registry *Registry,
	extractor *Extractor,
	questions *QuestionGenerator,
	chat LLMClient,
	posts PostClient,
	m *metrics.IntakeMetrics,
	logger *logging.Logger,
	opts ...ServiceOption,
) *IntakeService {
	if registry == nil {
		panic("intake: registry cannot be nil")
	}
	if extractor == nil {
		panic("intake: extractor cannot be nil")
	}
	if posts == nil {
		panic("intake: post client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &IntakeService{
		registry:  registry,
		extractor: extractor,
		questions: questions,
		chat:      chat,
		posts:     posts,
		metrics:   m,
		logger:    logger,
		maxTurns:  10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Service = (*IntakeService)(nil)

// StartConversation opens a new session and returns the welcome message.
func (s *IntakeService) StartConversation(ctx context.Context) (*Response, error) {
	session := s.registry.Create()
	session.AddTurn(TurnRoleAssistant, welcomeMessage, nil)
	s.metrics.ConversationStarted()
	s.persistTurns(ctx, session)

	return &Response{
		SessionID: session.ID,
		Message:   welcomeMessage,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ProcessMessage runs one full turn: session lookup (with self-healing
// re-indexing), extraction and merge, completion policy, and either post
// creation or a follow-up question. Session errors return a user-facing
// Response alongside the sentinel error; nothing mutates state on those paths.
func (s *IntakeService) ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error) {
	message := SanitizeInput(req.Message)
	now := time.Now().UTC()

	session, ok := s.registry.Lookup(req.SessionID)
	if !ok {
		s.logger.Warn("message for unknown session", "session_id", req.SessionID)
		return &Response{SessionID: req.SessionID, Message: sessionExpiredMessage, Timestamp: now}, ErrSessionNotFound
	}

	session.Lock()
	defer session.Unlock()

	if session.Completed {
		return &Response{
			SessionID: session.ID,
			Message:   sessionFinishedMessage,
			Completed: true,
			Timestamp: now,
		}, ErrSessionFinished
	}

	started := time.Now()
	resp := s.processTurn(ctx, session, message)
	s.metrics.ObserveTurnLatency(time.Since(started).Seconds())
	s.persistTurns(ctx, session)
	return resp, nil
}

// processTurn contains the turn body. Unexpected failures are caught here:
// the record and completion flag are rolled back, the apology reply is
// recorded, and the conversation stays usable.
func (s *IntakeService) processTurn(ctx context.Context, session *ConversationSession, message string) (resp *Response) {
	recordBefore := session.Record.Clone()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while processing turn", "session_id", session.ID, "panic", r)
			session.Record = recordBefore
			session.AddTurn(TurnRoleAssistant, apologyMessage, nil)
			resp = &Response{
				SessionID: session.ID,
				Message:   apologyMessage,
				Timestamp: time.Now().UTC(),
			}
		}
	}()

	session.AddTurn(TurnRoleUser, message, nil)

	merged := s.extractor.ExtractAndMerge(ctx, session.Record, message)
	session.Record = merged
	if len(session.Turns) > 0 {
		snapshot := merged.Clone()
		session.Turns[len(session.Turns)-1].Extracted = &snapshot
	}

	s.logger.Debug("merged extraction",
		"session_id", session.ID,
		"complete", session.Record.IsComplete(),
		"missing", strings.Join(session.Record.MissingFields(), ", "),
	)

	var reply string
	completed := false
	if ShouldComplete(&session.Record, message) {
		reply = s.finishConversation(ctx, session)
		session.Completed = true
		completed = true
		s.registry.MarkInactive(session.ID)
		s.metrics.ConversationCompleted()
		s.logger.Info("conversation completed", "session_id", session.ID)
	} else {
		reply = s.followUpReply(ctx, session)
	}

	session.AddTurn(TurnRoleAssistant, reply, nil)

	return &Response{
		SessionID: session.ID,
		Message:   reply,
		Completed: completed,
		Timestamp: time.Now().UTC(),
	}
}

// followUpReply asks the conversational model for the next reply, appending
// a deterministic question when the model forgot to ask one, and falling all
// the way back to the fixed question table when the model fails.
func (s *IntakeService) followUpReply(ctx context.Context, session *ConversationSession) string {
	if session.UserTurnCount() >= s.maxTurns {
		return s.missingFieldsNudge(&session.Record)
	}

	if s.chat == nil {
		return s.questions.FollowUp(ctx, &session.Record, session.ConversationText())
	}

	resp, err := s.chat.Complete(ctx, LLMRequest{
		System:      []string{systemPrompt},
		Messages:    session.RecentMessages(recentTurnWindow),
		Temperature: 0.7,
		MaxTokens:   512,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil {
			s.logger.Warn("chat model failed, using question generator", "error", err)
		}
		return s.questions.FollowUp(ctx, &session.Record, session.ConversationText())
	}

	reply := strings.TrimSpace(resp.Text)
	if !containsQuestion(reply) {
		reply += "\n\n" + s.questions.FollowUp(ctx, &session.Record, session.ConversationText())
	}
	return reply
}

// missingFieldsNudge is the reply after the follow-up cap: restate what is
// still needed instead of burning more model turns.
func (s *IntakeService) missingFieldsNudge(record *PatientRecord) string {
	missing := record.MissingFields()
	return fmt.Sprintf(
		"I want to make sure we get you help quickly. I still need: %s.\n\n%s",
		strings.Join(missing, ", "),
		defaultQuestion(missing[0]),
	)
}

// finishConversation submits the post and builds the closing message. Post
// failures restate the collected fields so no data appears lost, and invite
// a retry; they never block the completion transition.
func (s *IntakeService) finishConversation(ctx context.Context, session *ConversationSession) string {
	record := session.Record.Clone()

	result, err := s.posts.CreatePatientPost(ctx, record)
	if err != nil {
		s.metrics.PostCreated("error")
		s.logger.Error("post creation failed", "session_id", session.ID, "error", err)

		if errors.Is(err, ErrIncompleteData) {
			return fmt.Sprintf(
				"I apologize, but I couldn't create your post yet: some required details are missing (%s).\n\nHere's what I have so far:\n%s\n\nCould you fill in the rest so I can try again?",
				strings.Join(record.MissingFields(), ", "),
				record.Summary(),
			)
		}

		return fmt.Sprintf(
			"I apologize, but I encountered an issue creating your post.\n\nDon't worry! I still have all your information:\n%s\n\nWould you like me to try creating the post again, or would you prefer to contact DentalChat support directly?",
			record.Summary(),
		)
	}

	s.metrics.PostCreated("success")
	s.archiveCompleted(ctx, session, result.PostID)

	priority := "Standard"
	if record.Emergency() {
		priority = "Emergency"
	}
	contact := record.Phone
	if contact == "" {
		contact = record.Email
	}

	var b strings.Builder
	b.WriteString("Perfect! I've created your dental post successfully. Here's what happens next:\n\n")
	b.WriteString("✅ Your post is now live and local dentists can see it\n")
	fmt.Fprintf(&b, "📍 Location: %s\n", record.Location)
	fmt.Fprintf(&b, "⚡ Priority: %s\n", priority)
	fmt.Fprintf(&b, "📞 Contact: %s\n", contact)

	if dentists, derr := s.posts.NearbyDentists(ctx, record.Location, record.Emergency()); derr == nil {
		fmt.Fprintf(&b, "🔍 %d dentists found in your area\n", len(dentists))
	} else {
		s.logger.Warn("nearby dentist lookup failed", "session_id", session.ID, "error", derr)
	}

	estimated := result.EstimatedResponseTime
	if estimated == "" {
		estimated = "1-2 hours"
	}
	b.WriteString("\n📧 What's Next:\n")
	b.WriteString("• You'll receive email notifications when dentists respond\n")
	fmt.Fprintf(&b, "• Typical response time: %s\n", estimated)
	b.WriteString("• Check your email and phone for updates\n\n")
	fmt.Fprintf(&b, "Post ID: %s\n\n", result.PostID)
	b.WriteString("Is there anything else I can help you with regarding your dental concern?")

	return b.String()
}

// Summary reports the current state of one session.
func (s *IntakeService) Summary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	session, ok := s.registry.Lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	session.Lock()
	defer session.Unlock()

	return &SessionSummary{
		SessionID:     session.ID,
		CreatedAt:     session.CreatedAt,
		Completed:     session.Completed,
		TurnCount:     len(session.Turns),
		Record:        session.Record.Clone(),
		MissingFields: session.Record.MissingFields(),
	}, nil
}

// Stats reports registry sizes for the debug endpoint.
func (s *IntakeService) Stats() (totalSessions, activeSessions int) {
	return s.registry.Counts()
}

func (s *IntakeService) persistTurns(ctx context.Context, session *ConversationSession) {
	if s.turns == nil {
		return
	}
	if err := s.turns.Save(ctx, session.ID, session.Turns); err != nil {
		s.logger.Warn("failed to persist transcript", "session_id", session.ID, "error", err)
	}
}

func (s *IntakeService) archiveCompleted(ctx context.Context, session *ConversationSession, postID string) {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveCompleted(ctx, session, postID); err != nil {
		s.logger.Warn("failed to archive completed intake", "session_id", session.ID, "error", err)
	}
}
