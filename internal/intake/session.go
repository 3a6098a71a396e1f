package intake

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// ConversationTurn is one immutable exchange entry. Turns are append-only;
// the optional Extracted snapshot records what the merge produced after a
// user turn.
type ConversationTurn struct {
	Timestamp time.Time      `json:"timestamp"`
	Role      string         `json:"role"`
	Message   string         `json:"message"`
	Extracted *PatientRecord `json:"extracted,omitempty"`
}

// ConversationSession owns one patient intake conversation: the turn history,
// the accumulating record, and the monotonic completion flag. The registry is
// the sole owner of sessions; the per-session mutex serializes turn
// processing on a concurrent runtime.
type ConversationSession struct {
	ID        string
	CreatedAt time.Time
	Turns     []ConversationTurn
	Record    PatientRecord
	Completed bool

	// lastActivity holds unix nanos so the registry sweeper can read it
	// without taking the turn lock. Taking the turn lock there would invert
	// the session-then-registry lock order that completion uses.
	lastActivity atomic.Int64

	mu sync.Mutex
}

func newConversationSession(id string) *ConversationSession {
	now := time.Now().UTC()
	s := &ConversationSession{
		ID:        id,
		CreatedAt: now,
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// Lock serializes turn processing for this session. Callers hold the lock
// across the whole process-message step.
func (s *ConversationSession) Lock() { s.mu.Lock() }

// Unlock releases the turn-processing lock.
func (s *ConversationSession) Unlock() { s.mu.Unlock() }

// AddTurn appends a turn and bumps the activity timestamp.
func (s *ConversationSession) AddTurn(role, message string, extracted *PatientRecord) {
	now := time.Now().UTC()
	s.Turns = append(s.Turns, ConversationTurn{
		Timestamp: now,
		Role:      role,
		Message:   message,
		Extracted: extracted,
	})
	s.lastActivity.Store(now.UnixNano())
}

// LastActivity reports when the session was created or last appended a turn.
// Safe to call without holding the turn lock.
func (s *ConversationSession) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load()).UTC()
}

func (s *ConversationSession) setLastActivity(t time.Time) {
	s.lastActivity.Store(t.UTC().UnixNano())
}

// UserTurnCount counts patient messages, used for the max-turns guard.
func (s *ConversationSession) UserTurnCount() int {
	count := 0
	for _, turn := range s.Turns {
		if turn.Role == TurnRoleUser {
			count++
		}
	}
	return count
}

// ConversationText renders the full transcript as "Role: message" lines for
// prompt context.
func (s *ConversationSession) ConversationText() string {
	var b strings.Builder
	for _, turn := range s.Turns {
		b.WriteString(titleRole(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Message)
		b.WriteString("\n")
	}
	return b.String()
}

// RecentMessages returns the last n turns as chat messages for the
// conversational model.
func (s *ConversationSession) RecentMessages(n int) []ChatMessage {
	start := 0
	if len(s.Turns) > n {
		start = len(s.Turns) - n
	}
	messages := make([]ChatMessage, 0, len(s.Turns)-start)
	for _, turn := range s.Turns[start:] {
		role := ChatRoleUser
		if turn.Role == TurnRoleAssistant {
			role = ChatRoleAssistant
		}
		messages = append(messages, ChatMessage{Role: role, Content: turn.Message})
	}
	return messages
}

func titleRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
