package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionAddTurnAndCounts(t *testing.T) {
	s := newConversationSession("abc")
	before := s.LastActivity()

	s.AddTurn(TurnRoleAssistant, "Welcome!", nil)
	s.AddTurn(TurnRoleUser, "my tooth hurts", nil)
	s.AddTurn(TurnRoleAssistant, "How bad is the pain?", nil)
	s.AddTurn(TurnRoleUser, "pretty bad", nil)

	assert.Len(t, s.Turns, 4)
	assert.Equal(t, 2, s.UserTurnCount())
	assert.False(t, s.LastActivity().Before(before))
}

func TestConversationText(t *testing.T) {
	s := newConversationSession("abc")
	s.AddTurn(TurnRoleAssistant, "Welcome!", nil)
	s.AddTurn(TurnRoleUser, "hi there", nil)

	assert.Equal(t, "Assistant: Welcome!\nUser: hi there\n", s.ConversationText())
}

func TestRecentMessages(t *testing.T) {
	s := newConversationSession("abc")
	for i := 0; i < 5; i++ {
		s.AddTurn(TurnRoleUser, "u", nil)
		s.AddTurn(TurnRoleAssistant, "a", nil)
	}

	msgs := s.RecentMessages(4)
	assert.Len(t, msgs, 4)
	assert.Equal(t, ChatRoleUser, msgs[0].Role)
	assert.Equal(t, ChatRoleAssistant, msgs[3].Role)

	all := s.RecentMessages(100)
	assert.Len(t, all, 10)
}
