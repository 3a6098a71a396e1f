package intake

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dentalchat/intake-agent/pkg/logging"
)

// ---------- completion policy ----------

// completionSignals are phrases a patient uses to wrap up the conversation.
// Case-insensitive substring match.
var completionSignals = []string{
	"that's all", "thats all", "that's it", "thank you",
	"thanks", "nothing else", "no more questions",
	"all set", "ready to proceed", "create the post",
}

// containsCompletionSignal reports whether the user text signals they are done.
func containsCompletionSignal(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, signal := range completionSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}

// hasMinimumInfo is the deliberate minimum bar for early termination. It is
// currently identical to full completeness; keep it a separate predicate so
// the two policies can diverge without touching callers.
func hasMinimumInfo(record *PatientRecord) bool {
	return record.ProblemDescription != "" &&
		record.PatientName != "" &&
		(record.Phone != "" || record.Email != "") &&
		record.Location != ""
}

// ShouldComplete decides, after a merge, whether the conversation terminates:
// either the record is complete, or the user signaled completion and the
// minimum-viable subset holds.
func ShouldComplete(record *PatientRecord, latestUserText string) bool {
	if record.IsComplete() {
		return true
	}
	return containsCompletionSignal(latestUserText) && hasMinimumInfo(record)
}

// ---------- follow-up questions ----------

// interrogativeOpeners mark a reply as already containing a question even
// without a question mark.
var interrogativeOpeners = []string{
	"what", "when", "where", "who", "why", "how", "could you", "can you",
	"would you", "do you", "are you", "is there", "have you",
}

// containsQuestion reports whether the text already asks the patient something.
func containsQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, opener := range interrogativeOpeners {
		if strings.HasPrefix(lower, opener) {
			return true
		}
	}
	return false
}

// defaultQuestions maps each missing-field label to its deterministic
// follow-up, used when the model produces no question or fails outright.
var defaultQuestions = map[string]string{
	FieldProblemDescription: "Could you describe what's happening with your teeth or mouth?",
	FieldPatientName:        "What's your name so dentists can reach out to you?",
	FieldLocation:           "What's your ZIP code so I can find dentists in your area?",
	FieldContact:            "What's the best phone number or email address to reach you?",
}

const genericQuestion = "Could you provide more information about your dental concern?"

// defaultQuestion returns the canned question for a missing-field label.
func defaultQuestion(missingField string) string {
	if q, ok := defaultQuestions[missingField]; ok {
		return q
	}
	return genericQuestion
}

// QuestionGenerator produces the next follow-up question for an incomplete
// record, preferring model-generated phrasing with a deterministic fallback.
type QuestionGenerator struct {
	llm    LLMClient
	logger *logging.Logger
}

// NewQuestionGenerator creates a follow-up question generator.
func NewQuestionGenerator(llm LLMClient, logger *logging.Logger) *QuestionGenerator {
	if logger == nil {
		logger = logging.Default()
	}
	return &QuestionGenerator{llm: llm, logger: logger}
}

// FollowUp asks the model for one empathetic question targeting the missing
// fields. On any model failure it falls straight through to the fixed
// question for the highest-priority missing field.
func (g *QuestionGenerator) FollowUp(ctx context.Context, record *PatientRecord, conversationText string) string {
	missing := record.MissingFields()
	if len(missing) == 0 {
		return "I have all the information I need. Let me create your post now."
	}

	if g.llm != nil {
		prompt := buildQuestionPrompt(missing, conversationText)
		resp, err := g.llm.Complete(ctx, LLMRequest{
			Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
			Temperature: 0.7,
			MaxTokens:   256,
		})
		if err == nil && strings.TrimSpace(resp.Text) != "" {
			return strings.TrimSpace(resp.Text)
		}
		if err != nil {
			g.logger.Warn("follow-up question generation failed, using default", "error", err)
		}
	}

	return defaultQuestion(missing[0])
}

func buildQuestionPrompt(missing []string, conversationText string) string {
	return fmt.Sprintf(`Based on the conversation history and missing information, generate ONE natural,
empathetic follow-up question to gather the next most important piece of information.

Missing information: %s

Current conversation context:
%s

Guidelines:
- Ask for the most critical missing information first
- Be empathetic and professional
- Keep questions simple and clear
- If asking about pain, acknowledge their discomfort
- Only ask ONE question at a time

Generate just the question, no other text:`,
		strings.Join(missing, ", "),
		tailOf(conversationText, 300),
	)
}

// tailOf returns the last n bytes of s, advanced to a rune boundary.
func tailOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
