package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLLM returns a fixed response, or an error, for every request.
type stubLLM struct {
	resp  string
	err   error
	calls int
	last  LLMRequest
}

func (s *stubLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.resp}, nil
}

func newTestExtractor(llm LLMClient) *Extractor {
	return NewExtractor(llm, nil, DefaultPainEmergencyThreshold, nil)
}

func TestExtractAndMergeFillsEmptyFields(t *testing.T) {
	llm := &stubLLM{resp: `{
		"problem_description": "cracked molar hurting badly",
		"pain_level": 6,
		"patient_name": "John Smith",
		"location": "75201",
		"symptoms": ["sharp pain", "sensitivity"]
	}`}
	e := newTestExtractor(llm)

	got := e.ExtractAndMerge(context.Background(), PatientRecord{}, "my molar cracked")

	assert.Equal(t, "cracked molar hurting badly", got.ProblemDescription)
	assert.Equal(t, 6, got.PainLevel)
	assert.Equal(t, "John Smith", got.PatientName)
	assert.Equal(t, "75201", got.Location)
	assert.Equal(t, []string{"sharp pain", "sensitivity"}, got.Symptoms)
	require.NotNil(t, got.EmergencyStatus)
	assert.False(t, *got.EmergencyStatus)
}

func TestExtractAndMergeNeverRegresses(t *testing.T) {
	llm := &stubLLM{resp: `{
		"problem_description": "something else entirely",
		"pain_level": 3,
		"patient_name": "Different Person",
		"phone": "9998887777"
	}`}
	e := newTestExtractor(llm)

	current := completeRecord()
	current.PainLevel = 8

	got := e.ExtractAndMerge(context.Background(), current, "more details")

	assert.Equal(t, current.ProblemDescription, got.ProblemDescription)
	assert.Equal(t, 8, got.PainLevel)
	assert.Equal(t, "John Smith", got.PatientName)
	assert.Equal(t, "(555) 123-4567", got.Phone)
}

func TestExtractAndMergeSymptomsAccrete(t *testing.T) {
	llm := &stubLLM{resp: `{"symptoms": ["swelling", "Sharp Pain"]}`}
	e := newTestExtractor(llm)

	current := PatientRecord{Symptoms: []string{"sharp pain"}}
	got := e.ExtractAndMerge(context.Background(), current, "it's swollen now")

	assert.Equal(t, []string{"sharp pain", "swelling"}, got.Symptoms)
}

func TestExtractAndMergeTransportErrorKeepsRecord(t *testing.T) {
	failures := 0
	llm := &stubLLM{err: errors.New("model unavailable")}
	e := NewExtractor(llm, nil, DefaultPainEmergencyThreshold, func() { failures++ })

	current := completeRecord()
	got := e.ExtractAndMerge(context.Background(), current, "hello")

	assert.True(t, got.Equal(current))
	assert.Equal(t, 1, failures)
}

func TestExtractAndMergeUnparseableStillEnhances(t *testing.T) {
	failures := 0
	llm := &stubLLM{resp: "I could not produce JSON, sorry!"}
	e := NewExtractor(llm, nil, DefaultPainEmergencyThreshold, func() { failures++ })

	got := e.ExtractAndMerge(context.Background(), PatientRecord{}, "the pain is 9 out of 10")

	assert.Equal(t, 9, got.PainLevel)
	require.NotNil(t, got.EmergencyStatus)
	assert.True(t, *got.EmergencyStatus)
	assert.Equal(t, 1, failures)
}

func TestExtractAndMergeOutOfRangePainRejectsDelta(t *testing.T) {
	llm := &stubLLM{resp: `{"pain_level": 50, "patient_name": "John Smith"}`}
	e := newTestExtractor(llm)

	current := PatientRecord{ProblemDescription: "ongoing toothache for a week"}
	got := e.ExtractAndMerge(context.Background(), current, "it really hurts")

	// The whole delta is rejected, name included, and no enhancement runs.
	assert.True(t, got.Equal(current))
}

func TestExtractAndMergeEmergencyKeyword(t *testing.T) {
	llm := &stubLLM{resp: `{}`}
	e := newTestExtractor(llm)

	got := e.ExtractAndMerge(context.Background(), PatientRecord{}, "my face is swollen and it's spreading")

	require.NotNil(t, got.EmergencyStatus)
	assert.True(t, *got.EmergencyStatus)
}

func TestExtractAndMergeEmergencyFlagSticksOnceSet(t *testing.T) {
	llm := &stubLLM{resp: `{}`}
	e := newTestExtractor(llm)

	no := false
	current := PatientRecord{EmergencyStatus: &no}
	got := e.ExtractAndMerge(context.Background(), current, "this is an emergency now")

	// Heuristics only fire while the flag is unset.
	require.NotNil(t, got.EmergencyStatus)
	assert.False(t, *got.EmergencyStatus)
}

func TestExtractAndMergeContactBlock(t *testing.T) {
	llm := &stubLLM{resp: `{}`}
	e := newTestExtractor(llm)

	got := e.ExtractAndMerge(context.Background(), PatientRecord{}, "John Smith, john.smith@example.com")

	assert.Equal(t, "John Smith", got.PatientName)
	assert.Equal(t, "john.smith@example.com", got.Email)
}

func TestExtractAndMergeNormalizesContactFields(t *testing.T) {
	llm := &stubLLM{resp: `{"phone": "5551234567", "email": "JANE@Example.COM", "location": "75201-9999"}`}
	e := newTestExtractor(llm)

	got := e.ExtractAndMerge(context.Background(), PatientRecord{}, "here you go")

	assert.Equal(t, "(555) 123-4567", got.Phone)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, "75201", got.Location)
}

func TestExtractAndMergeKeepsRawOnValidationFailure(t *testing.T) {
	llm := &stubLLM{resp: `{"phone": "+44 20 7946 0958"}`}
	e := newTestExtractor(llm)

	got := e.ExtractAndMerge(context.Background(), PatientRecord{}, "calling from abroad")

	// Not a US number; the raw value survives rather than being dropped.
	assert.Equal(t, "+44 20 7946 0958", got.Phone)
}

func TestExtractAndMergeIdempotentOnNoOpDelta(t *testing.T) {
	llm := &stubLLM{resp: `{}`}
	e := newTestExtractor(llm)

	no := false
	current := completeRecord()
	current.EmergencyStatus = &no

	got := e.ExtractAndMerge(context.Background(), current, "just checking in")
	assert.True(t, got.Equal(current))
}

func TestParseDeltaVariants(t *testing.T) {
	t.Run("embedded in prose", func(t *testing.T) {
		delta, err := parseDelta("Sure, here is the JSON: {\"patient_name\": \"Jane Doe\"} hope that helps")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", cleanString(delta.PatientName))
	})

	t.Run("numeric string pain level", func(t *testing.T) {
		delta, err := parseDelta(`{"pain_level": "8"}`)
		require.NoError(t, err)
		assert.True(t, delta.PainLevel.set)
		assert.Equal(t, 8, delta.PainLevel.value)
	})

	t.Run("garbage pain level treated as unset", func(t *testing.T) {
		delta, err := parseDelta(`{"pain_level": "a lot"}`)
		require.NoError(t, err)
		assert.False(t, delta.PainLevel.set)
	})

	t.Run("null strings collapse", func(t *testing.T) {
		delta, err := parseDelta(`{"patient_name": "null", "phone": null}`)
		require.NoError(t, err)
		assert.Equal(t, "", cleanString(delta.PatientName))
		assert.Equal(t, "", cleanString(delta.Phone))
	})

	t.Run("no JSON at all", func(t *testing.T) {
		_, err := parseDelta("there is nothing structured here")
		require.Error(t, err)
	})
}

func TestExtractNameFromContactBlock(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "comma separated", text: "John Smith, john@example.com, 555-123-4567", want: "John Smith"},
		{name: "name then email", text: "Mary Johnson, mary.j@mail.com", want: "Mary Johnson"},
		{name: "single token rejected", text: "John, john@example.com", want: ""},
		{name: "no contact block", text: "my tooth hurts a lot", want: ""},
		{name: "empty", text: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractNameFromContactBlock(tc.text))
		})
	}
}

func TestBuildExtractionContext(t *testing.T) {
	rec := PatientRecord{PatientName: "John Smith", PainLevel: 7}
	ctx := buildExtractionContext(rec, "my zip is 75201")

	assert.Contains(t, ctx, "- Name: John Smith")
	assert.Contains(t, ctx, "- Pain level: 7")
	assert.Contains(t, ctx, "- Problem: Not provided")
	assert.Contains(t, ctx, "New message: my zip is 75201")
}
