package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dentalchat/intake-agent/pkg/logging"
)

// DefaultPainEmergencyThreshold is the pain level at or above which the
// enhancement pass raises the emergency flag.
const DefaultPainEmergencyThreshold = 7

// extractionDelta is the untrusted field bag parsed from one model response.
// Pointer fields distinguish "absent/null" from genuinely empty values.
type extractionDelta struct {
	ProblemDescription *string  `json:"problem_description"`
	PainLevel          flexInt  `json:"pain_level"`
	EmergencyStatus    *bool    `json:"emergency_status"`
	Location           *string  `json:"location"`
	PatientName        *string  `json:"patient_name"`
	Phone              *string  `json:"phone"`
	Email              *string  `json:"email"`
	StartedWhen        *string  `json:"started_when"`
	Symptoms           []string `json:"symptoms"`
}

// flexInt tolerates numbers the model emits as JSON numbers, numeric strings,
// or null. Unparseable values are treated as unset rather than failing the
// whole delta.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	f.value = int(v)
	f.set = true
	return nil
}

// cleanString collapses nil, empty, and the literal "null" to "".
func cleanString(p *string) string {
	if p == nil {
		return ""
	}
	v := strings.TrimSpace(*p)
	if strings.EqualFold(v, "null") {
		return ""
	}
	return v
}

var embeddedJSONRE = regexp.MustCompile(`(?s)\{.*\}`)

// parseDelta extracts the JSON object embedded in a model response using a
// first-{ to last-} scan, falling back to parsing the whole text. A non-nil
// error means total parse failure; the returned delta is then empty and the
// merge becomes a no-op.
func parseDelta(responseText string) (extractionDelta, error) {
	var delta extractionDelta

	if jsonStr := embeddedJSONRE.FindString(responseText); jsonStr != "" {
		if err := json.Unmarshal([]byte(jsonStr), &delta); err == nil {
			return delta, nil
		}
	}
	if err := json.Unmarshal([]byte(responseText), &delta); err != nil {
		return extractionDelta{}, fmt.Errorf("intake: no parseable JSON in extraction response: %w", err)
	}
	return delta, nil
}

// mergeDelta combines a delta into the current record. Only null-to-value
// transitions are applied; symptoms union; existing data is never regressed.
// An out-of-range pain level is a construction error: the caller keeps the
// original record untouched.
func mergeDelta(current PatientRecord, delta extractionDelta) (PatientRecord, error) {
	out := current.Clone()

	out.AddSymptoms(delta.Symptoms)

	if v := cleanString(delta.ProblemDescription); v != "" && out.ProblemDescription == "" {
		out.ProblemDescription = v
	}
	if delta.PainLevel.set {
		if delta.PainLevel.value < 1 || delta.PainLevel.value > 10 {
			return current, fmt.Errorf("intake: extracted pain level %d outside 1-10", delta.PainLevel.value)
		}
		if out.PainLevel == 0 {
			out.PainLevel = delta.PainLevel.value
		}
	}
	if delta.EmergencyStatus != nil && out.EmergencyStatus == nil {
		v := *delta.EmergencyStatus
		out.EmergencyStatus = &v
	}
	if v := cleanString(delta.Location); v != "" && out.Location == "" {
		out.Location = v
	}
	if v := cleanString(delta.PatientName); v != "" && out.PatientName == "" {
		out.PatientName = v
	}
	if v := cleanString(delta.Phone); v != "" && out.Phone == "" {
		out.Phone = v
	}
	if v := cleanString(delta.Email); v != "" && out.Email == "" {
		out.Email = v
	}
	if v := cleanString(delta.StartedWhen); v != "" && out.StartedWhen == "" {
		out.StartedWhen = v
	}

	return out, nil
}

// ---------- name-from-contact-block heuristic ----------

var (
	leadingNameRE    = regexp.MustCompile(`^[A-Za-z][A-Za-z\s]*`)
	emailAfterNameRE = regexp.MustCompile(`^\s*[A-Za-z0-9._%+-]+@`)
)

// extractNameFromContactBlock recognizes consolidated contact lines like
// "John Smith, john@example.com, 555-123-4567" and pulls the leading name.
// Only accepted when it yields at least two tokens.
func extractNameFromContactBlock(text string) string {
	trimmed := strings.TrimSpace(text)
	m := leadingNameRE.FindString(trimmed)
	if m == "" {
		return ""
	}
	for end := len(m); end > 0; end-- {
		rest := trimmed[end:]
		if !strings.HasPrefix(rest, ",") && !emailAfterNameRE.MatchString(rest) {
			continue
		}
		name := strings.TrimSpace(m[:end])
		if len(strings.Fields(name)) >= 2 {
			return name
		}
		return ""
	}
	return ""
}

// ---------- extractor ----------

// Extractor runs the per-turn extraction pipeline: model call, structural
// merge, heuristic enhancement, and contact-field normalization.
type Extractor struct {
	llm                LLMClient
	logger             *logging.Logger
	emergencyThreshold int
	onFailure          func() // metrics hook, may be nil
}

// NewExtractor wires an extraction pipeline around the supplied LLM client.
func NewExtractor(llm LLMClient, logger *logging.Logger, emergencyThreshold int, onFailure func()) *Extractor {
	if llm == nil {
		panic("intake: extractor llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if emergencyThreshold <= 0 {
		emergencyThreshold = DefaultPainEmergencyThreshold
	}
	return &Extractor{
		llm:                llm,
		logger:             logger,
		emergencyThreshold: emergencyThreshold,
		onFailure:          onFailure,
	}
}

// ExtractAndMerge pulls structured fields out of one user message and folds
// them into the current record. Every failure path returns a record at least
// as good as the input: transport errors and merge failures keep the prior
// record; parse failures still run the heuristic enhancement pass.
func (e *Extractor) ExtractAndMerge(ctx context.Context, current PatientRecord, message string) PatientRecord {
	resp, err := e.llm.Complete(ctx, LLMRequest{
		System:      []string{extractionPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: buildExtractionContext(current, message)}},
		Temperature: 0.1,
		MaxTokens:   1024,
	})
	if err != nil {
		e.logger.Error("extraction model call failed", "error", err)
		e.recordFailure()
		return current
	}

	delta, parseErr := parseDelta(resp.Text)
	if parseErr != nil {
		e.logger.Warn("extraction response unparseable, merging nothing", "error", parseErr)
		e.recordFailure()
	}

	merged, mergeErr := mergeDelta(current, delta)
	if mergeErr != nil {
		e.logger.Warn("extraction delta rejected", "error", mergeErr)
		e.recordFailure()
		return current
	}

	enhanced := e.enhance(merged, message)
	return e.normalizeContactFields(enhanced)
}

// enhance fills fields the structured extraction missed by scanning the raw
// message text with the heuristic validators.
func (e *Extractor) enhance(record PatientRecord, text string) PatientRecord {
	if record.PainLevel == 0 {
		if level := ExtractPainLevelFromText(text); level > 0 {
			record.PainLevel = level
		}
	}

	// Keyword OR high pain level raises the flag; only evaluated while the
	// flag is still unset.
	if record.EmergencyStatus == nil {
		isEmergency := DetectEmergencyKeywords(text) || record.PainLevel >= e.emergencyThreshold
		record.EmergencyStatus = &isEmergency
	}

	if record.StartedWhen == "" {
		if frame := ExtractTimeFrame(text); frame != "" {
			record.StartedWhen = frame
		}
	}

	if record.Phone == "" {
		if phone := ExtractPhone(text); phone != "" {
			record.Phone = phone
		}
	}
	if record.Email == "" {
		if email := ExtractEmail(text); email != "" {
			record.Email = email
		}
	}
	if record.PatientName == "" {
		if name := extractNameFromContactBlock(text); name != "" {
			record.PatientName = name
		}
	}

	return record
}

// normalizeContactFields adopts validator output for phone, email, and ZIP
// when validation succeeds. On failure the raw value is retained as-is; the
// validators may reject legitimate but differently-formatted input.
func (e *Extractor) normalizeContactFields(record PatientRecord) PatientRecord {
	if record.Phone != "" {
		if formatted, err := ValidatePhone(record.Phone); err == nil {
			record.Phone = formatted
		} else {
			e.logger.Debug("keeping unvalidated phone", "phone", record.Phone, "error", err)
		}
	}
	if record.Email != "" {
		if normalized, err := ValidateEmail(record.Email); err == nil {
			record.Email = normalized
		} else {
			e.logger.Debug("keeping unvalidated email", "email", record.Email, "error", err)
		}
	}
	if record.Location != "" {
		if zip, err := ValidateZIP(record.Location); err == nil {
			record.Location = zip
		}
	}
	return record
}

func (e *Extractor) recordFailure() {
	if e.onFailure != nil {
		e.onFailure()
	}
}

// buildExtractionContext frames the new message with the values collected so
// far so the model extracts only what is genuinely new.
func buildExtractionContext(current PatientRecord, message string) string {
	orNotProvided := func(v string) string {
		if v == "" {
			return "Not provided"
		}
		return v
	}
	painStr := "Not provided"
	if current.PainLevel > 0 {
		painStr = strconv.Itoa(current.PainLevel)
	}

	return fmt.Sprintf(`Previous information collected:
- Problem: %s
- Pain level: %s
- Name: %s
- Phone: %s
- Email: %s
- Location: %s
- Started when: %s

New message: %s
`,
		orNotProvided(current.ProblemDescription),
		painStr,
		orNotProvided(current.PatientName),
		orNotProvided(current.Phone),
		orNotProvided(current.Email),
		orNotProvided(current.Location),
		orNotProvided(current.StartedWhen),
		message,
	)
}
