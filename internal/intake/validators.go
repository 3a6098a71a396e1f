package intake

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Problem description length bounds enforced by ValidateProblemDescription.
const (
	MinProblemLength = 10
	MaxProblemLength = 500
)

// maxInputLength caps sanitized user input.
const maxInputLength = 1000

// ---------- package-level compiled regexes ----------

var (
	nonDigitRE    = regexp.MustCompile(`[^\d]`)
	zipRE         = regexp.MustCompile(`^\d{5}$`)
	zipPlusFourRE = regexp.MustCompile(`^\d{5}-\d{4}$`)
	nameCharsRE   = regexp.MustCompile(`^[A-Za-z\s\-']+$`)
	emailScanRE   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	whitespaceRE  = regexp.MustCompile(`\s+`)
	unsafeCharsRE = regexp.MustCompile(`[<>{}\\]`)
)

// ---------- pain level ----------

// painNumberPatterns are scanned in order; the first in-range match wins.
var painNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`pain.*?(\d{1,2})`),
	regexp.MustCompile(`(\d{1,2}).*?pain`),
	regexp.MustCompile(`(\d{1,2}).*?out.*?of.*?10`),
	regexp.MustCompile(`level.*?(\d{1,2})`),
	regexp.MustCompile(`scale.*?(\d{1,2})`),
}

// painDescriptions maps descriptive words to a pain score. Declaration order
// is the scan order; the first match wins.
var painDescriptions = []struct {
	word  string
	level int
}{
	{"mild", 2},
	{"slight", 2},
	{"moderate", 5},
	{"severe", 8},
	{"extreme", 9},
	{"excruciating", 10},
	{"unbearable", 10},
	{"terrible", 8},
	{"awful", 7},
	{"horrible", 8},
}

// ValidatePainLevel parses a pain level and checks the 1-10 range.
func ValidatePainLevel(raw string) (int, error) {
	level, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("pain level must be a number between 1 and 10")
	}
	if level < 1 || level > 10 {
		return 0, fmt.Errorf("pain level must be between 1 and 10")
	}
	return level, nil
}

// ExtractPainLevelFromText scans free text for a pain level: explicit numbers
// near pain/level/scale context first, then descriptive words.
func ExtractPainLevelFromText(text string) int {
	lower := strings.ToLower(text)

	for _, re := range painNumberPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			if level, err := strconv.Atoi(m[1]); err == nil && level >= 1 && level <= 10 {
				return level
			}
		}
	}

	for _, desc := range painDescriptions {
		if strings.Contains(lower, desc.word) {
			return desc.level
		}
	}

	return 0
}

// ---------- emergency detection ----------

var emergencyKeywords = []string{
	"emergency", "urgent", "severe", "excruciating", "unbearable",
	"swollen", "swelling", "infection", "abscess", "bleeding",
	"knocked out", "broken", "fractured", "trauma", "accident",
	"can't eat", "can't sleep", "getting worse", "spreading",
}

// DetectEmergencyKeywords reports whether any emergency indicator appears in
// the text (case-insensitive substring match).
func DetectEmergencyKeywords(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range emergencyKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ---------- timeframe ----------

// timeFramePatterns are evaluated in order; the first match is returned as-is.
var timeFramePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*(day|week|month|year)s?\s*ago`),
	regexp.MustCompile(`(yesterday|today|this morning|last night)`),
	regexp.MustCompile(`since\s+(yesterday|today|this morning|last night)`),
	regexp.MustCompile(`for\s+(\d+)\s*(day|week|month|year)s?`),
	regexp.MustCompile(`started\s+(\d+)\s*(day|week|month|year)s?\s*ago`),
}

// ExtractTimeFrame pulls a relative timeframe ("3 days ago", "since
// yesterday") out of free text. Returns "" when nothing matches.
func ExtractTimeFrame(text string) string {
	lower := strings.ToLower(text)
	for _, re := range timeFramePatterns {
		if m := re.FindString(lower); m != "" {
			return m
		}
	}
	return ""
}

// ---------- phone ----------

// ValidatePhone strips non-digits and accepts 10-digit numbers or 11-digit
// numbers with a leading 1, formatting as (AAA) BBB-CCCC.
func ValidatePhone(raw string) (string, error) {
	digits := nonDigitRE.ReplaceAllString(raw, "")

	switch {
	case len(digits) == 10:
		return formatPhoneDigits(digits), nil
	case len(digits) == 11 && digits[0] == '1':
		return formatPhoneDigits(digits[1:]), nil
	default:
		return "", fmt.Errorf("invalid phone number format, expected (555) 123-4567")
	}
}

func formatPhoneDigits(d string) string {
	return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
}

// ExtractPhone is the permissive scraper used by the enhancement pass: it
// strips every non-digit in the text and accepts the result only if the
// remaining digits form exactly one US number.
func ExtractPhone(text string) string {
	digits := nonDigitRE.ReplaceAllString(text, "")
	switch {
	case len(digits) == 10:
		return formatPhoneDigits(digits)
	case len(digits) == 11 && digits[0] == '1':
		return formatPhoneDigits(digits[1:])
	}
	return ""
}

// ---------- email ----------

// ValidateEmail runs a standards-compliant address check and lowercases the
// result.
func ValidateEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid email address: %v", err)
	}
	// Reject addresses without a dotted domain, which mail.ParseAddress allows.
	at := strings.LastIndex(addr.Address, "@")
	if at < 0 || !strings.Contains(addr.Address[at:], ".") {
		return "", fmt.Errorf("invalid email address: missing domain")
	}
	return strings.ToLower(addr.Address), nil
}

// ExtractEmail scrapes the first email-shaped token out of free text.
func ExtractEmail(text string) string {
	return emailScanRE.FindString(text)
}

// ---------- ZIP code ----------

// ValidateZIP accepts NNNNN or NNNNN-NNNN, truncating ZIP+4 to five digits.
func ValidateZIP(raw string) (string, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")

	if zipRE.MatchString(cleaned) {
		return cleaned, nil
	}
	if zipPlusFourRE.MatchString(cleaned) {
		return cleaned[:5], nil
	}
	return "", fmt.Errorf("ZIP code must be 5 digits (e.g., 75201)")
}

// ---------- name ----------

// ValidateName requires at least first and last name, letters/space/hyphen/
// apostrophe only, and reformats to title case.
func ValidateName(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	parts := strings.Fields(cleaned)
	if len(parts) < 2 {
		return "", fmt.Errorf("please provide both first and last name")
	}
	if !nameCharsRE.MatchString(cleaned) {
		return "", fmt.Errorf("name can only contain letters, spaces, hyphens, and apostrophes")
	}

	for i, part := range parts {
		parts[i] = capitalizeWord(part)
	}
	return strings.Join(parts, " "), nil
}

func capitalizeWord(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}

// ---------- problem description ----------

// ValidateProblemDescription trims and length-checks the description.
func ValidateProblemDescription(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", fmt.Errorf("problem description cannot be empty")
	}
	if len(cleaned) < MinProblemLength {
		return "", fmt.Errorf("problem description must be at least %d characters", MinProblemLength)
	}
	if len(cleaned) > MaxProblemLength {
		return "", fmt.Errorf("problem description must be less than %d characters", MaxProblemLength)
	}
	return cleaned, nil
}

// ---------- input sanitization ----------

// SanitizeInput caps length, strips characters that have no business in chat
// input, and collapses whitespace.
func SanitizeInput(input string) string {
	if input == "" {
		return ""
	}
	if len(input) > maxInputLength {
		cut := maxInputLength
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut]
	}
	input = unsafeCharsRE.ReplaceAllString(input, "")
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(input), " ")
}
