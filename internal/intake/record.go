package intake

import (
	"fmt"
	"strings"
)

// Missing-field labels reported by MissingFields, in priority order. The
// follow-up question table in questions.go is keyed by these exact strings.
const (
	FieldProblemDescription = "dental problem description"
	FieldPatientName        = "your name"
	FieldLocation           = "ZIP code or location"
	FieldContact            = "phone number or email address"
)

// PatientRecord is the accumulating intake record for one conversation.
// All fields are optional until filled; the merge engine in extractor.go is
// the only writer once a conversation is underway.
type PatientRecord struct {
	ProblemDescription string   `json:"problem_description,omitempty"`
	PainLevel          int      `json:"pain_level,omitempty"` // 0 means unset, otherwise 1..10
	EmergencyStatus    *bool    `json:"emergency_status,omitempty"`
	Location           string   `json:"location,omitempty"`
	PatientName        string   `json:"patient_name,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	Email              string   `json:"email,omitempty"`
	StartedWhen        string   `json:"started_when,omitempty"`
	Symptoms           []string `json:"symptoms,omitempty"`
}

// IsComplete reports whether every required field is present: problem
// description, name, location, and at least one of phone or email.
func (r *PatientRecord) IsComplete() bool {
	hasContact := r.Phone != "" || r.Email != ""
	return r.ProblemDescription != "" && r.PatientName != "" && r.Location != "" && hasContact
}

// MissingFields lists the unmet required conditions in priority order using
// the patient-facing labels above.
func (r *PatientRecord) MissingFields() []string {
	var missing []string
	if r.ProblemDescription == "" {
		missing = append(missing, FieldProblemDescription)
	}
	if r.PatientName == "" {
		missing = append(missing, FieldPatientName)
	}
	if r.Location == "" {
		missing = append(missing, FieldLocation)
	}
	if r.Phone == "" && r.Email == "" {
		missing = append(missing, FieldContact)
	}
	return missing
}

// Emergency reports the effective emergency status: the explicit flag when
// set, otherwise false.
func (r *PatientRecord) Emergency() bool {
	return r.EmergencyStatus != nil && *r.EmergencyStatus
}

// AddSymptoms unions new symptom tokens into the record, preserving first
// insertion order and skipping duplicates and blanks. The symptom set only
// ever grows.
func (r *PatientRecord) AddSymptoms(symptoms []string) {
	for _, s := range symptoms {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if r.hasSymptom(s) {
			continue
		}
		r.Symptoms = append(r.Symptoms, s)
	}
}

func (r *PatientRecord) hasSymptom(symptom string) bool {
	for _, existing := range r.Symptoms {
		if strings.EqualFold(existing, symptom) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so a failed merge can never leave the caller's
// record partially mutated.
func (r *PatientRecord) Clone() PatientRecord {
	out := *r
	if r.EmergencyStatus != nil {
		v := *r.EmergencyStatus
		out.EmergencyStatus = &v
	}
	if r.Symptoms != nil {
		out.Symptoms = append([]string(nil), r.Symptoms...)
	}
	return out
}

// Equal reports field-for-field equality, used to detect no-op merges.
func (r *PatientRecord) Equal(other PatientRecord) bool {
	if r.ProblemDescription != other.ProblemDescription ||
		r.PainLevel != other.PainLevel ||
		r.Location != other.Location ||
		r.PatientName != other.PatientName ||
		r.Phone != other.Phone ||
		r.Email != other.Email ||
		r.StartedWhen != other.StartedWhen {
		return false
	}
	if (r.EmergencyStatus == nil) != (other.EmergencyStatus == nil) {
		return false
	}
	if r.EmergencyStatus != nil && *r.EmergencyStatus != *other.EmergencyStatus {
		return false
	}
	if len(r.Symptoms) != len(other.Symptoms) {
		return false
	}
	for i := range r.Symptoms {
		if r.Symptoms[i] != other.Symptoms[i] {
			return false
		}
	}
	return true
}

// Summary formats the collected fields for patient-facing recap messages.
func (r *PatientRecord) Summary() string {
	var lines []string
	if r.PatientName != "" {
		lines = append(lines, "• Name: "+r.PatientName)
	}
	if r.ProblemDescription != "" {
		lines = append(lines, "• Issue: "+r.ProblemDescription)
	}
	if r.PainLevel > 0 {
		lines = append(lines, fmt.Sprintf("• Pain Level: %d/10", r.PainLevel))
	}
	if r.Location != "" {
		lines = append(lines, "• Location: "+r.Location)
	}
	if r.Phone != "" {
		lines = append(lines, "• Phone: "+r.Phone)
	}
	if r.Email != "" {
		lines = append(lines, "• Email: "+r.Email)
	}
	if r.StartedWhen != "" {
		lines = append(lines, "• Started: "+r.StartedWhen)
	}
	if len(lines) == 0 {
		return "No information collected yet"
	}
	return strings.Join(lines, "\n")
}
