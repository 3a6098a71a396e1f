package intake

import (
	"context"
	"errors"
)

// ErrIncompleteData is returned by post creation when the completeness guard
// inside the collaborator call fails, independent of the completion policy's
// own check.
var ErrIncompleteData = errors.New("intake: patient record incomplete")

// PostResult describes a successfully created patient post.
type PostResult struct {
	PostID                string
	PostURL               string
	EstimatedResponseTime string
}

// Dentist is one provider summary from the nearby-dentist search.
type Dentist struct {
	Name           string  `json:"name"`
	Practice       string  `json:"practice"`
	Distance       string  `json:"distance"`
	Rating         float64 `json:"rating"`
	EmergencyHours bool    `json:"emergency_hours"`
}

// PostClient is the downstream intake-platform collaborator. The concrete
// HTTP client and the demo mock both live in internal/dentalchat.
type PostClient interface {
	// CreatePatientPost submits the record. Implementations must re-check
	// IsComplete and return ErrIncompleteData (wrapped or bare) otherwise.
	CreatePatientPost(ctx context.Context, record PatientRecord) (PostResult, error)

	// NearbyDentists searches providers around a ZIP code. Failures never
	// block conversation completion.
	NearbyDentists(ctx context.Context, zipCode string, emergency bool) ([]Dentist, error)
}
