package dentalchat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dentalchat/intake-agent/internal/intake"
	"github.com/dentalchat/intake-agent/pkg/logging"
)

// MockClient simulates the DentalChat API for demos and local development.
// It applies the same completeness guard as the real client so conversation
// flows exercise both outcomes.
type MockClient struct {
	logger *logging.Logger
}

// NewMockClient creates a canned post client.
func NewMockClient(logger *logging.Logger) *MockClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &MockClient{logger: logger}
}

var _ intake.PostClient = (*MockClient)(nil)

func (m *MockClient) CreatePatientPost(ctx context.Context, record intake.PatientRecord) (intake.PostResult, error) {
	if !record.IsComplete() {
		return intake.PostResult{}, fmt.Errorf("dentalchat: missing %s: %w",
			strings.Join(record.MissingFields(), ", "), intake.ErrIncompleteData)
	}

	postID := "MOCK-" + strings.ToUpper(uuid.NewString()[:8])
	m.logger.Info("mock patient post created", "post_id", postID, "emergency", record.Emergency())

	estimated := "2-4 hours"
	if record.Emergency() {
		estimated = "15-30 minutes"
	}

	return intake.PostResult{
		PostID:                postID,
		PostURL:               "https://dentalchat.com/posts/" + postID,
		EstimatedResponseTime: estimated,
	}, nil
}

func (m *MockClient) NearbyDentists(ctx context.Context, zipCode string, emergency bool) ([]intake.Dentist, error) {
	dentists := []intake.Dentist{
		{Name: "Dr. Sarah Johnson", Practice: "Downtown Dental Care", Distance: "0.8 miles", Rating: 4.9, EmergencyHours: true},
		{Name: "Dr. Michael Chen", Practice: "Smile Bright Dentistry", Distance: "1.2 miles", Rating: 4.7, EmergencyHours: false},
		{Name: "Dr. Emily Rodriguez", Practice: "Family Dental Group", Distance: "2.1 miles", Rating: 4.8, EmergencyHours: true},
	}
	if emergency {
		withHours := dentists[:0]
		for _, d := range dentists {
			if d.EmergencyHours {
				withHours = append(withHours, d)
			}
		}
		dentists = withHours
	}
	return dentists, nil
}

// PostStatus returns a canned status for a mock post.
func (m *MockClient) PostStatus(ctx context.Context, postID string) (map[string]any, error) {
	return map[string]any{
		"post_id":    postID,
		"status":     "active",
		"views":      12,
		"responses":  2,
		"created_at": time.Now().UTC().Add(-30 * time.Minute).Format(time.RFC3339),
	}, nil
}
