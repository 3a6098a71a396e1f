// Package dentalchat talks to the DentalChat platform API: patient post
// creation, nearby-dentist search, and post status lookups.
package dentalchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dentalchat/intake-agent/internal/config"
	"github.com/dentalchat/intake-agent/internal/intake"
	"github.com/dentalchat/intake-agent/pkg/logging"
)

var clientTracer = otel.Tracer("dentalchat.internal.dentalchat.client")

const (
	maxTitleLength        = 50
	dentistSearchRadius   = 25
	dentistSearchLimit    = 10
	defaultResponseWindow = "1-2 hours"
)

// Client is the production DentalChat API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// New builds the post client from configuration, returning the canned mock
// when the demo API key is configured.
func New(cfg *config.Config, logger *logging.Logger) intake.PostClient {
	if cfg.UseMockDentalChat() {
		return NewMockClient(logger)
	}
	return NewClient(cfg.DentalChatBaseURL, cfg.DentalChatAPIKey, cfg.DentalChatTimeout, logger)
}

// NewClient creates a DentalChat API client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ intake.PostClient = (*Client)(nil)

// postPayload is the create-post request body.
type postPayload struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Priority    string          `json:"priority"`
	PatientInfo postPatientInfo `json:"patient_info"`
	Symptoms    []string        `json:"symptoms"`
	PainLevel   int             `json:"pain_level"`
	Emergency   bool            `json:"emergency"`
	Metadata    postMetadata    `json:"metadata"`
}

type postPatientInfo struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Location string `json:"location"`
}

type postMetadata struct {
	Source    string `json:"source"`
	Version   string `json:"version"`
	Automated bool   `json:"automated"`
	CreatedAt string `json:"created_at"`
}

type postResponse struct {
	PostID                string `json:"post_id"`
	PostURL               string `json:"post_url"`
	EstimatedResponseTime string `json:"estimated_response_time"`
}

// CreatePatientPost submits a patient post. The record must be complete; an
// incomplete record fails with intake.ErrIncompleteData before any network
// call.
func (c *Client) CreatePatientPost(ctx context.Context, record intake.PatientRecord) (intake.PostResult, error) {
	if !record.IsComplete() {
		return intake.PostResult{}, fmt.Errorf("dentalchat: missing %s: %w",
			strings.Join(record.MissingFields(), ", "), intake.ErrIncompleteData)
	}
	if c.apiKey == "" {
		return intake.PostResult{}, errors.New("dentalchat: api key missing")
	}

	ctx, span := clientTracer.Start(ctx, "dentalchat.create_post")
	defer span.End()
	span.SetAttributes(
		attribute.String("dentalchat.location", record.Location),
		attribute.Bool("dentalchat.emergency", record.Emergency()),
	)

	payload := buildPostPayload(record)
	body, err := json.Marshal(payload)
	if err != nil {
		return intake.PostResult{}, fmt.Errorf("dentalchat: marshal post payload: %w", err)
	}

	var parsed postResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/posts/create", body, &parsed); err != nil {
		span.RecordError(err)
		return intake.PostResult{}, err
	}

	estimated := parsed.EstimatedResponseTime
	if estimated == "" {
		estimated = defaultResponseWindow
	}
	c.logger.Info("patient post created", "post_id", parsed.PostID, "emergency", record.Emergency())

	return intake.PostResult{
		PostID:                parsed.PostID,
		PostURL:               parsed.PostURL,
		EstimatedResponseTime: estimated,
	}, nil
}

// NearbyDentists searches providers around a ZIP code.
func (c *Client) NearbyDentists(ctx context.Context, zipCode string, emergency bool) ([]intake.Dentist, error) {
	if strings.TrimSpace(zipCode) == "" {
		return nil, errors.New("dentalchat: zip code required")
	}

	ctx, span := clientTracer.Start(ctx, "dentalchat.dentist_search")
	defer span.End()

	query := url.Values{}
	query.Set("zip", zipCode)
	query.Set("radius", fmt.Sprintf("%d", dentistSearchRadius))
	query.Set("limit", fmt.Sprintf("%d", dentistSearchLimit))
	query.Set("emergency", fmt.Sprintf("%t", emergency))

	var parsed struct {
		Dentists []intake.Dentist `json:"dentists"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/dentists/search?"+query.Encode(), nil, &parsed); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return parsed.Dentists, nil
}

// PostStatus looks up the current status of a created post.
func (c *Client) PostStatus(ctx context.Context, postID string) (map[string]any, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, errors.New("dentalchat: post id required")
	}

	ctx, span := clientTracer.Start(ctx, "dentalchat.post_status")
	defer span.End()

	var parsed map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/patient/post/"+url.PathEscape(postID), nil, &parsed); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return parsed, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("dentalchat: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dentalchat: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("dentalchat: %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("dentalchat: decode response: %w", err)
	}
	return nil
}

// buildPostPayload shapes the record into the platform's create-post body.
func buildPostPayload(record intake.PatientRecord) postPayload {
	title := record.ProblemDescription
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength] + "..."
	}

	painLevel := record.PainLevel
	if painLevel == 0 {
		painLevel = 5
	}
	emergency := record.Emergency() || painLevel >= 7

	category := "general"
	priority := "normal"
	if emergency {
		category = "emergency"
		priority = "high"
	}

	return postPayload{
		Title:       title,
		Description: formatPostDescription(record),
		Category:    category,
		Priority:    priority,
		PatientInfo: postPatientInfo{
			Name:     record.PatientName,
			Phone:    record.Phone,
			Email:    record.Email,
			Location: record.Location,
		},
		Symptoms:  record.Symptoms,
		PainLevel: painLevel,
		Emergency: emergency,
		Metadata: postMetadata{
			Source:    "AI_CHATBOT",
			Version:   "1.0",
			Automated: true,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func formatPostDescription(record intake.PatientRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem: %s\n", record.ProblemDescription)
	if record.PainLevel > 0 {
		fmt.Fprintf(&b, "Pain Level: %d/10\n", record.PainLevel)
	}
	if len(record.Symptoms) > 0 {
		fmt.Fprintf(&b, "Symptoms: %s\n", strings.Join(record.Symptoms, ", "))
	}
	if record.StartedWhen != "" {
		fmt.Fprintf(&b, "Started: %s\n", record.StartedWhen)
	}
	if record.Emergency() {
		b.WriteString("⚠️ EMERGENCY - Immediate attention needed\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
