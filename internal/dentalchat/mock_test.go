package dentalchat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalchat/intake-agent/internal/config"
	"github.com/dentalchat/intake-agent/internal/intake"
)

func TestMockCreatePatientPost(t *testing.T) {
	m := NewMockClient(nil)

	result, err := m.CreatePatientPost(context.Background(), completeRecord())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.PostID, "MOCK-"))
	assert.Contains(t, result.PostURL, result.PostID)
	assert.Equal(t, "2-4 hours", result.EstimatedResponseTime)
}

func TestMockEmergencyResponseWindow(t *testing.T) {
	m := NewMockClient(nil)

	rec := completeRecord()
	yes := true
	rec.EmergencyStatus = &yes

	result, err := m.CreatePatientPost(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "15-30 minutes", result.EstimatedResponseTime)
}

func TestMockIncompleteGuard(t *testing.T) {
	m := NewMockClient(nil)

	rec := completeRecord()
	rec.PatientName = ""

	_, err := m.CreatePatientPost(context.Background(), rec)
	require.ErrorIs(t, err, intake.ErrIncompleteData)
}

func TestMockNearbyDentistsEmergencyFilter(t *testing.T) {
	m := NewMockClient(nil)

	all, err := m.NearbyDentists(context.Background(), "75201", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	emergencyOnly, err := m.NearbyDentists(context.Background(), "75201", true)
	require.NoError(t, err)
	require.Len(t, emergencyOnly, 2)
	for _, d := range emergencyOnly {
		assert.True(t, d.EmergencyHours)
	}
}

func TestFactorySelectsMockForDemoKey(t *testing.T) {
	cfg := &config.Config{
		DentalChatAPIKey:  config.DemoAPIKey,
		DentalChatBaseURL: "https://dentalchat.com/api",
		DentalChatTimeout: 5 * time.Second,
	}
	_, ok := New(cfg, nil).(*MockClient)
	assert.True(t, ok)

	cfg.DentalChatAPIKey = "real-key"
	_, ok = New(cfg, nil).(*Client)
	assert.True(t, ok)
}
