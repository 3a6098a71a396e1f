package intake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestratorRoundtrip(t *testing.T) {
	svc := &fakeService{
		startResp:   &Response{SessionID: "s1", Message: "welcome"},
		messageResp: &Response{SessionID: "s1", Message: "next question"},
	}
	o := NewOrchestrator(svc, NewMemoryQueue(8), nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	defer shutdownOrchestrator(t, o)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start, err := o.StartConversation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "welcome", start.Message)

	resp, err := o.ProcessMessage(ctx, MessageRequest{SessionID: "s1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "next question", resp.Message)
}

func TestOrchestratorPropagatesServiceError(t *testing.T) {
	svc := &fakeService{
		messageResp: &Response{SessionID: "s1", Message: sessionExpiredMessage},
		messageErr:  ErrSessionNotFound,
	}
	o := NewOrchestrator(svc, NewMemoryQueue(8), nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	defer shutdownOrchestrator(t, o)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := o.ProcessMessage(ctx, MessageRequest{SessionID: "s1", Message: "hi"})
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, sessionExpiredMessage, resp.Message)
}

func TestOrchestratorSummaryBypassesQueue(t *testing.T) {
	svc := &fakeService{summaryResp: &SessionSummary{SessionID: "s1"}}
	o := NewOrchestrator(svc, NewMemoryQueue(8), nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	defer shutdownOrchestrator(t, o)

	summary, err := o.Summary(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", summary.SessionID)
}

func TestOrchestratorShutdown(t *testing.T) {
	svc := &fakeService{startResp: &Response{SessionID: "s1"}}
	o := NewOrchestrator(svc, NewMemoryQueue(8), nil, WithWorkerCount(2), WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(ctx))
}

func shutdownOrchestrator(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(ctx))
}

func TestMemoryQueueSendReceive(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Send(ctx, "one"))
	require.NoError(t, q.Send(ctx, "two"))

	messages, err := q.Receive(ctx, 5, 1)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "one", messages[0].Body)
	assert.Equal(t, "two", messages[1].Body)
}

func TestMemoryQueueReceiveTimesOut(t *testing.T) {
	q := NewMemoryQueue(4)

	messages, err := q.Receive(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
