package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	primary := &stubLLM{resp: "from primary"}
	fallback := &stubLLM{resp: "from fallback"}
	switches := 0

	c := NewFallbackLLMClient(primary, fallback, nil, func() { switches++ })
	resp, err := c.Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)

	assert.Equal(t, "from primary", resp.Text)
	assert.Equal(t, 0, fallback.calls)
	assert.Equal(t, 0, switches)
}

func TestFallbackClientSwitchesOnFailure(t *testing.T) {
	primary := &stubLLM{err: errors.New("rate limited")}
	fallback := &stubLLM{resp: "from fallback"}
	switches := 0

	c := NewFallbackLLMClient(primary, fallback, nil, func() { switches++ })
	resp, err := c.Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)

	assert.Equal(t, "from fallback", resp.Text)
	assert.Equal(t, 1, switches)
}

func TestFallbackClientBothFail(t *testing.T) {
	primary := &stubLLM{err: errors.New("rate limited")}
	fallbackErr := errors.New("also down")
	fallback := &stubLLM{err: fallbackErr}

	c := NewFallbackLLMClient(primary, fallback, nil, nil)
	_, err := c.Complete(context.Background(), LLMRequest{})
	require.ErrorIs(t, err, fallbackErr)
}

func TestFallbackClientNoFallbackConfigured(t *testing.T) {
	primaryErr := errors.New("down")
	c := NewFallbackLLMClient(&stubLLM{err: primaryErr}, nil, nil, nil)

	_, err := c.Complete(context.Background(), LLMRequest{})
	require.ErrorIs(t, err, primaryErr)
}
