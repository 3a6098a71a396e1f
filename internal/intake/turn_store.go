package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	turnKeyPrefix = "intake_transcript:"
	turnTTL       = 24 * time.Hour
)

// TurnStore persists conversation transcripts to Redis so a restarted
// process can still serve summary reads. The registry remains the source of
// truth for live sessions; this store is write-mostly.
type TurnStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewTurnStore creates a transcript store. Returns nil when redisClient is
// nil so callers can wire it unconditionally.
func NewTurnStore(redisClient *redis.Client) *TurnStore {
	if redisClient == nil {
		return nil
	}
	return &TurnStore{
		redis:  redisClient,
		tracer: otel.Tracer("dentalchat.internal.intake.turn_store"),
	}
}

// Save replaces the stored transcript for a session and refreshes its TTL.
func (s *TurnStore) Save(ctx context.Context, sessionID string, turns []ConversationTurn) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		return errors.New("intake: transcript sessionID required")
	}

	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("intake: marshal transcript: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "intake.turn_store.save")
	defer span.End()

	if err := s.redis.Set(ctx, turnKey(sessionID), data, turnTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: save transcript: %w", err)
	}
	return nil
}

// Load returns the stored transcript, or nil when none exists.
func (s *TurnStore) Load(ctx context.Context, sessionID string) ([]ConversationTurn, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		return nil, errors.New("intake: transcript sessionID required")
	}

	ctx, span := s.tracer.Start(ctx, "intake.turn_store.load")
	defer span.End()

	raw, err := s.redis.Get(ctx, turnKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("intake: load transcript: %w", err)
	}

	var turns []ConversationTurn
	if err := json.Unmarshal(raw, &turns); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("intake: decode transcript: %w", err)
	}
	return turns, nil
}

// Delete removes the stored transcript.
func (s *TurnStore) Delete(ctx context.Context, sessionID string) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := s.tracer.Start(ctx, "intake.turn_store.delete")
	defer span.End()

	if err := s.redis.Del(ctx, turnKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: delete transcript: %w", err)
	}
	return nil
}

func turnKey(sessionID string) string {
	return turnKeyPrefix + sessionID
}
