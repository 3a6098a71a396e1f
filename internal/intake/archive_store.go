package intake

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArchiveStore persists completed intakes to PostgreSQL for long-term
// history. Methods are nil-safe so the archive stays optional.
type ArchiveStore struct {
	db *sql.DB
}

// NewArchiveStore creates a completed-intake archive. Returns nil when db is
// nil so callers can wire it unconditionally.
func NewArchiveStore(db *sql.DB) *ArchiveStore {
	if db == nil {
		return nil
	}
	return &ArchiveStore{db: db}
}

// ArchivedIntake is one completed intake row.
type ArchivedIntake struct {
	ID          uuid.UUID
	SessionID   string
	PostID      string
	Record      PatientRecord
	TurnCount   int
	StartedAt   time.Time
	CompletedAt time.Time
}

// EnsureSchema creates the archive table when it does not exist yet.
func (s *ArchiveStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS completed_intakes (
			id UUID PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			post_id TEXT NOT NULL,
			patient_record JSONB NOT NULL,
			turn_count INTEGER NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("intake: ensure archive schema: %w", err)
	}
	return nil
}

// SaveCompleted archives a finished session. Re-archiving the same session
// overwrites the earlier row so post-creation retries stay idempotent.
func (s *ArchiveStore) SaveCompleted(ctx context.Context, session *ConversationSession, postID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if session == nil {
		return nil
	}

	record, err := json.Marshal(session.Record)
	if err != nil {
		return fmt.Errorf("intake: marshal archived record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO completed_intakes (
			id, session_id, post_id, patient_record, turn_count, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			post_id = EXCLUDED.post_id,
			patient_record = EXCLUDED.patient_record,
			turn_count = EXCLUDED.turn_count,
			completed_at = EXCLUDED.completed_at
	`, uuid.New(), session.ID, postID, record, len(session.Turns), session.CreatedAt, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("intake: archive completed intake: %w", err)
	}
	return nil
}

// GetBySession returns one archived intake, or nil when none exists.
func (s *ArchiveStore) GetBySession(ctx context.Context, sessionID string) (*ArchivedIntake, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	var (
		archived ArchivedIntake
		rawRec   []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, post_id, patient_record, turn_count, started_at, completed_at
		FROM completed_intakes
		WHERE session_id = $1
	`, sessionID).Scan(
		&archived.ID, &archived.SessionID, &archived.PostID, &rawRec,
		&archived.TurnCount, &archived.StartedAt, &archived.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("intake: get archived intake: %w", err)
	}

	if err := json.Unmarshal(rawRec, &archived.Record); err != nil {
		return nil, fmt.Errorf("intake: decode archived record: %w", err)
	}
	return &archived, nil
}

// CountCompleted reports how many intakes have been archived.
func (s *ArchiveStore) CountCompleted(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM completed_intakes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("intake: count archived intakes: %w", err)
	}
	return count, nil
}
