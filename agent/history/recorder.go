package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/chorusml/chorus/agent/contract"
	recallx "github.com/chorusml/chorus/pkg/recall"
)

// Config holds the Postgres connection string. An empty DSN disables
// persistence entirely.
type Config struct {
	DSN string `envconfig:"DSN" split_words:"true"`
}

// TurnRecord is one persisted conversation turn.
type TurnRecord struct {
	bun.BaseModel `bun:"table:conversation_turns,alias:ct"`

	ID             string    `bun:"id,pk"`
	UserID         string    `bun:"user_id,notnull"`
	ConversationID string    `bun:"conversation_id"`
	Role           string    `bun:"role,notnull"`
	Content        string    `bun:"content,notnull"`
	Intent         string    `bun:"intent"`
	UnitsUsed      []string  `bun:"units_used,array"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

// MemoryWriter is the optional recall-side write, so future turns are
// retrievable by the memory unit.
type MemoryWriter interface {
	Store(ctx context.Context, req recallx.StoreRequest) error
}

// Recorder persists turns to Postgres and mirrors them into the recall
// backend. The recall write is best-effort: a miss only costs future recall
// quality.
type Recorder struct {
	db       *bun.DB
	memories MemoryWriter
	now      func() time.Time
}

func Open(dsn string) (*bun.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("history dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func NewRecorder(db *bun.DB, memories MemoryWriter) (*Recorder, error) {
	if db == nil {
		return nil, errors.New("history db is required")
	}
	return &Recorder{
		db:       db,
		memories: memories,
		now:      time.Now,
	}, nil
}

func (r *Recorder) RecordTurn(ctx context.Context, turn contractx.Turn) error {
	if strings.TrimSpace(turn.Content) == "" {
		return fmt.Errorf("%w: turn content is empty", contractx.ErrValidation)
	}

	units := make([]string, 0, len(turn.UnitsUsed))
	for _, u := range turn.UnitsUsed {
		units = append(units, string(u))
	}

	record := &TurnRecord{
		ID:             uuid.New().String(),
		UserID:         turn.UserID,
		ConversationID: turn.ConversationID,
		Role:           turn.Role,
		Content:        turn.Content,
		Intent:         turn.Intent,
		UnitsUsed:      units,
		CreatedAt:      r.now().UTC(),
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}

	r.storeMemory(ctx, turn)
	return nil
}

func (r *Recorder) storeMemory(ctx context.Context, turn contractx.Turn) {
	if r.memories == nil {
		return
	}

	tags := []string{turn.Role}
	if turn.UserID != "" {
		tags = append(tags, "user_"+turn.UserID)
	}
	if turn.ConversationID != "" {
		tags = append(tags, "conversation_"+turn.ConversationID)
	}

	importance := 0.5
	if turn.Role == "user" {
		importance = 0.7
	}

	err := r.memories.Store(ctx, recallx.StoreRequest{
		Content:    turn.Content,
		Type:       "conversation",
		Importance: importance,
		Tags:       tags,
	})
	if err != nil {
		log.Warn().Err(err).Str("role", turn.Role).Msg("recall store failed")
	}
}
