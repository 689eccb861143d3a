package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists conversation turns in Postgres. Appends for one user are
// ordered by an identity column, so a window read always sees turns in
// insertion order.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a conversation store backed by the given pool.
func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("service", "conversation")),
	}
}

// AppendTurn writes one turn for the user and returns the stored row.
func (s *Store) AppendTurn(ctx context.Context, userID, role, content string) (Turn, error) {
	turn := Turn{
		ID:      uuid.NewString(),
		UserID:  userID,
		Role:    role,
		Content: content,
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO conversation_turns (id, user_id, role, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		turn.ID, turn.UserID, turn.Role, turn.Content,
	)
	if err := row.Scan(&turn.CreatedAt); err != nil {
		return Turn{}, fmt.Errorf("append turn: %w", err)
	}
	return turn, nil
}

// RecentTurns returns up to limit most recent turns for the user, oldest
// first.
func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, role, content, created_at
		 FROM conversation_turns
		 WHERE user_id = $1
		 ORDER BY seq DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read turns: %w", err)
	}

	// The query returns newest first; the completion context wants oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
