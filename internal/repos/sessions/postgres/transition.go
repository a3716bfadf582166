package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/sessions"
	"github.com/google/uuid"
)

func (r *sessionsRepo) Transition(ctx context.Context, tx *sql.Tx, id uuid.UUID, from []sessions.Status, to sessions.Status) (sessions.Session, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	out, err := scanSession(tx.QueryRowContext(ctx, `
		UPDATE sessions
		SET status = $2,
		    updated_at = clock_timestamp()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+sessionColumns,
		id, to, allowed,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sessions.Session{}, sessions.ErrInvalidState
		}

		return sessions.Session{}, fmt.Errorf("transition session: %w", err)
	}

	return out, nil
}

func (r *sessionsRepo) ListByStatus(ctx context.Context, status sessions.Status, limit int) ([]sessions.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE status = $1
		ORDER BY updated_at, id
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []sessions.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return out, nil
}
