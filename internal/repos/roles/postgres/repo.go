package roles

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/roles"
)

var _ roles.Roles = (*rolesRepo)(nil)

type rolesRepo struct{ db *sql.DB }

func New(db *sql.DB) *rolesRepo {
	return &rolesRepo{db: db}
}

func (r *rolesRepo) IsAdmin(ctx context.Context, userID, resource string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	var ok bool

	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM admin_roles
			WHERE user_id = $1 AND resource IN ($2, $3)
		)
	`, userID, resource, roles.ResourceAll).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check admin role: %w", err)
	}

	return ok, nil
}
