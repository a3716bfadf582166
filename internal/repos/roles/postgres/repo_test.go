package roles

import (
	"testing"

	"github.com/fastprodman/creatorledger/internal/infra/pgtestutil"
)

func TestRoles_IsAdmin_Table(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	_, err := db.Exec(`
		INSERT INTO admin_roles (user_id, resource) VALUES
			('root', '*'),
			('mod', 'disputes')
	`)
	if err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	repo := New(db)

	tests := []struct {
		user     string
		resource string
		want     bool
	}{
		{"root", "disputes", true},
		{"root", "payouts", true},
		{"mod", "disputes", true},
		{"mod", "payouts", false},
		{"alice", "disputes", false},
		{"", "disputes", false},
	}

	for _, tt := range tests {
		t.Run(tt.user+"_"+tt.resource, func(t *testing.T) {
			got, err := repo.IsAdmin(t.Context(), tt.user, tt.resource)
			if err != nil {
				t.Fatalf("is admin: %v", err)
			}
			if got != tt.want {
				t.Fatalf("IsAdmin(%q, %q) = %v, want %v", tt.user, tt.resource, got, tt.want)
			}
		})
	}
}
