package identity

import (
	"context"
	"testing"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	r := NewResolver("s3cret", "creatorledger")

	valid, err := r.Issue("user-1", true, time.Hour)
	require.NoError(t, err)

	expired, err := r.Issue("user-1", false, -time.Minute)
	require.NoError(t, err)

	foreign, err := NewResolver("other", "creatorledger").Issue("user-1", false, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewResolver("s3cret", "someone-else").Issue("user-1", false, time.Hour)
	require.NoError(t, err)

	noSubject, err := r.Issue("", false, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   Identity
		ok     bool
	}{
		{"valid", "Bearer " + valid, Identity{UserID: "user-1", IsStandalone: true}, true},
		{"lowercase_scheme", "bearer " + valid, Identity{UserID: "user-1", IsStandalone: true}, true},
		{"empty", "", Identity{}, false},
		{"no_scheme", valid, Identity{}, false},
		{"basic_scheme", "Basic dXNlcjpwYXNz", Identity{}, false},
		{"expired", "Bearer " + expired, Identity{}, false},
		{"wrong_secret", "Bearer " + foreign, Identity{}, false},
		{"wrong_issuer", "Bearer " + wrongIssuer, Identity{}, false},
		{"no_subject", "Bearer " + noSubject, Identity{}, false},
		{"alg_none", "Bearer " + none, Identity{}, false},
		{"garbage", "Bearer not.a.jwt", Identity{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Resolve(tc.header)
			if !tc.ok {
				require.ErrorIs(t, err, apperr.ErrUnauthorized)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	_, err := FromContext(context.Background())
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u"})
	id, err := FromContext(ctx)
	require.NoError(t, err)
	require.Equal(t, "u", id.UserID)
}
