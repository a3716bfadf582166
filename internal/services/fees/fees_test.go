package fees

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestCompute_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  int64
		bps     int64
		want    int64
		wantErr bool
	}{
		{name: "five_percent", amount: 10_000, bps: 500, want: 500},
		{name: "rounds_down", amount: 199, bps: 500, want: 9},
		{name: "zero_bps", amount: 10_000, bps: 0, want: 0},
		{name: "zero_amount", amount: 0, bps: 500, want: 0},
		{name: "full_rate", amount: 777, bps: 10_000, want: 777},
		{name: "negative_bps", amount: 100, bps: -1, wantErr: true},
		{name: "bps_over_scale", amount: 100, bps: 10_001, wantErr: true},
		{name: "negative_amount", amount: -1, bps: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Compute(tt.amount, tt.bps)
			if tt.wantErr {
				require.ErrorIs(t, err, apperr.ErrValidation)
				return
			}

			require.NoError(t, err)
			require.LessOrEqual(t, got, tt.amount)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_OverflowPathMatchesExact(t *testing.T) {
	t.Parallel()

	// amount*bps overflows int64 here.
	got, err := Compute(math.MaxInt64, 9_999)
	require.NoError(t, err)
	require.Equal(t, int64(9_222_449_699_651_090_329), got)
}

func TestCompute_DeterministicAndBounded(t *testing.T) {
	t.Parallel()

	for amount := int64(0); amount < 2_000; amount += 37 {
		for _, bps := range []int64{0, 1, 99, 500, 3_333, 10_000} {
			a, err := Compute(amount, bps)
			require.NoError(t, err)

			b, err := Compute(amount, bps)
			require.NoError(t, err)

			require.Equal(t, a, b)
			require.LessOrEqual(t, a, amount)
			require.GreaterOrEqual(t, a, int64(0))
		}
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	got, err := Split(10_000, 500, 300)
	require.NoError(t, err)
	require.Equal(t, Breakdown{Gross: 10_000, PlatformFee: 500, CommunityFee: 300, Net: 9_200}, got)

	odd, err := Split(333, 500, 300)
	require.NoError(t, err)
	require.Equal(t, odd.Gross, odd.PlatformFee+odd.CommunityFee+odd.Net)

	_, err = Split(100, 6_000, 5_000)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func ptr(v int64) *int64 { return &v }

func TestSchedule_Precedence(t *testing.T) {
	t.Parallel()

	s := &Schedule{
		PlatformFeeBps: 500,
		TransferFeeBps: 100,
		Communities: map[string]CommunityRates{
			"guild":   {CommunityFeeBps: 300},
			"premium": {PlatformFeeBps: ptr(400), CommunityFeeBps: 200},
		},
		Sellers: map[string]SellerRates{
			"star": {PlatformFeeBps: ptr(250)},
		},
	}
	require.NoError(t, s.Validate())

	tests := []struct {
		seller, community string
		wantPlatform      int64
		wantCommunity     int64
	}{
		{"anyone", "", 500, 0},
		{"anyone", "guild", 500, 300},
		{"anyone", "premium", 400, 200},
		{"star", "premium", 250, 200},
		{"star", "", 250, 0},
	}

	for _, tt := range tests {
		require.Equal(t, tt.wantPlatform, s.PlatformRate(tt.seller, tt.community), "%s/%s", tt.seller, tt.community)
		require.Equal(t, tt.wantCommunity, s.CommunityRate(tt.community), tt.community)
	}

	require.Equal(t, int64(100), s.TransferRate())

	q, err := s.Quote(10_000, "anyone", "guild")
	require.NoError(t, err)
	require.Equal(t, int64(9_200), q.Net)
}

func TestLoadSchedule(t *testing.T) {
	t.Parallel()

	defaults := Schedule{PlatformFeeBps: 500}

	s, err := LoadSchedule("", defaults)
	require.NoError(t, err)
	require.Equal(t, int64(500), s.PlatformFeeBps)

	dir := t.TempDir()

	good := filepath.Join(dir, "fees.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
transfer_fee_bps: 150
communities:
  guild-1:
    community_fee_bps: 300
sellers:
  star:
    platform_fee_bps: 250
`), 0o600))

	s, err = LoadSchedule(good, defaults)
	require.NoError(t, err)
	require.Equal(t, int64(500), s.PlatformFeeBps, "unset keys keep defaults")
	require.Equal(t, int64(150), s.TransferRate())
	require.Equal(t, int64(300), s.CommunityRate("guild-1"))
	require.Equal(t, int64(250), s.PlatformRate("star", "guild-1"))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
platform_fee_bps: 8000
communities:
  greedy:
    community_fee_bps: 3000
`), 0o600))

	_, err = LoadSchedule(bad, defaults)
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = LoadSchedule(filepath.Join(dir, "missing.yaml"), defaults)
	require.Error(t, err)
}

func TestSchedule_Validate_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		s       Schedule
		wantErr bool
	}{
		{
			name: "seller_override_fits_every_community",
			s: Schedule{
				Communities: map[string]CommunityRates{"a": {CommunityFeeBps: 300}, "b": {CommunityFeeBps: 1_000}},
				Sellers:     map[string]SellerRates{"star": {PlatformFeeBps: ptr(9_000)}},
			},
		},
		{
			name: "seller_override_plus_community_exceeds_scale",
			s: Schedule{
				Communities: map[string]CommunityRates{"guild": {CommunityFeeBps: 300}},
				Sellers:     map[string]SellerRates{"greedy": {PlatformFeeBps: ptr(9_900)}},
			},
			wantErr: true,
		},
		{
			name: "community_override_plus_community_exceeds_scale",
			s: Schedule{
				Communities: map[string]CommunityRates{"guild": {PlatformFeeBps: ptr(9_800), CommunityFeeBps: 300}},
			},
			wantErr: true,
		},
		{
			name:    "negative_transfer_rate",
			s:       Schedule{TransferFeeBps: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.s.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	ok := Schedule{
		Communities: map[string]CommunityRates{"a": {CommunityFeeBps: 1_000}},
		Sellers:     map[string]SellerRates{"star": {PlatformFeeBps: ptr(9_000)}},
	}
	_, err := ok.Quote(10_000, "star", "a")
	require.NoError(t, err, "a schedule that validates quotes every seller and community pair")
}
