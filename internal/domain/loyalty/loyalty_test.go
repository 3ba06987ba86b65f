package loyalty

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedemptionDiscount(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		balance   int
		remaining decimal.Decimal
		want      decimal.Decimal
		wantErr   func(t *testing.T, err error)
	}{
		{
			name:      "ten points are worth a thousand",
			requested: 10,
			balance:   50,
			remaining: decimal.NewFromInt(8100),
			want:      decimal.NewFromInt(1000),
		},
		{
			name:      "zero requested is zero discount",
			requested: 0,
			balance:   50,
			remaining: decimal.NewFromInt(8100),
			want:      decimal.Zero,
		},
		{
			name:      "clamped to remaining subtotal",
			requested: 50,
			balance:   50,
			remaining: decimal.NewFromInt(3000),
			want:      decimal.NewFromInt(3000),
		},
		{
			name:      "negative request",
			requested: -1,
			balance:   50,
			remaining: decimal.NewFromInt(8100),
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNegativePoints)
			},
		},
		{
			name:      "request beyond balance",
			requested: 60,
			balance:   50,
			remaining: decimal.NewFromInt(8100),
			wantErr: func(t *testing.T, err error) {
				var insufficient *InsufficientPointsError
				require.ErrorAs(t, err, &insufficient)
				assert.Equal(t, 60, insufficient.Requested)
				assert.Equal(t, 50, insufficient.Balance)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RedemptionDiscount(tt.requested, tt.balance, tt.remaining)
			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "want %s, got %s", tt.want, got)
		})
	}
}

func TestEarned(t *testing.T) {
	tests := []struct {
		net  int64
		want int
	}{
		{net: 0, want: 0},
		{net: 999, want: 0},
		{net: 1000, want: 5},
		{net: 1999, want: 5},
		{net: 2000, want: 10},
		{net: 7100, want: 35},
	}

	for _, tt := range tests {
		got := Earned(decimal.NewFromInt(tt.net))
		assert.Equal(t, tt.want, got, "net %d", tt.net)
	}
}

func TestEarned_NegativeNetIsZero(t *testing.T) {
	assert.Equal(t, 0, Earned(decimal.NewFromInt(-500)))
}

type mockLedgerRepo struct {
	entries []*Entry
	err     error
}

func (m *mockLedgerRepo) Append(_ context.Context, e *Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func TestLedger_RecordAccrual(t *testing.T) {
	fixedNow := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	repo := &mockLedgerRepo{}
	ledger := NewLedger(repo)
	ledger.now = func() time.Time { return fixedNow }

	e, err := ledger.RecordAccrual(context.Background(), "cust-1", "order-1", 35, 10, 50)
	require.NoError(t, err)

	assert.Equal(t, "order-1", e.ID)
	assert.Equal(t, "cust-1", e.CustomerID)
	assert.Equal(t, 25, e.Delta)
	assert.Equal(t, 75, e.Balance)
	assert.Equal(t, fixedNow, e.CreatedAt)

	require.Len(t, repo.entries, 1)
	assert.Same(t, e, repo.entries[0])
}

func TestLedger_RecordAccrualRepoFailure(t *testing.T) {
	repo := &mockLedgerRepo{err: errors.New("connection reset")}
	ledger := NewLedger(repo)

	_, err := ledger.RecordAccrual(context.Background(), "cust-1", "order-1", 5, 0, 0)
	require.Error(t, err)
	assert.Empty(t, repo.entries)
}
