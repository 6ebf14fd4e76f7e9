package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smorales/jobharvester/internal/ledger"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore(ledger.NewJobs, ledger.Links)
	ctx := context.Background()

	rows, err := s.ReadAllRows(ctx, ledger.NewJobs)
	require.NoError(t, err)
	require.Empty(t, rows)

	header := ledger.Row{"Title", "Company"}
	require.NoError(t, s.AppendRows(ctx, ledger.NewJobs, []ledger.Row{header}))
	require.NoError(t, s.AppendRows(ctx, ledger.NewJobs, []ledger.Row{{"a", "b"}, {"c", "d"}}))

	rows, err = s.ReadAllRows(ctx, ledger.NewJobs)
	require.NoError(t, err)
	require.Equal(t, []ledger.Row{header, {"a", "b"}, {"c", "d"}}, rows, "append preserves order")

	require.NoError(t, s.Clear(ctx, ledger.NewJobs))
	rows, err = s.ReadAllRows(ctx, ledger.NewJobs)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestStoreUnknownLedger(t *testing.T) {
	t.Parallel()

	s := NewStore(ledger.NewJobs)
	ctx := context.Background()

	_, err := s.ReadAllRows(ctx, ledger.Control)
	require.Error(t, err)
	require.Error(t, s.AppendRows(ctx, ledger.Control, []ledger.Row{{"x"}}))
	require.Error(t, s.Clear(ctx, ledger.Control))
}

func TestStoreReadsAreCopies(t *testing.T) {
	t.Parallel()

	s := NewStore(ledger.Links)
	ctx := context.Background()
	require.NoError(t, s.AppendRows(ctx, ledger.Links, []ledger.Row{{"original"}}))

	rows, err := s.ReadAllRows(ctx, ledger.Links)
	require.NoError(t, err)
	rows[0][0] = "mutated"

	again, err := s.ReadAllRows(ctx, ledger.Links)
	require.NoError(t, err)
	require.Equal(t, "original", again[0][0])
}
