package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOp_String(t *testing.T) {
	tests := []struct {
		op       Op
		expected string
	}{
		{Modified, "MODIFIED"},
		{Created, "CREATED"},
		{Deleted, "DELETED"},
		{Renamed, "RENAMED"},
		{Created | Deleted, "CREATED|DELETED"},
		{Modified | Renamed, "MODIFIED|RENAMED"},
		{0, "[no events]"},
	}

	for _, td := range tests {
		require.Equal(t, td.expected, td.op.String())
	}
}

func TestOp_Has(t *testing.T) {
	op := Created | Renamed

	require.True(t, op.Has(Created))
	require.True(t, op.Has(Renamed))
	require.False(t, op.Has(Modified))
	require.False(t, op.Has(Deleted))

	e := Event{Name: "a.txt", Op: op}
	require.True(t, e.Has(Created))
	require.False(t, e.Has(Deleted))
}

func TestOp_Values(t *testing.T) {
	// wire values, shared with the notify protocol
	require.Equal(t, Op(1), Modified)
	require.Equal(t, Op(2), Created)
	require.Equal(t, Op(4), Deleted)
	require.Equal(t, Op(8), Renamed)
}

func TestTruncateName(t *testing.T) {
	short := "dir/file.txt"
	require.Equal(t, short, TruncateName(short))

	long := strings.Repeat("x", MaxName+100)
	got := TruncateName(long)
	require.Len(t, got, MaxName)
	require.Equal(t, long[:MaxName], got)
}
