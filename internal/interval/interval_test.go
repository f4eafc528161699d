package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", New(day("2024-01-01"), dayPtr("2024-02-01")), New(day("2024-03-01"), dayPtr("2024-04-01")), false},
		{"adjacent boundary is exclusive", New(day("2024-01-01"), dayPtr("2024-12-31")), New(day("2024-12-31"), dayPtr("2025-06-01")), false},
		{"partial overlap", New(day("2024-01-01"), dayPtr("2024-12-31")), New(day("2024-06-01"), dayPtr("2025-06-01")), true},
		{"containment", New(day("2024-01-01"), dayPtr("2024-12-31")), New(day("2024-03-01"), dayPtr("2024-04-01")), true},
		{"identical", New(day("2024-01-01"), dayPtr("2024-12-31")), New(day("2024-01-01"), dayPtr("2024-12-31")), true},
		{"open blocks later start", New(day("2024-01-01"), nil), New(day("2025-01-01"), dayPtr("2025-02-01")), true},
		{"open vs earlier closed ending at its start", New(day("2024-01-01"), nil), New(day("2023-01-01"), dayPtr("2024-01-01")), false},
		{"open vs earlier closed crossing its start", New(day("2024-01-01"), nil), New(day("2023-01-01"), dayPtr("2024-01-02")), true},
		{"two open", New(day("2024-01-01"), nil), New(day("2030-01-01"), nil), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Overlaps(tc.a, tc.b))
			require.Equal(t, tc.want, Overlaps(tc.b, tc.a), "overlap must be symmetric")
		})
	}
}

func TestValid(t *testing.T) {
	require.True(t, New(day("2024-01-01"), nil).Valid())
	require.True(t, New(day("2024-01-01"), dayPtr("2024-01-02")).Valid())
	require.False(t, New(day("2024-01-01"), dayPtr("2024-01-01")).Valid())
	require.False(t, New(day("2024-01-02"), dayPtr("2024-01-01")).Valid())
}

func TestContains(t *testing.T) {
	closed := New(day("2024-01-01"), dayPtr("2024-12-31"))
	require.True(t, closed.Contains(day("2024-01-01")))
	require.True(t, closed.Contains(day("2024-12-30")))
	require.False(t, closed.Contains(day("2024-12-31")))
	require.False(t, closed.Contains(day("2023-12-31")))

	open := New(day("2024-01-01"), nil)
	require.True(t, open.Contains(day("2099-01-01")))
	require.False(t, open.Contains(day("2023-12-31")))
}
