package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
)

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Alice", "Alice"},
		{"trims whitespace", "  Bob  ", "Bob"},
		{"strips nul bytes", "Carol\x00\x00", "Carol"},
		{"strips control chars", "Da\x01ve\x7f", "Dave"},
		{"escapes asterisk", "C*arl", "C\\*arl"},
		{"escapes underscore", "snake_case", "snake\\_case"},
		{"escapes backtick", "tick`er", "tick\\`er"},
		{"escapes pipe and tilde", "a|b~c", "a\\|b\\~c"},
		{"escapes mention", "@everyone", "\\@everyone"},
		{"only control chars", "\x00\x01\x02", ""},
		{"only whitespace", "   ", ""},
		{"unicode survives", "Мария", "Мария"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, domain.SanitizeName(tt.in))
		})
	}
}

func TestDedupNames(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		[]string{"Alice", "Bob", "Carol"},
		domain.DedupNames([]string{"Alice", "Bob", "Alice", "", "Carol", "Bob"}))

	require.Empty(t, domain.DedupNames(nil))
	require.Empty(t, domain.DedupNames([]string{"", ""}))
}

func TestSessionDuration(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	require.Equal(t, 0, domain.SessionDuration(base, base.Add(59*time.Second)))
	require.Equal(t, 1, domain.SessionDuration(base, base.Add(time.Minute)))
	require.Equal(t, 93, domain.SessionDuration(base, base.Add(93*time.Minute+59*time.Second)))
	// Clock skew must never produce a negative duration
	require.Equal(t, 0, domain.SessionDuration(base, base.Add(-time.Minute)))
}

func TestFormatMinutes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0m", domain.FormatMinutes(0))
	require.Equal(t, "45m", domain.FormatMinutes(45))
	require.Equal(t, "1h 0m", domain.FormatMinutes(60))
	require.Equal(t, "2h 5m", domain.FormatMinutes(125))
	require.Equal(t, "0m", domain.FormatMinutes(-3))
}
