package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"people", "`people`"},
		{"sanity_id", "`sanity_id`"},
		{"match", "`match`"},
		{"weird`name", "`weird``name`"},
		{"", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdentifier(tt.input))
		})
	}
}

func TestQuoteIdentifierSafe(t *testing.T) {
	q, err := QuoteIdentifierSafe("webhook_logs")
	require.NoError(t, err)
	assert.Equal(t, "`webhook_logs`", q)

	for _, bad := range []string{"people; DROP TABLE people", "a-b", "", "name`"} {
		_, err := QuoteIdentifierSafe(bad)
		var target *InvalidIdentifierError
		assert.ErrorAs(t, err, &target, bad)
	}
}

func TestQuoteIdentifiers(t *testing.T) {
	got, err := QuoteIdentifiers([]string{"first_name", "last_name"})
	require.NoError(t, err)
	assert.Equal(t, "`first_name`, `last_name`", got)

	_, err = QuoteIdentifiers([]string{"ok", "not ok"})
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}
