package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugifyTaskName(t *testing.T) {
	cases := []struct {
		name        string
		description string
		index       int
		want        string
	}{
		{"plain", "Check DB health", 1, "check-db-health"},
		{"punctuation stripped", "What's wrong with the cache?!", 2, "whats-wrong-with-the-cache"},
		{"collapses whitespace", "a   b\tc", 3, "a-b-c"},
		{"caps at 50 chars", "this description is deliberately much longer than the fifty character cap", 4, "this-description-is-deliberately-much-longer-than"},
		{"empty falls back", "   ", 5, "task-5"},
		{"only punctuation falls back", "!!!", 6, "task-6"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SlugifyTaskName(tc.description, tc.index))
		})
	}
}
