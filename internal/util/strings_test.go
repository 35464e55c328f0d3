package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinOrNone(t *testing.T) {
	assert.Equal(t, "(none)", JoinOrNone(nil))
	assert.Equal(t, "(none)", JoinOrNone([]string{}))
	assert.Equal(t, "vm1", JoinOrNone([]string{"vm1"}))
	assert.Equal(t, "vm1, vm2", JoinOrNone([]string{"vm1", "vm2"}))
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "hosts"},
		{1, "host"},
		{2, "hosts"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Pluralize(tt.count, "host", "hosts"))
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"vm1", "vm1", 0},
		{"vm1", "vm2", 1},
		{"test", "tset", 2},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		t.Run(tt.a+"->"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevenshteinDistance(tt.a, tt.b))
		})
	}
}

func TestSuggestSimilar(t *testing.T) {
	candidates := []string{"monitor-1", "monitor-2", "builder", "db"}

	tests := []struct {
		name     string
		input    string
		limit    int
		expected []string
	}{
		{"typo suggests both monitors", "monitr-1", 3, []string{"monitor-1", "monitor-2"}},
		{"limit caps results", "monitr-1", 1, []string{"monitor-1"}},
		{"case insensitive", "BUILDER", 3, []string{"builder"}},
		{"no close match", "webserver", 3, nil},
		{"empty input", "", 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SuggestSimilar(tt.input, candidates, tt.limit))
		})
	}

	assert.Nil(t, SuggestSimilar("vm1", nil, 3))
}
