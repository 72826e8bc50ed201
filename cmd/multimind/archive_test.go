package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dheena017/multimind/pkg/archive"
)

func TestFindArchived(t *testing.T) {
	entries := []archive.IndexEntry{
		{Ref: archive.Ref{Kind: archive.KindResult, SHA256: "abc123"}, Query: "one"},
		{Ref: archive.Ref{Kind: archive.KindResult, SHA256: "abd456"}, Query: "two"},
		{Ref: archive.Ref{Kind: archive.KindResult, SHA256: "abc123"}, Query: "one again"},
	}

	ref, err := findArchived(entries, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", ref.SHA256)

	_, err = findArchived(entries, "ab")
	assert.ErrorContains(t, err, "matches 2")

	_, err = findArchived(entries, "zz")
	assert.ErrorContains(t, err, "no archived result")
}

func TestTruncateAndShortID(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "0123abcd", shortID("0123abcd-ffff"))
	assert.Equal(t, "abc", shortID("abc"))
}
