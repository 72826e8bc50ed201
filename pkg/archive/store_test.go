package archive

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dheena017/multimind/pkg/synthesis"
)

func TestStoreResultRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	result := synthesis.SynthesisResult{
		Query:          "why is the sky blue",
		Primary:        "Rayleigh scattering.",
		Confidence:     0.61,
		ConsensusLevel: synthesis.ConsensusModerate,
		Sources:        []synthesis.Source{{Provider: "google", Model: "gemini"}},
	}
	ref, reportRef, err := s.StoreResult(result, "## Answer\n\nRayleigh scattering.\n")
	require.NoError(t, err)
	assert.Equal(t, KindResult, ref.Kind)
	assert.Len(t, ref.SHA256, 64)
	require.NotNil(t, reportRef)
	assert.Equal(t, KindReport, reportRef.Kind)

	loaded, err := s.LoadResult(ref)
	require.NoError(t, err)
	assert.Equal(t, result.Primary, loaded.Primary)
	assert.Equal(t, result.Sources, loaded.Sources)

	report, err := os.ReadFile(s.ObjectPath(*reportRef))
	require.NoError(t, err)
	assert.Contains(t, string(report), "Rayleigh")

	index, err := s.Index()
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, ref, index[0].Ref)
	assert.Equal(t, "why is the sky blue", index[0].Query)
}

func TestStoreObjectIsContentAddressed(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	a, err := s.StoreObject(map[string]int{"x": 1}, KindResult)
	require.NoError(t, err)
	b, err := s.StoreObject(map[string]int{"x": 1}, KindResult)
	require.NoError(t, err)
	c, err := s.StoreObject(map[string]int{"x": 2}, KindResult)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.SHA256, c.SHA256)
	assert.FileExists(t, s.ObjectPath(a))
}

func TestIndexEmptyAndNoReport(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	entries, err := s.Index()
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, reportRef, err := s.StoreResult(synthesis.SynthesisResult{Query: "q"}, "")
	require.NoError(t, err)
	assert.Nil(t, reportRef)
}
