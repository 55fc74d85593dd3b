package vocab

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"panadol", "panadol", 0},
		{"augmentn", "augmentin", 1},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"Augmentin", "augmentin", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
		})
	}
}

func TestDistance_IdentityAndSymmetry(t *testing.T) {
	words := []string{"", "a", "Panadol", "Cataflam", "Spasmo-Digestin", "xyz", "مضاد"}
	for _, a := range words {
		assert.Equal(t, 0, Distance(a, a), "distance(%q, %q)", a, a)
		for _, b := range words {
			assert.Equal(t, Distance(a, b), Distance(b, a), "symmetry for %q / %q", a, b)
		}
	}
}

func TestCorrector_Threshold(t *testing.T) {
	c := NewCorrector(New([]string{"Augmentin"}), nil)

	got, changed := c.Correct("Augmentn")
	assert.Equal(t, "Augmentin", got)
	assert.True(t, changed)

	got, changed = c.Correct("Xyzzyx")
	assert.Equal(t, "Xyzzyx", got)
	assert.False(t, changed)
}

func TestCorrector_ExactHitKeepsInputCasing(t *testing.T) {
	c := NewCorrector(New([]string{"Augmentin", "Panadol"}), nil)

	for _, in := range []string{"augmentin", "PANADOL", "Panadol"} {
		got, changed := c.Correct(in)
		assert.Equal(t, in, got)
		assert.False(t, changed)
	}
}

func TestCorrector_MatchUsesVocabularyCasing(t *testing.T) {
	c := NewCorrector(New([]string{"Cataflam"}), nil)

	got, changed := c.Correct("cataflan")
	assert.Equal(t, "Cataflam", got)
	assert.True(t, changed)
}

func TestCorrector_ShortNamesNeverCorrect(t *testing.T) {
	// four runes: bound is 0.8, so a single edit is rejected
	c := NewCorrector(New([]string{"Curam"}), nil)

	got, changed := c.Correct("Cura")
	assert.Equal(t, "Cura", got)
	assert.False(t, changed)
}

func TestCorrector_LongNamesAllowTwoEdits(t *testing.T) {
	c := NewCorrector(New([]string{"Visceralgine"}), nil)

	got, changed := c.Correct("Viseralgin")
	assert.Equal(t, "Visceralgine", got)
	assert.True(t, changed)

	got, changed = c.Correct("Vseralgn")
	assert.Equal(t, "Vseralgn", got)
	assert.False(t, changed)
}

func TestCorrector_TiesPickEarliestEntry(t *testing.T) {
	c := NewCorrector(New([]string{"Flumox", "Flumix"}), nil)

	got, changed := c.Correct("Flumax")
	assert.Equal(t, "Flumox", got)
	assert.True(t, changed)
}

func TestCorrector_BlankAndEmptyVocabulary(t *testing.T) {
	c := NewCorrector(New([]string{"Panadol"}), nil)
	for _, in := range []string{"", "   ", "\t"} {
		got, changed := c.Correct(in)
		assert.Equal(t, in, got)
		assert.False(t, changed)
	}

	noop := NewCorrector(Empty(), nil)
	got, changed := noop.Correct("Panadl")
	assert.Equal(t, "Panadl", got)
	assert.False(t, changed)

	nilVocab := NewCorrector(nil, nil)
	got, changed = nilVocab.Correct("Panadl")
	assert.Equal(t, "Panadl", got)
	assert.False(t, changed)
}

func TestCorrector_Idempotent(t *testing.T) {
	v := New([]string{"Augmentin", "Panadol", "Cataflam", "Nexium", "Gast-Reg", "Spasmo-Digestin"})
	c := NewCorrector(v, nil)

	inputs := []string{"Augmentn", "panadl", "CATAFLAM", "Nexum", "GastReg", "Spasmo Digestin", "Xyzzyx", "", "a"}
	for _, in := range inputs {
		once, _ := c.Correct(in)
		twice, changed := c.Correct(once)
		assert.Equal(t, once, twice, "correct(correct(%q))", in)
		assert.False(t, changed, "second pass over %q should not change", in)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads ordered names", func(t *testing.T) {
		path := filepath.Join(dir, "drugs.json")
		require.NoError(t, os.WriteFile(path, []byte(`["Panadol","Augmentin","Cetal"]`), 0o644))

		v, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Panadol", "Augmentin", "Cetal"}, v.Names())
		assert.True(t, v.ContainsFold("cetal"))
	})

	t.Run("null is empty", func(t *testing.T) {
		path := filepath.Join(dir, "null.json")
		require.NoError(t, os.WriteFile(path, []byte(`null`), 0o644))

		v, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 0, v.Len())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"drugs":`), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})
}

func TestLoadOrEmpty(t *testing.T) {
	v, err := LoadOrEmpty(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())

	v, err = LoadOrEmpty("", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())
}

func TestVocabulary_NamesIsACopy(t *testing.T) {
	src := []string{"Panadol"}
	v := New(src)
	src[0] = "Changed"

	names := v.Names()
	names[0] = "Mutated"
	assert.Equal(t, []string{"Panadol"}, v.Names())
}
