package lexicon

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/trigramlm/corpus"
)

const testLexicon = "3 3\n" +
	"cat\t1\t0\t0\n" +
	"dog\t0.9\t0.1\t0\n" +
	"OOL\t0\t0\t1\n"

func TestLoad(t *testing.T) {
	tbl, err := Load(strings.NewReader(testLexicon))
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Dim())
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"cat", "dog", "OOL"}, tbl.Words())
	assert.Equal(t, []float64{0.9, 0.1, 0}, tbl.Vector("dog"))
	assert.True(t, tbl.Has("cat"))
	assert.False(t, tbl.Has("fish"))
}

func TestVectorFallsBackToOOL(t *testing.T) {
	tbl, err := Load(strings.NewReader(testLexicon))
	require.NoError(t, err)

	ool := []float64{0, 0, 1}
	vocab := corpus.NewVocab([]string{"cat", "fish", "bird"})
	for _, w := range vocab.Words() {
		if w == "cat" {
			continue
		}
		assert.Equal(t, ool, tbl.Vector(w), "word %q", w)
	}
	assert.Equal(t, ool, tbl.Vector(corpus.OOV))
}

func TestVectorOOVEvenWhenListed(t *testing.T) {
	lex := "h\n" +
		"OOV\t5\t5\n" +
		"OOL\t1\t2\n"
	tbl, err := Load(strings.NewReader(lex))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, tbl.Vector(corpus.OOV))
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "header"},
		{"wrong column count", "h\na\t1\t2\nb\t1\n", "line 3"},
		{"non numeric", "h\na\t1\tx\n", "line 2"},
		{"no tabs", "h\na 1 2\n", "line 2"},
		{"missing OOL", "h\na\t1\t2\n", "OOL"},
		{"duplicate word", "h\na\t1\na\t2\nOOL\t0\n", "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedInput), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lex.txt")
	require.NoError(t, os.WriteFile(path, []byte(testLexicon), 0o644))

	tbl, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
}

func TestSimilar(t *testing.T) {
	tbl, err := Load(strings.NewReader(testLexicon))
	require.NoError(t, err)

	got := tbl.Similar("cat", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "dog", got[0].Word)
	want := 0.9 / math.Sqrt(0.82)
	assert.InDelta(t, want, got[0].Similarity, 1e-9)
	assert.Equal(t, "OOL", got[1].Word)
	assert.InDelta(t, 0, got[1].Similarity, 1e-12)

	assert.Nil(t, tbl.Similar("cat", 0))
}

func TestNewTable_LengthMismatch(t *testing.T) {
	_, err := NewTable([]string{"OOL"}, nil)
	assert.True(t, errors.Is(err, ErrMalformedInput))
}
