// Package lexicon holds word embeddings loaded from a flat lexicon file.
package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"

	"github.com/ieee0824/trigramlm/corpus"
	"github.com/ieee0824/trigramlm/internal/errs"
)

// ErrMalformedInput is returned when a lexicon file has the wrong shape.
var ErrMalformedInput = errs.ErrMalformedInput

// Table maps words to fixed-length vectors. Row i of the embedding
// matrix belongs to Words()[i]. A Table is immutable once built.
type Table struct {
	words   []string       // row -> word
	index   map[string]int // word -> row
	vectors *mat.Dense     // [len(words) × dim]
	ool     int            // row of the OOL fallback
}

// NewTable builds a table from parallel word and vector lists. All vectors
// must have the same non-zero length and words must include OOL.
func NewTable(words []string, vectors [][]float64) (*Table, error) {
	if len(words) != len(vectors) {
		return nil, fmt.Errorf("lexicon: %d words but %d vectors: %w", len(words), len(vectors), ErrMalformedInput)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("lexicon: no entries: %w", ErrMalformedInput)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("lexicon: zero-dimensional vectors: %w", ErrMalformedInput)
	}

	t := &Table{
		words:   make([]string, len(words)),
		index:   make(map[string]int, len(words)),
		vectors: mat.NewDense(len(words), dim, nil),
	}
	copy(t.words, words)
	for i, w := range words {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("lexicon: %q has %d components, want %d: %w", w, len(vectors[i]), dim, ErrMalformedInput)
		}
		if _, dup := t.index[w]; dup {
			return nil, fmt.Errorf("lexicon: duplicate word %q: %w", w, ErrMalformedInput)
		}
		t.index[w] = i
		t.vectors.SetRow(i, vectors[i])
	}

	ool, ok := t.index[corpus.OOL]
	if !ok {
		return nil, fmt.Errorf("lexicon: missing %s row: %w", corpus.OOL, ErrMalformedInput)
	}
	t.ool = ool
	return t, nil
}

// Load reads a lexicon. The first line is a header and is skipped; every
// other line is word<TAB>v1<TAB>...<TAB>vD. D is taken from the first
// data row and must be the same on every row.
func Load(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("lexicon: missing header line: %w", ErrMalformedInput)
	}

	var words []string
	var vectors [][]float64
	dim := -1
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: expected word and vector separated by tabs: %w", lineNum, ErrMalformedInput)
		}
		if dim < 0 {
			dim = len(parts) - 1
		}
		if len(parts)-1 != dim {
			return nil, fmt.Errorf("line %d: expected %d components, got %d: %w", lineNum, dim, len(parts)-1, ErrMalformedInput)
		}

		vec := make([]float64, dim)
		for i, s := range parts[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: component %d: %v: %w", lineNum, i+1, err, ErrMalformedInput)
			}
			vec[i] = v
		}
		words = append(words, parts[0])
		vectors = append(vectors, vec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewTable(words, vectors)
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Dim returns the vector length.
func (t *Table) Dim() int {
	_, c := t.vectors.Dims()
	return c
}

// Len returns the number of rows, OOL included.
func (t *Table) Len() int { return len(t.words) }

// Has reports whether word has its own row.
func (t *Table) Has(word string) bool {
	_, ok := t.index[word]
	return ok
}

// Words returns the row labels. The slice must not be modified.
func (t *Table) Words() []string { return t.words }

// Vector returns the embedding of word. OOV and words without a row get
// the OOL vector. The returned slice aliases the table and must not be
// modified.
func (t *Table) Vector(word string) []float64 {
	return t.vectors.RawRowView(t.Row(word))
}

// Row returns the matrix row used for word, resolving fallbacks.
func (t *Table) Row(word string) int {
	if word == corpus.OOV {
		return t.ool
	}
	if i, ok := t.index[word]; ok {
		return i
	}
	return t.ool
}

// Matrix returns the embedding matrix. It must not be modified.
func (t *Table) Matrix() mat.Matrix { return t.vectors }

// Neighbor is one result of Similar.
type Neighbor struct {
	Word       string
	Similarity float64
}

// Similar returns the k lexicon words whose vectors have the highest cosine
// similarity to word's vector, most similar first. The query word itself is
// excluded; zero vectors are skipped.
func (t *Table) Similar(word string, k int) []Neighbor {
	if k <= 0 {
		return nil
	}
	query := t.Vector(word)
	if vek.Norm(query) == 0 {
		return nil
	}
	self := t.Row(word)

	out := make([]Neighbor, 0, len(t.words))
	for i, w := range t.words {
		if i == self {
			continue
		}
		row := t.vectors.RawRowView(i)
		if vek.Norm(row) == 0 {
			continue
		}
		out = append(out, Neighbor{Word: w, Similarity: vek.CosineSimilarity(query, row)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	return out
}
