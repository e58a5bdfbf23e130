package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ieee0824/trigramlm/internal/errs"
)

// Special word types.
const (
	BOS = "BOS" // context-only marker at the beginning of a sequence
	EOS = "EOS" // observed token at the end of every line
	OOV = "OOV" // stands in for every out-of-vocabulary token
	OOL = "OOL" // lexicon row used for words without an embedding
)

// ErrMalformedInput is returned when a vocabulary file has the wrong shape.
var ErrMalformedInput = errs.ErrMalformedInput

// Vocab is an immutable set of word types with a deterministic order.
// EOS and OOV are always members; BOS never is.
type Vocab struct {
	words []string
	index map[string]int
}

// NewVocab builds a vocabulary from words. Duplicates collapse and
// the markers EOS and OOV are added.
func NewVocab(words []string) *Vocab {
	set := make(map[string]struct{}, len(words)+2)
	for _, w := range words {
		if w == BOS {
			continue
		}
		set[w] = struct{}{}
	}
	set[EOS] = struct{}{}
	set[OOV] = struct{}{}

	v := &Vocab{
		words: make([]string, 0, len(set)),
		index: make(map[string]int, len(set)),
	}
	for w := range set {
		v.words = append(v.words, w)
	}
	sort.Strings(v.words)
	for i, w := range v.words {
		v.index[w] = i
	}
	return v
}

// LoadVocab reads one word per line. Blank lines are ignored; a line
// holding more than one whitespace-separated field is rejected.
func LoadVocab(r io.Reader) (*Vocab, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	var words []string
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		if strings.ContainsAny(word, " \t\v\f\r") {
			return nil, fmt.Errorf("vocab line %d: %q is not a single word: %w", lineNum, word, ErrMalformedInput)
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewVocab(words), nil
}

// LoadVocabFile is LoadVocab on a file path.
func LoadVocabFile(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadVocab(f)
}

// BuildVocab collects the word types of src that occur at least
// minCount times.
func BuildVocab(src Source, minCount int) (*Vocab, error) {
	r, err := Open(src, nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	counts := make(map[string]int)
	for r.Next() {
		counts[r.Trigram()[2]]++
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	words := make([]string, 0, len(counts))
	for w, n := range counts {
		if n >= minCount {
			words = append(words, w)
		}
	}
	return NewVocab(words), nil
}

// Size returns the number of word types, markers included.
func (v *Vocab) Size() int { return len(v.words) }

// Contains reports whether w is a member.
func (v *Vocab) Contains(w string) bool {
	_, ok := v.index[w]
	return ok
}

// Index returns the position of w in Words.
func (v *Vocab) Index(w string) (int, bool) {
	i, ok := v.index[w]
	return i, ok
}

// Words returns the members in sorted order. The slice must not be modified.
func (v *Vocab) Words() []string { return v.words }

// Map returns w if it is a member and OOV otherwise. BOS passes
// through unchanged since it is a valid context.
func (v *Vocab) Map(w string) string {
	if w == BOS || v.Contains(w) {
		return w
	}
	return OOV
}
