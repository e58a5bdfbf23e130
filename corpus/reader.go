// Package corpus turns tokenized text into the trigram streams consumed by
// the language models.
package corpus

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Trigram is a token z (index 2) with its two-token left context (x, y).
type Trigram [3]string

// Source opens a fresh pass over a corpus. Every call to Open restarts
// from the beginning.
type Source interface {
	Open() (io.ReadCloser, error)
}

// File is a corpus stored on disk.
type File string

// Open implements Source.
func (f File) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

// Text is an in-memory corpus.
type Text string

// Open implements Source.
func (t Text) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(t))), nil
}

// Reader iterates over the trigrams of one pass, reading the corpus lazily.
//
//	r, err := corpus.Open(src, vocab)
//	for r.Next() {
//		t := r.Trigram()
//	}
//	err = r.Err()
type Reader struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	vocab   *Vocab

	line []string // remaining tokens of the current line
	eos  bool     // EOS still owed for the current line
	x, y string
	cur  Trigram
	err  error
}

// Open starts a pass over src. Tokens not in vocab are replaced with
// OOV; a nil vocab leaves tokens untouched.
func Open(src Source, vocab *Vocab) (*Reader, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	return &Reader{
		rc:      rc,
		scanner: scanner,
		vocab:   vocab,
		x:       BOS,
		y:       BOS,
	}, nil
}

// Next advances to the next trigram.
func (r *Reader) Next() bool {
	z, ok := r.nextToken()
	if !ok {
		return false
	}
	r.cur = Trigram{r.x, r.y, z}
	if z == EOS {
		r.x, r.y = BOS, BOS
	} else {
		r.x, r.y = r.y, z
	}
	return true
}

func (r *Reader) nextToken() (string, bool) {
	for {
		if len(r.line) > 0 {
			tok := r.line[0]
			r.line = r.line[1:]
			if r.vocab != nil && !r.vocab.Contains(tok) {
				tok = OOV
			}
			return tok, true
		}
		if r.eos {
			r.eos = false
			return EOS, true
		}
		if r.err != nil || !r.scanner.Scan() {
			if r.err == nil {
				r.err = r.scanner.Err()
			}
			return "", false
		}
		r.line = strings.Fields(r.scanner.Text())
		r.eos = true
	}
}

// Trigram returns the trigram produced by the last call to Next.
func (r *Reader) Trigram() Trigram { return r.cur }

// Err returns the first read error, if any.
func (r *Reader) Err() error { return r.err }

// Close releases the underlying corpus.
func (r *Reader) Close() error { return r.rc.Close() }

// ReadTrigrams materializes one full pass over src.
func ReadTrigrams(src Source, vocab *Vocab) ([]Trigram, error) {
	r, err := Open(src, vocab)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var out []Trigram
	for r.Next() {
		out = append(out, r.Trigram())
	}
	return out, r.Err()
}

// CountTokens returns the number of tokens in src, EOS markers included.
// This equals the number of trigrams in one pass.
func CountTokens(src Source) (int, error) {
	r, err := Open(src, nil)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	n := 0
	for r.Next() {
		n++
	}
	return n, r.Err()
}
