package language

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/ieee0824/trigramlm/corpus"
	"github.com/ieee0824/trigramlm/lexicon"
)

const snapshotVersion = 1

// ModelInfo identifies a saved model.
type ModelInfo struct {
	ID      uuid.UUID
	Family  Family
	Created time.Time
}

// serializedModel is the gob form of every estimator family. Count-based
// families fill Counts; the log-linear family fills the lexicon fields
// and X, Y (row-major, Dim×Dim).
type serializedModel struct {
	Version int
	ID      uuid.UUID
	Created time.Time
	Family  Family
	Vocab   []string

	Lambda float64
	L2     float64
	Counts []countRecord

	LexWords   []string
	LexDim     int
	LexVectors []float64
	X, Y       []float64
}

// Save serializes est to w using gob encoding and returns the identity
// assigned to the snapshot.
func Save(w io.Writer, est Estimator) (ModelInfo, error) {
	sm := serializedModel{
		Version: snapshotVersion,
		ID:      uuid.New(),
		Created: time.Now().UTC(),
		Family:  est.Family(),
		Vocab:   est.Vocab().Words(),
	}

	switch m := est.(type) {
	case *Uniform:
		sm.Counts = m.counts.records()
	case *AddLambda:
		sm.Lambda = m.lambda
		sm.Counts = m.counts.records()
	case *BackoffAddLambda:
		sm.Lambda = m.lambda
		sm.Counts = m.counts.records()
	case *LogLinear:
		sm.L2 = m.l2
		sm.LexWords = m.lex.Words()
		sm.LexDim = m.dim
		sm.LexVectors = make([]float64, 0, len(sm.LexWords)*m.dim)
		for _, w := range sm.LexWords {
			sm.LexVectors = append(sm.LexVectors, m.lex.Vector(w)...)
		}
		sm.X = denseData(m.x)
		sm.Y = denseData(m.y)
	default:
		return ModelInfo{}, fmt.Errorf("save %s model: %w", est.Family(), ErrNotImplemented)
	}

	if err := gob.NewEncoder(w).Encode(sm); err != nil {
		return ModelInfo{}, err
	}
	return ModelInfo{ID: sm.ID, Family: sm.Family, Created: sm.Created}, nil
}

// SaveFile writes est to path.
func SaveFile(path string, est Estimator) (ModelInfo, error) {
	f, err := os.Create(path)
	if err != nil {
		return ModelInfo{}, err
	}
	info, err := Save(f, est)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return info, err
}

// Load deserializes a model written by Save. opts apply to the restored
// estimator as they would to New.
func Load(r io.Reader, opts ...Option) (Estimator, ModelInfo, error) {
	var sm serializedModel
	if err := gob.NewDecoder(r).Decode(&sm); err != nil {
		return nil, ModelInfo{}, fmt.Errorf("decode model: %v: %w", err, ErrMalformedInput)
	}
	if sm.Version != snapshotVersion {
		return nil, ModelInfo{}, fmt.Errorf("model version %d: %w", sm.Version, ErrMalformedInput)
	}
	info := ModelInfo{ID: sm.ID, Family: sm.Family, Created: sm.Created}
	vocab := corpus.NewVocab(sm.Vocab)

	var est Estimator
	switch sm.Family {
	case FamilyUniform, FamilyAddLambda, FamilyBackoffAddLambda:
		counts, err := countsFromRecords(sm.Counts)
		if err != nil {
			return nil, info, err
		}
		e, err := New(sm.Family, vocab, Params{Lambda: sm.Lambda}, opts...)
		if err != nil {
			return nil, info, err
		}
		e.(CountBased).Counts().restore(counts)
		est = e
	case FamilyLogLinear:
		m, err := logLinearFromSnapshot(&sm, vocab, opts)
		if err != nil {
			return nil, info, err
		}
		est = m
	default:
		return nil, info, fmt.Errorf("model family %q: %w", sm.Family, ErrNotImplemented)
	}
	return est, info, nil
}

// LoadFile reads a model from path.
func LoadFile(path string, opts ...Option) (Estimator, ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ModelInfo{}, err
	}
	defer f.Close()
	return Load(f, opts...)
}

func logLinearFromSnapshot(sm *serializedModel, vocab *corpus.Vocab, opts []Option) (*LogLinear, error) {
	d := sm.LexDim
	if d < 1 || len(sm.LexVectors) != len(sm.LexWords)*d {
		return nil, fmt.Errorf("lexicon of %d words, dim %d, %d values: %w",
			len(sm.LexWords), d, len(sm.LexVectors), ErrMalformedInput)
	}
	if len(sm.X) != d*d || len(sm.Y) != d*d {
		return nil, fmt.Errorf("parameter size %d/%d for dim %d: %w", len(sm.X), len(sm.Y), d, ErrMalformedInput)
	}
	vectors := make([][]float64, len(sm.LexWords))
	for i := range vectors {
		vectors[i] = sm.LexVectors[i*d : (i+1)*d]
	}
	lex, err := lexicon.NewTable(sm.LexWords, vectors)
	if err != nil {
		return nil, err
	}
	m, err := NewLogLinear(vocab, lex, sm.L2, opts...)
	if err != nil {
		return nil, err
	}
	copy(m.x.RawMatrix().Data, sm.X)
	copy(m.y.RawMatrix().Data, sm.Y)
	m.ParamsUpdated()
	return m, nil
}

// denseData copies a matrix in row-major order.
func denseData(a mat.Matrix) []float64 {
	r, c := a.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, a.At(i, j))
		}
	}
	return out
}
