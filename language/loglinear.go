package language

import (
	"fmt"
	"log/slog"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ieee0824/trigramlm/corpus"
	"github.com/ieee0824/trigramlm/lexicon"
)

const defaultNormalizerCacheSize = 4096

// LogLinear is a log-linear trigram model over word embeddings:
//
//	score(x,y,z) = e(x)ᵀ X e(z) + e(y)ᵀ Y e(z)
//	p(z | x,y)   = exp(score(x,y,z)) / Σ_z' exp(score(x,y,z'))
//
// e(w) is the lexicon vector of w, or the OOL vector when w is OOV or has
// no lexicon row. X and Y are square and start at zero; only the Trainer
// changes them. LogLinear is not safe for concurrent use.
type LogLinear struct {
	vocab  *corpus.Vocab
	lex    *lexicon.Table
	l2     float64
	dim    int
	logger *slog.Logger

	x, y *mat.Dense // [dim × dim]
	v    *mat.Dense // [|V| × dim], row i embeds vocab.Words()[i]

	// log-normalizers keyed by the lexicon rows of (x, y)
	norms *lru.Cache[[2]int, float64]
}

// NewLogLinear creates a log-linear model with zero parameters. l2 is the
// regularization strength used by the Trainer and must be non-negative.
func NewLogLinear(vocab *corpus.Vocab, lex *lexicon.Table, l2 float64, opts ...Option) (*LogLinear, error) {
	if l2 < 0 || math.IsNaN(l2) {
		return nil, fmt.Errorf("l2 strength %v must be non-negative: %w", l2, ErrInvalidParameter)
	}
	if lex == nil {
		return nil, fmt.Errorf("log-linear model needs a lexicon: %w", ErrInvalidParameter)
	}
	s := defaultSettings()
	for _, o := range opts {
		o(&s)
	}

	dim := lex.Dim()
	m := &LogLinear{
		vocab:  vocab,
		lex:    lex,
		l2:     l2,
		dim:    dim,
		logger: s.logger,
		x:      mat.NewDense(dim, dim, nil),
		y:      mat.NewDense(dim, dim, nil),
		v:      mat.NewDense(vocab.Size(), dim, nil),
	}
	for i, w := range vocab.Words() {
		m.v.SetRow(i, lex.Vector(w))
	}
	if s.cacheSize > 0 {
		cache, err := lru.New[[2]int, float64](s.cacheSize)
		if err != nil {
			return nil, err
		}
		m.norms = cache
	}
	return m, nil
}

func (m *LogLinear) Family() Family { return FamilyLogLinear }

func (m *LogLinear) Vocab() *corpus.Vocab { return m.vocab }

// Lexicon returns the embedding table.
func (m *LogLinear) Lexicon() *lexicon.Table { return m.lex }

// Dim returns the embedding dimension.
func (m *LogLinear) Dim() int { return m.dim }

// Prob returns p(z | x,y).
func (m *LogLinear) Prob(x, y, z string) float64 { return math.Exp(m.LogProb(x, y, z)) }

// LogProb returns log p(z | x,y). The normalizer is one product of the
// vocabulary embedding matrix with the context vector followed by a
// stable log-sum-exp.
func (m *LogLinear) LogProb(x, y, z string) float64 {
	u := m.contextVector(x, y)
	ez := mat.NewVecDense(m.dim, m.lex.Vector(z))
	return mat.Dot(u, ez) - m.logNormalizer(x, y, u)
}

// contextVector returns u = Xᵀe(x) + Yᵀe(y), so that score(x,y,z) = uᵀe(z).
func (m *LogLinear) contextVector(x, y string) *mat.VecDense {
	ex := mat.NewVecDense(m.dim, m.lex.Vector(x))
	ey := mat.NewVecDense(m.dim, m.lex.Vector(y))

	u := mat.NewVecDense(m.dim, nil)
	u.MulVec(m.x.T(), ex)
	var uy mat.VecDense
	uy.MulVec(m.y.T(), ey)
	u.AddVec(u, &uy)
	return u
}

func (m *LogLinear) logNormalizer(x, y string, u *mat.VecDense) float64 {
	key := [2]int{m.lex.Row(x), m.lex.Row(y)}
	if m.norms != nil {
		if z, ok := m.norms.Get(key); ok {
			return z
		}
	}
	scores := mat.NewVecDense(m.vocab.Size(), nil)
	scores.MulVec(m.v, u)
	z := floats.LogSumExp(scores.RawVector().Data)
	if m.norms != nil {
		m.norms.Add(key, z)
	}
	return z
}

// LogProbs scores a batch of trigrams with matrix products over the whole
// batch.
func (m *LogLinear) LogProbs(batch []corpus.Trigram) []float64 {
	if len(batch) == 0 {
		return nil
	}
	f := m.forward(batch)
	out := make([]float64, len(batch))
	for i := range batch {
		out[i] = f.logProb(i)
	}
	return out
}

// batchForward holds the intermediate values of one batch.
type batchForward struct {
	ex, ey, ez *mat.Dense // [B × dim] embeddings of x, y, z
	u          *mat.Dense // [B × dim] context vectors
	s          *mat.Dense // [B × |V|] scores of every vocabulary word
	lse        []float64  // [B] log-normalizers
}

func (f *batchForward) logProb(i int) float64 {
	return floats.Dot(f.u.RawRowView(i), f.ez.RawRowView(i)) - f.lse[i]
}

func (m *LogLinear) forward(batch []corpus.Trigram) *batchForward {
	b := len(batch)
	f := &batchForward{
		ex:  mat.NewDense(b, m.dim, nil),
		ey:  mat.NewDense(b, m.dim, nil),
		ez:  mat.NewDense(b, m.dim, nil),
		u:   mat.NewDense(b, m.dim, nil),
		s:   mat.NewDense(b, m.vocab.Size(), nil),
		lse: make([]float64, b),
	}
	for i, t := range batch {
		f.ex.SetRow(i, m.lex.Vector(t[0]))
		f.ey.SetRow(i, m.lex.Vector(t[1]))
		f.ez.SetRow(i, m.lex.Vector(t[2]))
	}

	// U = Ex·X + Ey·Y ; S = U·Vᵀ
	f.u.Mul(f.ex, m.x)
	var uy mat.Dense
	uy.Mul(f.ey, m.y)
	f.u.Add(f.u, &uy)
	f.s.Mul(f.u, m.v.T())

	for i := 0; i < b; i++ {
		f.lse[i] = floats.LogSumExp(f.s.RawRowView(i))
	}
	return f
}

// --- Trainable ---

// Params returns X and Y. The Trainer updates them in place.
func (m *LogLinear) Params() []*mat.Dense { return []*mat.Dense{m.x, m.y} }

// L2 returns the regularization strength.
func (m *LogLinear) L2() float64 { return m.l2 }

// ResetParams sets X and Y to zero.
func (m *LogLinear) ResetParams() {
	m.x.Zero()
	m.y.Zero()
	m.ParamsUpdated()
}

// ParamsUpdated drops the cached normalizers after X or Y changed.
func (m *LogLinear) ParamsUpdated() {
	if m.norms != nil {
		m.norms.Purge()
	}
}

// AccumulateGradient adds the gradient of Σ_i log p(z_i | x_i,y_i) with
// respect to X and Y into grads[0] and grads[1] and returns the summed log
// probability. For one trigram
//
//	∂ log p / ∂X = e(x) (e(z) − E_p[e(z')])ᵀ
//	∂ log p / ∂Y = e(y) (e(z) − E_p[e(z')])ᵀ
func (m *LogLinear) AccumulateGradient(batch []corpus.Trigram, grads []*mat.Dense) float64 {
	if len(batch) == 0 {
		return 0
	}
	f := m.forward(batch)

	sum := 0.0
	for i := range batch {
		sum += f.logProb(i)
		// scores -> probabilities in place
		row := f.s.RawRowView(i)
		for j, s := range row {
			row[j] = math.Exp(s - f.lse[i])
		}
	}

	// D = Ez − P·V
	var d mat.Dense
	d.Mul(f.s, m.v)
	d.Sub(f.ez, &d)

	var g mat.Dense
	g.Mul(f.ex.T(), &d)
	grads[0].Add(grads[0], &g)
	g.Reset()
	g.Mul(f.ey.T(), &d)
	grads[1].Add(grads[1], &g)
	return sum
}
