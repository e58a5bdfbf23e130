package language

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/trigramlm/corpus"
)

const trainText = "the cat sat on the mat\nthe dog sat\na cat ran\n"

func trainVocab() *corpus.Vocab {
	return corpus.NewVocab([]string{"the", "cat", "sat", "on", "mat", "dog", "ran", "away"})
}

// histories returns every context word, BOS included.
func histories(v *corpus.Vocab) []string {
	return append([]string{corpus.BOS}, v.Words()...)
}

func assertNormalized(t *testing.T, est Estimator) {
	t.Helper()
	v := est.Vocab()
	for _, x := range histories(v) {
		for _, y := range histories(v) {
			sum := 0.0
			for _, z := range v.Words() {
				p := est.Prob(x, y, z)
				require.GreaterOrEqual(t, p, 0.0)
				require.LessOrEqual(t, p, 1.0)
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "context (%s, %s)", x, y)
		}
	}
}

func TestUniform(t *testing.T) {
	vocab := corpus.NewVocab([]string{"a", "b", "c"})
	m := NewUniform(vocab)
	require.NoError(t, m.Train(corpus.Text("a b\n")))

	assert.Equal(t, FamilyUniform, m.Family())
	assert.InDelta(t, 1.0/float64(vocab.Size()), m.Prob("a", "b", "c"), 1e-15)
	assert.InDelta(t, -math.Log(float64(vocab.Size())), m.LogProb(corpus.BOS, corpus.BOS, corpus.EOS), 1e-12)
	assertNormalized(t, m)
}

func TestAddLambda_Scenario(t *testing.T) {
	vocab := corpus.NewVocab([]string{"a", "b", "c"})
	m, err := NewAddLambda(vocab, 1)
	require.NoError(t, err)
	require.NoError(t, m.Train(corpus.Text("a b\nc\n")))

	// c(BOS,BOS,a) = 1, c(BOS,BOS) = 2. The vocabulary is a, b, c, EOS,
	// OOV: EOS must be a member for p(·|x,y) to sum to one, so |V| = 5
	// and the estimate is 2/7.
	require.Equal(t, 5, vocab.Size())
	want := (1.0 + 1) / (2 + 1*float64(vocab.Size()))
	assert.InDelta(t, want, m.Prob(corpus.BOS, corpus.BOS, "a"), 1e-15)
	assert.InDelta(t, math.Log(want), m.LogProb(corpus.BOS, corpus.BOS, "a"), 1e-12)
}

func TestAddLambda_Normalized(t *testing.T) {
	m, err := NewAddLambda(trainVocab(), 0.3)
	require.NoError(t, err)
	require.NoError(t, m.Train(corpus.Text(trainText)))
	assertNormalized(t, m)
}

func TestAddLambda_ZeroIsMLE(t *testing.T) {
	vocab := trainVocab()
	m, err := NewAddLambda(vocab, 0)
	require.NoError(t, err)
	require.NoError(t, m.Train(corpus.Text(trainText)))
	c := m.Counts()

	c.ForEachTrigram(func(tri corpus.Trigram, n int) {
		want := float64(n) / float64(c.Context(tri[0], tri[1]))
		assert.InDelta(t, want, m.Prob(tri[0], tri[1], tri[2]), 1e-15)
	})
	assert.Equal(t, 0.0, m.Prob(corpus.BOS, corpus.BOS, "mat"))
	// unseen context: the λ→0 limit
	assert.InDelta(t, 1/float64(vocab.Size()), m.Prob("mat", "mat", "the"), 1e-15)
}

func TestBackoffAddLambda_Normalized(t *testing.T) {
	for _, lambda := range []float64{0.01, 0.5, 2} {
		m, err := NewBackoffAddLambda(trainVocab(), lambda)
		require.NoError(t, err)
		require.NoError(t, m.Train(corpus.Text(trainText)))
		assertNormalized(t, m)
	}
}

func TestBackoffAddLambda_Levels(t *testing.T) {
	vocab := corpus.NewVocab([]string{"a", "b", "c"})
	m, err := NewBackoffAddLambda(vocab, 1)
	require.NoError(t, err)
	require.NoError(t, m.Train(corpus.Text("a b\nc\n")))

	v := float64(vocab.Size())
	p1 := (1.0 + 1) / (5 + v)  // c(a) = 1, c() = 5
	p2 := (1 + v*p1) / (2 + v) // c(BOS,a) = 1, c(BOS) = 2
	p3 := (1 + v*p2) / (2 + v) // c(BOS,BOS,a) = 1, c(BOS,BOS) = 2
	assert.InDelta(t, p3, m.Prob(corpus.BOS, corpus.BOS, "a"), 1e-15)

	// EOS is never a context, so both higher orders pass p1 through
	assert.InDelta(t, p1, m.Prob("c", corpus.EOS, "a"), 1e-15)
}

func TestBackoffAddLambda_ZeroLambdaFallsBackToOOV(t *testing.T) {
	vocab := trainVocab()
	m, err := NewBackoffAddLambda(vocab, 0)
	require.NoError(t, err)
	require.NoError(t, m.Train(corpus.Text(trainText+"the zebra sat\n")))

	require.Zero(t, m.Counts().Event("away"))
	for _, ctx := range [][2]string{{corpus.BOS, "the"}, {"the", corpus.OOV}, {"cat", "cat"}} {
		got := m.Prob(ctx[0], ctx[1], "away")
		assert.Equal(t, m.Prob(ctx[0], ctx[1], corpus.OOV), got, "context %v", ctx)
		assert.False(t, math.IsNaN(got))
	}
	// only zebra maps to OOV: c(BOS,the,OOV) = 1, c(BOS,the) = 3
	assert.InDelta(t, 1.0/3, m.Prob(corpus.BOS, "the", "away"), 1e-15)
}

func TestBackoffAddLambda_EmptyCounts(t *testing.T) {
	vocab := corpus.NewVocab([]string{"a"})
	m, err := NewBackoffAddLambda(vocab, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1/float64(vocab.Size()), m.Prob(corpus.BOS, corpus.BOS, "a"), 1e-15)
}

func TestLambdaValidation(t *testing.T) {
	vocab := corpus.NewVocab([]string{"a"})

	_, err := NewAddLambda(vocab, -0.1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewBackoffAddLambda(vocab, -0.1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewAddLambda(vocab, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewAddLambda(vocab, 0)
	assert.NoError(t, err)
	_, err = NewBackoffAddLambda(vocab, 0)
	assert.NoError(t, err)
}

func TestTrainDiscardsPreviousCounts(t *testing.T) {
	m, err := NewAddLambda(trainVocab(), 1)
	require.NoError(t, err)
	require.NoError(t, m.Train(corpus.Text(trainText)))
	require.NoError(t, m.Train(corpus.Text("the cat\n")))

	assert.Equal(t, 3, m.Counts().Tokens())
	assert.Equal(t, 0, m.Counts().Event("dog"))
}

func TestNew(t *testing.T) {
	vocab := corpus.NewVocab([]string{"a"})

	for _, f := range []Family{FamilyUniform, FamilyAddLambda, FamilyBackoffAddLambda} {
		est, err := New(f, vocab, Params{Lambda: 1})
		require.NoError(t, err)
		assert.Equal(t, f, est.Family())
		assert.Implements(t, (*CountBased)(nil), est)
	}

	_, err := New(FamilyLogLinear, vocab, Params{})
	assert.ErrorIs(t, err, ErrInvalidParameter, "log-linear without a lexicon")

	_, err = New(FamilyARPA, vocab, Params{})
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = New("abstract", vocab, Params{})
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = New(FamilyAddLambda, vocab, Params{Lambda: -1})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSentenceLogProb_Uniform(t *testing.T) {
	vocab := corpus.NewVocab([]string{"a", "b"})
	m := NewUniform(vocab)
	want := -3 * math.Log(float64(vocab.Size()))
	assert.InDelta(t, want, SentenceLogProb(m, []string{"a", "unknown"}), 1e-12)
}

func TestCorpusLogProb(t *testing.T) {
	m, err := NewAddLambda(trainVocab(), 0.5)
	require.NoError(t, err)
	require.NoError(t, m.Train(corpus.Text(trainText)))

	src := corpus.Text("the cat sat\nthe zebra\n")
	total, n, err := CorpusLogProb(m, src)
	require.NoError(t, err)
	assert.Equal(t, 7, n) // the cat sat EOS, the zebra EOS

	want := SentenceLogProb(m, []string{"the", "cat", "sat"}) + SentenceLogProb(m, []string{"the", "zebra"})
	assert.InDelta(t, want, total, 1e-12)
}
