package language

import (
	"math"

	"github.com/ieee0824/trigramlm/corpus"
)

// logZero stands in for log 0 so that sums of log probabilities stay finite.
const logZero = -1e30

// NGramModel is a backoff n-gram model read from an ARPA file. Log
// probabilities and backoff weights are natural logs.
type NGramModel struct {
	Order    int // 1, 2 or 3
	Unigrams map[string]ngramEntry
	Bigrams  map[[2]string]ngramEntry
	Trigrams map[[3]string]ngramEntry

	vocab *corpus.Vocab
}

type ngramEntry struct {
	LogProb    float64
	LogBackoff float64
}

// NewNGramModel creates an empty n-gram model.
func NewNGramModel(order int) *NGramModel {
	return &NGramModel{
		Order:    order,
		Unigrams: make(map[string]ngramEntry),
		Bigrams:  make(map[[2]string]ngramEntry),
		Trigrams: make(map[[3]string]ngramEntry),
	}
}

func (m *NGramModel) Family() Family { return FamilyARPA }

// Vocab returns the unigram vocabulary. BOS entries are contexts only and
// are not part of it.
func (m *NGramModel) Vocab() *corpus.Vocab {
	if m.vocab == nil {
		words := make([]string, 0, len(m.Unigrams))
		for w := range m.Unigrams {
			words = append(words, w)
		}
		m.vocab = corpus.NewVocab(words)
	}
	return m.vocab
}

// Prob returns p(z | x,y).
func (m *NGramModel) Prob(x, y, z string) float64 { return math.Exp(m.LogProb(x, y, z)) }

// LogProb returns log p(z | x,y).
func (m *NGramModel) LogProb(x, y, z string) float64 {
	return m.LogProbAfter([]string{x, y}, z)
}

// LogProbAfter returns the log probability of word after history, backing
// off to shorter histories when an n-gram is missing.
func (m *NGramModel) LogProbAfter(history []string, word string) float64 {
	n := len(history)
	if m.Order >= 3 && n >= 2 {
		if e, ok := m.Trigrams[[3]string{history[n-2], history[n-1], word}]; ok {
			return e.LogProb
		}
		if e, ok := m.Bigrams[[2]string{history[n-2], history[n-1]}]; ok {
			return e.LogBackoff + m.logProbBigram(history[n-1], word)
		}
	}
	if m.Order >= 2 && n >= 1 {
		return m.logProbBigram(history[n-1], word)
	}
	return m.logProbUnigram(word)
}

func (m *NGramModel) logProbBigram(prev, word string) float64 {
	if e, ok := m.Bigrams[[2]string{prev, word}]; ok {
		return e.LogProb
	}
	if e, ok := m.Unigrams[prev]; ok {
		return e.LogBackoff + m.logProbUnigram(word)
	}
	return m.logProbUnigram(word)
}

func (m *NGramModel) logProbUnigram(word string) float64 {
	if e, ok := m.Unigrams[word]; ok {
		return e.LogProb
	}
	return logZero
}

// SentenceLogProb returns the log probability of a sentence, scoring every
// word and the closing EOS after a BOS BOS history. Words outside the
// vocabulary are scored as OOV.
func (m *NGramModel) SentenceLogProb(words []string) float64 {
	vocab := m.Vocab()
	total := 0.0
	history := []string{corpus.BOS, corpus.BOS}
	for _, w := range words {
		w = vocab.Map(w)
		total += m.LogProbAfter(history, w)
		history = append(history, w)
	}
	total += m.LogProbAfter(history, corpus.EOS)
	return total
}
