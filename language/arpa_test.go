package language

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ieee0824/trigramlm/corpus"
)

const testARPA = `\data\
ngram 1=5
ngram 2=3
ngram 3=1

\1-grams:
-1.0	EOS
-99	BOS	-0.5
-0.5	tokyo
-0.7	tower	-0.3
-2.0	OOV

\2-grams:
-0.3	BOS tokyo	-0.1
-0.4	tokyo tower
-0.2	tower EOS

\3-grams:
-0.05	BOS tokyo tower

\end\
`

func TestLoadARPA(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	if model.Order != 3 {
		t.Errorf("Order = %d, want 3", model.Order)
	}
	if len(model.Unigrams) != 5 {
		t.Errorf("len(Unigrams) = %d, want 5", len(model.Unigrams))
	}
	if len(model.Bigrams) != 3 {
		t.Errorf("len(Bigrams) = %d, want 3", len(model.Bigrams))
	}
	if len(model.Trigrams) != 1 {
		t.Errorf("len(Trigrams) = %d, want 1", len(model.Trigrams))
	}

	e, ok := model.Unigrams["tokyo"]
	if !ok {
		t.Fatal("missing unigram for tokyo")
	}
	if want := -0.5 * math.Ln10; math.Abs(e.LogProb-want) > 1e-10 {
		t.Errorf("tokyo unigram LogProb = %f, want %f", e.LogProb, want)
	}
	if model.Family() != FamilyARPA {
		t.Errorf("Family = %q, want %q", model.Family(), FamilyARPA)
	}
}

func TestNGramModel_Bigram(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	lp := model.LogProbAfter([]string{corpus.BOS}, "tokyo")
	if want := -0.3 * math.Ln10; math.Abs(lp-want) > 1e-10 {
		t.Errorf("LogProbAfter(BOS, tokyo) = %f, want %f", lp, want)
	}
}

func TestNGramModel_Backoff(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	// no (tower, tokyo) bigram: backoff(tower) + p(tokyo)
	lp := model.LogProbAfter([]string{"tower"}, "tokyo")
	if want := (-0.3 - 0.5) * math.Ln10; math.Abs(lp-want) > 1e-10 {
		t.Errorf("LogProbAfter(tower, tokyo) = %f, want %f", lp, want)
	}

	// no (BOS, tokyo, tokyo) trigram: backoff(BOS tokyo) + p(tokyo | tokyo)
	lp = model.LogProb(corpus.BOS, "tokyo", "tokyo")
	if want := (-0.1 - 0.5) * math.Ln10; math.Abs(lp-want) > 1e-10 {
		t.Errorf("LogProb(BOS, tokyo, tokyo) = %f, want %f", lp, want)
	}

	lp = model.LogProb(corpus.BOS, "tokyo", "tower")
	if want := -0.05 * math.Ln10; math.Abs(lp-want) > 1e-10 {
		t.Errorf("LogProb(BOS, tokyo, tower) = %f, want %f", lp, want)
	}

	if p := model.Prob("tokyo", "tower", "unknown"); p != 0 {
		t.Errorf("Prob of a word without unigram = %v, want 0", p)
	}
}

func TestNGramModel_SentenceLogProb(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	// p(tokyo | BOS) + p(tower | BOS tokyo) + p(EOS | tower)
	want := (-0.3 - 0.05 - 0.2) * math.Ln10
	if lp := model.SentenceLogProb([]string{"tokyo", "tower"}); math.Abs(lp-want) > 1e-10 {
		t.Errorf("SentenceLogProb = %f, want %f", lp, want)
	}
	if lp := SentenceLogProb(model, []string{"tokyo", "tower"}); math.Abs(lp-want) > 1e-10 {
		t.Errorf("SentenceLogProb(model) = %f, want %f", lp, want)
	}
}

func TestNGramModel_Vocab(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	vocab := model.Vocab()
	if vocab.Size() != 4 {
		t.Errorf("Vocab().Size() = %d, want 4", vocab.Size())
	}
	if vocab.Contains(corpus.BOS) {
		t.Error("vocabulary contains BOS")
	}
}

func TestLoadARPA_Malformed(t *testing.T) {
	tests := map[string]string{
		"no data":     "ngram 1=1\n",
		"no end":      "\\data\\\nngram 1=1\n\n\\1-grams:\n-1.0\tEOS\n",
		"bad prob":    "\\data\\\nngram 1=1\n\n\\1-grams:\nx\tEOS\n\n\\end\\\n",
		"bad section": "\\data\\\nngram 1=1\n\n\\4-grams:\n-1.0\ta b c d\n\n\\end\\\n",
		"order 4":     "\\data\\\nngram 4=1\n\n\\end\\\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadARPA(strings.NewReader(in))
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("LoadARPA error = %v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestWriteARPA_MatchesBackoff(t *testing.T) {
	vocab := corpus.NewVocab([]string{"a", "b", "c", "d"})
	m, err := NewBackoffAddLambda(vocab, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Train(corpus.Text("a b a\nb c\nc a x\n")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteARPA(&buf, m); err != nil {
		t.Fatalf("WriteARPA error: %v", err)
	}
	arpa, err := LoadARPA(&buf)
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}
	if arpa.Vocab().Size() != vocab.Size() {
		t.Fatalf("ARPA vocab size = %d, want %d", arpa.Vocab().Size(), vocab.Size())
	}

	histories := append([]string{corpus.BOS}, vocab.Words()...)
	for _, x := range histories {
		for _, y := range histories {
			for _, z := range vocab.Words() {
				want := m.Prob(x, y, z)
				got := arpa.Prob(x, y, z)
				if math.Abs(got-want) > 1e-5*want {
					t.Errorf("p(%s | %s %s) = %v from ARPA, want %v", z, x, y, got, want)
				}
			}
		}
	}
}

func TestWriteARPA_ZeroLambda(t *testing.T) {
	m, err := NewBackoffAddLambda(corpus.NewVocab([]string{"a"}), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteARPA(&bytes.Buffer{}, m); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("WriteARPA error = %v, want ErrInvalidParameter", err)
	}
}
