package language

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ieee0824/trigramlm/corpus"
)

// arpaFloor is the log10 probability written for history-only entries.
const arpaFloor = -99

// LoadARPA reads a language model in ARPA format. Log probabilities in
// ARPA files are base-10; they are converted to natural log.
func LoadARPA(r io.Reader) (*NGramModel, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	model := NewNGramModel(1)
	lineNo := 0
	scan := func() bool {
		if scanner.Scan() {
			lineNo++
			return true
		}
		return false
	}

	found := false
	for scan() {
		if strings.TrimSpace(scanner.Text()) == `\data\` {
			found = true
			break
		}
	}
	if !found {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("arpa: missing \\data\\ section: %w", ErrMalformedInput)
	}

	// ngram N=count lines
	maxOrder := 0
	for scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "ngram ") {
			break
		}
		parts := strings.SplitN(line[len("ngram "):], "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("arpa line %d: bad count line %q: %w", lineNo, line, ErrMalformedInput)
		}
		order, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || order < 1 {
			return nil, fmt.Errorf("arpa line %d: bad order in %q: %w", lineNo, line, ErrMalformedInput)
		}
		maxOrder = max(maxOrder, order)
	}
	if maxOrder == 0 || maxOrder > 3 {
		return nil, fmt.Errorf("arpa: order %d not supported: %w", maxOrder, ErrMalformedInput)
	}
	model.Order = maxOrder

	ended := false
	for !ended {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == `\end\`:
			ended = true
			continue
		case strings.HasPrefix(line, `\`) && strings.HasSuffix(line, "-grams:"):
			order, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, `\`), "-grams:"))
			if err != nil || order < 1 || order > maxOrder {
				return nil, fmt.Errorf("arpa line %d: bad section %q: %w", lineNo, line, ErrMalformedInput)
			}
			next := false
			for scan() {
				entry := strings.TrimSpace(scanner.Text())
				if entry == "" {
					continue
				}
				if strings.HasPrefix(entry, `\`) {
					next = true
					break
				}
				if err := parseNGramLine(model, order, entry); err != nil {
					return nil, fmt.Errorf("arpa line %d: %w", lineNo, err)
				}
			}
			if next {
				continue
			}
		}
		if !scan() {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !ended {
		return nil, fmt.Errorf("arpa: missing \\end\\: %w", ErrMalformedInput)
	}

	model.vocab = nil
	model.Vocab()
	return model, nil
}

// LoadARPAFile reads an ARPA model from a file.
func LoadARPAFile(path string) (*NGramModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadARPA(f)
}

func parseNGramLine(model *NGramModel, order int, line string) error {
	fields := strings.Fields(line)
	if len(fields) < order+1 || len(fields) > order+2 {
		return fmt.Errorf("%d fields for %d-gram %q: %w", len(fields), order, line, ErrMalformedInput)
	}

	logProb, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("parse log prob: %w", ErrMalformedInput)
	}
	words := fields[1 : order+1]

	var logBackoff float64
	if len(fields) == order+2 {
		bo, err := strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return fmt.Errorf("parse backoff: %w", ErrMalformedInput)
		}
		logBackoff = bo * math.Ln10
	}

	entry := ngramEntry{LogProb: logProb * math.Ln10, LogBackoff: logBackoff}
	switch order {
	case 1:
		model.Unigrams[words[0]] = entry
	case 2:
		model.Bigrams[[2]string{words[0], words[1]}] = entry
	case 3:
		model.Trigrams[[3]string{words[0], words[1], words[2]}] = entry
	}
	return nil
}

// WriteARPA writes m as a trigram ARPA model that assigns the same
// probabilities as m.Prob:
//
//   - every vocabulary word gets a unigram p1(z);
//   - every observed event or context bigram gets p2 and, as a history,
//     the backoff weight λ|V|/(c(h)+λ|V|);
//   - every observed trigram gets p3.
//
// BOS is never predicted, so entries ending in BOS carry only a backoff
// weight and a -99 probability. λ must be positive.
func WriteARPA(w io.Writer, m *BackoffAddLambda) error {
	if !(m.lambda > 0) {
		return fmt.Errorf("arpa export needs lambda > 0, have %v: %w", m.lambda, ErrInvalidParameter)
	}
	c := m.counts
	v := m.size()
	lv := m.lambda * v
	vocab := m.vocab

	p1 := func(z string) float64 { return unigramBackoff(c, m.lambda, v, z) }
	p2 := func(y, z string) float64 { return backoffLevel(c.Event(y, z), c.Context(y), lv, p1(z)) }

	unigrams := append([]string(nil), vocab.Words()...)
	if c.Context(corpus.BOS) > 0 {
		unigrams = append(unigrams, corpus.BOS)
	}

	bigramSet := make(map[[2]string]bool)
	trigrams := make([][3]string, 0, len(c.events3))
	c.ForEachTrigram(func(t corpus.Trigram, n int) {
		bigramSet[[2]string{t[1], t[2]}] = true
		bigramSet[[2]string{t[0], t[1]}] = true
		trigrams = append(trigrams, [3]string(t))
	})
	bigrams := make([][2]string, 0, len(bigramSet))
	for k := range bigramSet {
		bigrams = append(bigrams, k)
	}
	sort.Slice(bigrams, func(i, j int) bool {
		return bigrams[i][0] < bigrams[j][0] || bigrams[i][0] == bigrams[j][0] && bigrams[i][1] < bigrams[j][1]
	})
	sort.Slice(trigrams, func(i, j int) bool {
		a, b := trigrams[i], trigrams[j]
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\data\\\n")
	fmt.Fprintf(bw, "ngram 1=%d\n", len(unigrams))
	fmt.Fprintf(bw, "ngram 2=%d\n", len(bigrams))
	fmt.Fprintf(bw, "ngram 3=%d\n", len(trigrams))

	fmt.Fprintf(bw, "\n\\1-grams:\n")
	for _, z := range unigrams {
		lp := float64(arpaFloor)
		if z != corpus.BOS {
			lp = math.Log10(p1(z))
		}
		bo := math.Log10(backoffWeight(c.Context(z), lv))
		fmt.Fprintf(bw, "%.6f\t%s\t%.6f\n", lp, z, bo)
	}

	fmt.Fprintf(bw, "\n\\2-grams:\n")
	for _, k := range bigrams {
		lp := float64(arpaFloor)
		if k[1] != corpus.BOS {
			lp = math.Log10(p2(k[0], k[1]))
		}
		bo := math.Log10(backoffWeight(c.Context(k[0], k[1]), lv))
		fmt.Fprintf(bw, "%.6f\t%s %s\t%.6f\n", lp, k[0], k[1], bo)
	}

	fmt.Fprintf(bw, "\n\\3-grams:\n")
	for _, t := range trigrams {
		lp := backoffLevel(c.Event(t[0], t[1], t[2]), c.Context(t[0], t[1]), lv, p2(t[1], t[2]))
		fmt.Fprintf(bw, "%.6f\t%s %s %s\n", math.Log10(lp), t[0], t[1], t[2])
	}

	fmt.Fprintf(bw, "\n\\end\\\n")
	return bw.Flush()
}
