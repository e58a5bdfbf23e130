package lexicon

import "sort"

// EditDistance computes the Levenshtein edit distance between the runes of
// two words.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Use single-row DP to save memory.
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

// Suggest returns up to k lexicon words closest in spelling to word,
// nearest first. Ties keep lexicon order.
func (t *Table) Suggest(word string, k int) []string {
	if k <= 0 {
		return nil
	}
	type cand struct {
		word string
		dist int
	}
	cands := make([]cand, 0, len(t.words))
	for _, w := range t.words {
		if w == word {
			continue
		}
		cands = append(cands, cand{w, EditDistance(word, w)})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > k {
		cands = cands[:k]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.word
	}
	return out
}
