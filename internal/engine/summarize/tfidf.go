package summarize

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxFeatures caps the per-request vocabulary, keeping the most frequent terms.
const maxFeatures = 1000

// tokenize lowercases and splits on anything that is not a letter or digit,
// keeping tokens of two or more runes.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// tfidfMatrix fits a vocabulary over docs and returns one L2-normalized
// TF-IDF row per doc, using smoothed idf: ln((1+n)/(1+df)) + 1.
// Returns nil when the vocabulary is empty.
func tfidfMatrix(docs []string) [][]float64 {
	tokens := make([][]string, len(docs))
	corpusFreq := map[string]int{}
	docFreq := map[string]int{}
	for i, d := range docs {
		tokens[i] = tokenize(d)
		seen := map[string]bool{}
		for _, t := range tokens[i] {
			corpusFreq[t]++
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}
	if len(corpusFreq) == 0 {
		return nil
	}

	terms := make([]string, 0, len(corpusFreq))
	for t := range corpusFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if corpusFreq[terms[i]] != corpusFreq[terms[j]] {
			return corpusFreq[terms[i]] > corpusFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}

	rows := make([][]float64, len(docs))
	for i, toks := range tokens {
		row := make([]float64, len(terms))
		for _, t := range toks {
			if j, ok := vocab[t]; ok {
				row[j]++
			}
		}
		for j := range row {
			row[j] *= idf[j]
		}
		l2normalize(row)
		rows[i] = row
	}
	return rows
}

func l2normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
}

// centroid is the column mean of rows.
func centroid(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	c := make([]float64, len(rows[0]))
	for _, r := range rows {
		for j, x := range r {
			c[j] += x
		}
	}
	for j := range c {
		c[j] /= float64(len(rows))
	}
	return c
}

// cosine returns 0 when either vector is all zeros.
func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
