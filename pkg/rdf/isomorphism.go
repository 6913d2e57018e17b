package rdf

import (
	"encoding/binary"
	"sort"

	"github.com/zeebo/xxh3"
)

// refinementRounds is the number of colour refinement passes run on each graph.
// Both graphs must be refined the same number of times for colours to be comparable.
const refinementRounds = 3

// AreGraphsIsomorphic checks if two sets of triples are isomorphic,
// accounting for blank node label differences.
// Two graphs are isomorphic if there exists a bijection between their
// blank nodes such that when applied, the graphs are identical.
func AreGraphsIsomorphic(expected, actual []*Triple) bool {
	// Quick check: same number of triples
	if len(expected) != len(actual) {
		return false
	}

	expectedBlanks := extractBlankNodeLabels(expected)
	actualBlanks := extractBlankNodeLabels(actual)
	if len(expectedBlanks) != len(actualBlanks) {
		return false
	}

	actualSet := tripleKeySet(actual, nil)

	// If no blank nodes, use simple comparison
	if len(expectedBlanks) == 0 {
		return sameKeySet(tripleKeySet(expected, nil), actualSet)
	}

	// Colour refinement partitions blank nodes into classes that any
	// isomorphism must preserve; only same-coloured candidates are tried.
	expectedColors := blankColors(expected, expectedBlanks)
	actualColors := blankColors(actual, actualBlanks)
	if !sameColorHistogram(expectedColors, actualColors) {
		return false
	}

	candidates := make(map[string][]string, len(expectedBlanks))
	for _, blank := range expectedBlanks {
		for _, candidate := range actualBlanks {
			if expectedColors[blank] == actualColors[candidate] {
				candidates[blank] = append(candidates[blank], candidate)
			}
		}
	}

	// Match the most constrained, highest-degree nodes first
	expectedBlanks = sortByDegree(expectedBlanks, expected)
	sort.SliceStable(expectedBlanks, func(i, j int) bool {
		return len(candidates[expectedBlanks[i]]) < len(candidates[expectedBlanks[j]])
	})

	m := &matcher{
		expected:    expected,
		actualSet:   actualSet,
		blanks:      expectedBlanks,
		candidates:  candidates,
		mapping:     make(map[string]string),
		usedTargets: make(map[string]bool),
	}
	return m.backtrack(0)
}

// extractBlankNodeLabels extracts all unique blank node labels from a set of triples
func extractBlankNodeLabels(triples []*Triple) []string {
	blanks := make(map[string]bool)
	for _, triple := range triples {
		for _, term := range triple.terms() {
			if b, ok := term.(*BlankNode); ok {
				blanks[b.ID] = true
			}
		}
	}

	// Convert to sorted slice for deterministic ordering
	result := make([]string, 0, len(blanks))
	for label := range blanks {
		result = append(result, label)
	}
	sort.Strings(result)
	return result
}

func (t *Triple) terms() [3]Term {
	return [3]Term{t.Subject, t.Predicate, t.Object}
}

// sortByDegree sorts blank nodes by their degree (number of triples they appear in)
func sortByDegree(blanks []string, triples []*Triple) []string {
	degrees := make(map[string]int, len(blanks))
	for _, triple := range triples {
		for _, term := range triple.terms() {
			if b, ok := term.(*BlankNode); ok {
				degrees[b.ID]++
			}
		}
	}

	sort.SliceStable(blanks, func(i, j int) bool {
		return degrees[blanks[i]] > degrees[blanks[j]]
	})
	return blanks
}

// blankColors computes a colour per blank node from the structure around it.
// Every round folds the colours of the neighbouring blank nodes into a node's colour.
func blankColors(triples []*Triple, blanks []string) map[string]uint64 {
	colors := make(map[string]uint64, len(blanks))
	for _, blank := range blanks {
		colors[blank] = xxh3.HashString("_:")
	}

	var buf [8]byte
	for round := 0; round < refinementRounds; round++ {
		signatures := make(map[string][]uint64, len(blanks))
		for _, triple := range triples {
			terms := triple.terms()
			for pos, term := range terms {
				b, ok := term.(*BlankNode)
				if !ok {
					continue
				}
				h := xxh3.New()
				buf[0] = byte(pos)
				_, _ = h.Write(buf[:1])
				for other, otherTerm := range terms {
					if other == pos {
						_, _ = h.WriteString("\x00self")
						continue
					}
					if ob, ok := otherTerm.(*BlankNode); ok {
						binary.BigEndian.PutUint64(buf[:], colors[ob.ID])
						_, _ = h.WriteString("\x00blank")
						_, _ = h.Write(buf[:])
						continue
					}
					_, _ = h.WriteString("\x00" + SerializeTermCanonical(otherTerm))
				}
				signatures[b.ID] = append(signatures[b.ID], h.Sum64())
			}
		}

		next := make(map[string]uint64, len(colors))
		for blank, color := range colors {
			sigs := signatures[blank]
			sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
			h := xxh3.New()
			binary.BigEndian.PutUint64(buf[:], color)
			_, _ = h.Write(buf[:])
			for _, sig := range sigs {
				binary.BigEndian.PutUint64(buf[:], sig)
				_, _ = h.Write(buf[:])
			}
			next[blank] = h.Sum64()
		}
		colors = next
	}

	return colors
}

func sameColorHistogram(a, b map[string]uint64) bool {
	counts := make(map[uint64]int, len(a))
	for _, color := range a {
		counts[color]++
	}
	for _, color := range b {
		counts[color]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// matcher holds the backtracking state for one isomorphism search
type matcher struct {
	expected    []*Triple
	actualSet   map[string]bool
	blanks      []string
	candidates  map[string][]string
	mapping     map[string]string
	usedTargets map[string]bool
}

// backtrack recursively tries to find a valid mapping between blank nodes
func (m *matcher) backtrack(index int) bool {
	// Base case: all blank nodes have been mapped
	if index == len(m.blanks) {
		return sameKeySet(tripleKeySet(m.expected, m.mapping), m.actualSet)
	}

	currentBlank := m.blanks[index]
	for _, candidateBlank := range m.candidates[currentBlank] {
		if m.usedTargets[candidateBlank] {
			continue
		}

		m.mapping[currentBlank] = candidateBlank
		m.usedTargets[candidateBlank] = true

		// Early pruning: check if mapping is still consistent
		if m.isConsistentSoFar() && m.backtrack(index+1) {
			return true
		}

		delete(m.mapping, currentBlank)
		delete(m.usedTargets, candidateBlank)
	}

	return false
}

// isConsistentSoFar checks that every fully mapped expected triple exists in actual
func (m *matcher) isConsistentSoFar() bool {
	for _, triple := range m.expected {
		if !isFullyMapped(triple, m.mapping) {
			continue
		}
		if !m.actualSet[tripleKey(triple, m.mapping)] {
			return false
		}
	}
	return true
}

func isFullyMapped(triple *Triple, mapping map[string]string) bool {
	for _, term := range triple.terms() {
		if b, ok := term.(*BlankNode); ok {
			if _, exists := mapping[b.ID]; !exists {
				return false
			}
		}
	}
	return true
}

func tripleKeySet(triples []*Triple, mapping map[string]string) map[string]bool {
	keys := make(map[string]bool, len(triples))
	for _, triple := range triples {
		keys[tripleKey(triple, mapping)] = true
	}
	return keys
}

func sameKeySet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for key := range a {
		if !b[key] {
			return false
		}
	}
	return true
}

// tripleKey creates a string key for a triple, applying blank node mapping if provided
func tripleKey(triple *Triple, mapping map[string]string) string {
	return termString(triple.Subject, mapping) + "|" +
		termString(triple.Predicate, mapping) + "|" +
		termString(triple.Object, mapping)
}

// termString converts a term to string, applying blank node mapping if applicable
func termString(term Term, mapping map[string]string) string {
	if b, ok := term.(*BlankNode); ok && mapping != nil {
		if mapped, exists := mapping[b.ID]; exists {
			return "_:" + mapped
		}
	}
	return SerializeTermCanonical(term)
}
