package engine

import (
	"cmp"
	"strings"
	"sync"
	"time"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// OrderComparer orders terms for ORDER BY: unbound, then blank nodes, then
// IRIs, then literals. Literals of comparable types compare by value, other
// literals by their lexical form under the configured culture.
type OrderComparer struct {
	mu       sync.Mutex
	collator *collate.Collator
}

// NewOrderComparer creates a comparer for the BCP 47 culture tag. An
// unparsable tag falls back to the root collation.
func NewOrderComparer(culture string, strict bool) *OrderComparer {
	tag := language.Make(culture)
	var opts []collate.Option
	if !strict {
		opts = append(opts, collate.IgnoreCase, collate.IgnoreWidth)
	}
	return &OrderComparer{collator: collate.New(tag, opts...)}
}

func orderRank(t rdf.Term) int {
	if t == nil {
		return 0
	}
	switch t.Type() {
	case rdf.TermTypeBlankNode:
		return 1
	case rdf.TermTypeNamedNode:
		return 2
	case rdf.TermTypeLiteral:
		return 3
	default:
		return 4
	}
}

// Compare returns a negative number, zero or a positive number as a sorts
// before, together with or after b
func (c *OrderComparer) Compare(a, b rdf.Term) int {
	if ra, rb := orderRank(a), orderRank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	if a == nil {
		return 0
	}

	switch x := a.(type) {
	case *rdf.BlankNode:
		return strings.Compare(x.ID, b.(*rdf.BlankNode).ID)
	case *rdf.NamedNode:
		return strings.Compare(x.IRI, b.(*rdf.NamedNode).IRI)
	case *rdf.Literal:
		return c.compareLiterals(x, b.(*rdf.Literal))
	default:
		return strings.Compare(a.String(), b.String())
	}
}

func (c *OrderComparer) compareLiterals(a, b *rdf.Literal) int {
	if fa, ok := a.Float(); ok {
		if fb, ok := b.Float(); ok {
			return cmp.Compare(fa, fb)
		}
	}
	if isDatatype(a, rdf.XSDBoolean) && isDatatype(b, rdf.XSDBoolean) {
		return cmp.Compare(a.Value, b.Value)
	}
	if isDatatype(a, rdf.XSDDateTime) && isDatatype(b, rdf.XSDDateTime) {
		ta, errA := time.Parse(time.RFC3339Nano, a.Value)
		tb, errB := time.Parse(time.RFC3339Nano, b.Value)
		if errA == nil && errB == nil {
			return ta.Compare(tb)
		}
	}

	c.mu.Lock()
	result := c.collator.CompareString(a.Value, b.Value)
	c.mu.Unlock()
	if result != 0 {
		return result
	}
	if result := strings.Compare(a.Language, b.Language); result != 0 {
		return result
	}
	return strings.Compare(datatypeIRI(a), datatypeIRI(b))
}

// ValueComparer decides term equality for FILTER comparisons
type ValueComparer struct {
	strict bool
}

// NewValueComparer creates a value comparer. A non-strict comparer treats
// plain literals that differ only in case or Unicode normalization as equal.
func NewValueComparer(strict bool) *ValueComparer {
	return &ValueComparer{strict: strict}
}

// Equal reports whether a and b denote the same value
func (c *ValueComparer) Equal(a, b rdf.Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Equals(b) {
		return true
	}

	la, okA := a.(*rdf.Literal)
	lb, okB := b.(*rdf.Literal)
	if !okA || !okB {
		return false
	}
	if fa, ok := la.Float(); ok {
		if fb, ok := lb.Float(); ok {
			return fa == fb
		}
	}
	if c.strict || !isPlain(la) || !isPlain(lb) || !strings.EqualFold(la.Language, lb.Language) {
		return false
	}
	return fold(la.Value) == fold(lb.Value)
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func isPlain(l *rdf.Literal) bool {
	return l.Datatype == nil || l.Datatype.Equals(rdf.XSDString)
}

func isDatatype(l *rdf.Literal, datatype *rdf.NamedNode) bool {
	return l.Datatype != nil && l.Datatype.Equals(datatype)
}

func datatypeIRI(l *rdf.Literal) string {
	if l.Datatype == nil {
		return rdf.XSDString.IRI
	}
	return l.Datatype.IRI
}
