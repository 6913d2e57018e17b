package algebra

import (
	"strings"
	"sync"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/google/uuid"
)

// BNode constructs blank nodes. Without a label every call yields a fresh
// node; with a label the same string yields the same node for the rest of
// the evaluation.
type BNode struct {
	Label Expression
}

func (b *BNode) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	if b.Label == nil {
		return freshBlankNode(), nil
	}

	value, err := b.Label.Evaluate(ctx, id)
	if err != nil {
		return nil, err
	}
	lit, ok := value.(*rdf.Literal)
	if !ok || lit.Language != "" || (lit.Datatype != nil && !lit.Datatype.Equals(rdf.XSDString)) {
		return nil, typeError("BNODE requires a simple literal, got %s", value)
	}

	// the label table is keyed by this expression instance
	labels := ctx.GetOrSet(b, func() any {
		return &blankLabels{nodes: make(map[string]*rdf.BlankNode)}
	}).(*blankLabels)
	return labels.node(lit.Value), nil
}

func (b *BNode) Variables() []string {
	return variablesOf(b.Label)
}

// blankLabels maps BNODE labels to nodes for one evaluation. Parallel
// branches share it through the function state.
type blankLabels struct {
	mu    sync.Mutex
	nodes map[string]*rdf.BlankNode
}

func (l *blankLabels) node(label string) *rdf.BlankNode {
	l.mu.Lock()
	defer l.mu.Unlock()
	node, ok := l.nodes[label]
	if !ok {
		node = freshBlankNode()
		l.nodes[label] = node
	}
	return node
}

func freshBlankNode() *rdf.BlankNode {
	return rdf.NewBlankNode("b" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}
