package results

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
)

// ResultsHandler receives ASK and SELECT results as they are produced.
// Returning false from a Handle method stops the stream cleanly.
// EndResults is called exactly once per stream: true when streaming
// completed or the handler stopped it, false when evaluation failed.
type ResultsHandler interface {
	StartResults() error
	HandleVariable(name string) (bool, error)
	HandleResult(r *Result) (bool, error)
	HandleBooleanResult(value bool) error
	EndResults(ok bool) error
}

// RDFHandler receives CONSTRUCT and DESCRIBE triples, with the same stop
// and completion rules as ResultsHandler
type RDFHandler interface {
	StartRDF() error
	HandleTriple(t *rdf.Triple) (bool, error)
	EndRDF(ok bool) error
}

// ResultSetHandler collects streamed results into a ResultSet
type ResultSetHandler struct {
	set *ResultSet
}

// NewResultSetHandler creates a handler filling set
func NewResultSetHandler(set *ResultSet) *ResultSetHandler {
	return &ResultSetHandler{set: set}
}

// ResultSet returns the collected result set
func (h *ResultSetHandler) ResultSet() *ResultSet {
	return h.set
}

func (h *ResultSetHandler) StartResults() error {
	return nil
}

func (h *ResultSetHandler) HandleVariable(name string) (bool, error) {
	return true, h.set.AddVariable(name)
}

func (h *ResultSetHandler) HandleResult(r *Result) (bool, error) {
	return true, h.set.AddResult(r)
}

func (h *ResultSetHandler) HandleBooleanResult(value bool) error {
	return h.set.SetBoolean(value)
}

func (h *ResultSetHandler) EndResults(ok bool) error {
	return nil
}

// GraphHandler collects streamed triples into a Graph
type GraphHandler struct {
	graph *Graph
}

// NewGraphHandler creates a handler filling graph
func NewGraphHandler(graph *Graph) *GraphHandler {
	return &GraphHandler{graph: graph}
}

// Graph returns the collected graph
func (h *GraphHandler) Graph() *Graph {
	return h.graph
}

func (h *GraphHandler) StartRDF() error {
	return nil
}

func (h *GraphHandler) HandleTriple(t *rdf.Triple) (bool, error) {
	h.graph.Assert(t)
	return true, nil
}

func (h *GraphHandler) EndRDF(ok bool) error {
	return nil
}
