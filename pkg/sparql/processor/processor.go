// Package processor evaluates queries against a dataset and delivers the
// results, either materialised, streamed to handlers or asynchronously.
package processor

import (
	"fmt"
	"strings"
	"time"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/results"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// QueryProcessor is the client facing query evaluation contract
type QueryProcessor interface {
	ProcessQuery(q *engine.Query) (results.QueryResult, error)
	ProcessQueryWithHandlers(rdfHandler results.RDFHandler, resultsHandler results.ResultsHandler, q *engine.Query) error
	ProcessQueryAsync(q *engine.Query, onGraph GraphCallback, onResults ResultsCallback, state any)
	ProcessQueryWithHandlersAsync(rdfHandler results.RDFHandler, resultsHandler results.ResultsHandler, q *engine.Query, onComplete CompletionCallback, state any)
}

var (
	_ QueryProcessor   = (*Processor)(nil)
	_ engine.Processor = (*Processor)(nil)
)

// Option configures a Processor
type Option func(*Processor)

// WithOptions sets the evaluation options
func WithOptions(options engine.Options) Option {
	return func(p *Processor) {
		p.options = options
	}
}

// WithLogger sets the logger
func WithLogger(logger logr.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithContextOptions adds options applied to every evaluation context
func WithContextOptions(opts ...engine.ContextOption) Option {
	return func(p *Processor) {
		p.contextOptions = append(p.contextOptions, opts...)
	}
}

// Processor evaluates queries in process over a dataset
type Processor struct {
	data           store.Dataset
	options        engine.Options
	logger         logr.Logger
	contextOptions []engine.ContextOption
}

// New creates a processor over data
func New(data store.Dataset, opts ...Option) *Processor {
	p := &Processor{
		data:    data,
		options: engine.DefaultOptions(),
		logger:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) newContext(q *engine.Query) *engine.Context {
	opts := []engine.ContextOption{
		engine.WithLogger(p.logger),
		engine.WithProcessor(p),
	}
	return engine.NewContext(q, p.data, p.options, append(opts, p.contextOptions...)...)
}

// ProcessAlgebra evaluates one algebra node, tracing it at V(2)
func (p *Processor) ProcessAlgebra(node engine.Algebra, ctx *engine.Context) (engine.Multiset, error) {
	result, err := node.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	ctx.Logger().V(2).Info("evaluated", "node", nodeName(node), "count", result.Count())
	return result, nil
}

func nodeName(node engine.Algebra) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", node), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ProcessQuery evaluates q and returns a *results.ResultSet for ASK and
// SELECT or a *results.Graph for CONSTRUCT and DESCRIBE
func (p *Processor) ProcessQuery(q *engine.Query) (results.QueryResult, error) {
	switch q.Type {
	case engine.QueryTypeAsk, engine.QueryTypeSelect:
		h := results.NewResultSetHandler(results.NewResultSet())
		if err := p.ProcessQueryWithHandlers(nil, h, q); err != nil {
			return nil, err
		}
		return h.ResultSet(), nil
	default:
		h := results.NewGraphHandler(results.NewGraph())
		if err := p.ProcessQueryWithHandlers(h, nil, q); err != nil {
			return nil, err
		}
		return h.Graph(), nil
	}
}

// ProcessQueryWithHandlers evaluates q and streams the results to the
// handler matching the query type. The execution time of q is reset at the
// start and recorded when evaluation ends, successfully or not.
func (p *Processor) ProcessQueryWithHandlers(rdfHandler results.RDFHandler, resultsHandler results.ResultsHandler, q *engine.Query) (err error) {
	q.ResetExecutionTime()
	start := time.Now()
	defer func() {
		q.SetExecutionTime(time.Since(start))
	}()

	ctx := p.newContext(q)
	logger := ctx.Logger().WithValues("query", q.Type.String())
	ctx.StartExecution(p.options.QueryTimeout)
	defer ctx.EndExecution()

	switch q.Type {
	case engine.QueryTypeAsk, engine.QueryTypeSelect:
		if resultsHandler == nil {
			return errors.Errorf("%s query requires a results handler", q.Type)
		}
		err = p.streamResults(ctx, resultsHandler)
	case engine.QueryTypeConstruct, engine.QueryTypeDescribe:
		if rdfHandler == nil {
			return errors.Errorf("%s query requires an RDF handler", q.Type)
		}
		err = p.streamGraph(ctx, rdfHandler)
	default:
		return errors.Errorf("unsupported query type %s", q.Type)
	}

	if err != nil {
		if engine.IsTimeout(err) {
			logger.V(1).Info("query timed out", "timeout", ctx.Timeout(), "elapsed", ctx.Elapsed())
		} else {
			logger.Error(err, "query failed")
		}
		return err
	}
	logger.V(1).Info("query completed", "elapsed", time.Since(start))
	return nil
}

func evaluate(ctx *engine.Context) (engine.Multiset, error) {
	if ctx.Query().Algebra == nil {
		return engine.NewIdentity(), nil
	}
	return ctx.Evaluate(ctx.Query().Algebra)
}

func (p *Processor) streamResults(ctx *engine.Context, h results.ResultsHandler) (err error) {
	completed := false
	defer func() {
		if endErr := h.EndResults(completed); err == nil {
			err = endErr
		}
	}()
	if err := h.StartResults(); err != nil {
		return err
	}

	out, err := evaluate(ctx)
	if err != nil {
		return err
	}

	if ctx.Query().Type == engine.QueryTypeAsk {
		if err := h.HandleBooleanResult(!out.IsEmpty()); err != nil {
			return err
		}
		completed = true
		return nil
	}

	completed, err = emitRows(ctx, h, out)
	return err
}

// emitRows streams the rows of out. It reports true when every row was
// handled or the handler asked to stop.
func emitRows(ctx *engine.Context, h results.ResultsHandler, out engine.Multiset) (bool, error) {
	vars := ctx.Query().Variables
	if len(vars) == 0 {
		vars = out.Variables()
	}

	for _, v := range vars {
		more, err := h.HandleVariable(v)
		if err != nil {
			return false, err
		}
		if !more {
			return true, nil
		}
	}

	for _, id := range out.SetIDs() {
		if err := ctx.CheckTimeout(); err != nil {
			return false, err
		}
		set, err := out.Set(id)
		if err != nil {
			return false, err
		}
		row, err := results.NewOrderedResult(project(set, vars), vars)
		if err != nil {
			return false, err
		}
		more, err := h.HandleResult(row)
		if err != nil {
			return false, err
		}
		if !more {
			return true, nil
		}
	}
	return true, nil
}

func project(set *engine.Set, vars []string) *engine.Set {
	projected := engine.NewSet()
	for _, v := range vars {
		if value, ok := set.Lookup(v); ok {
			projected.Add(v, value)
		}
	}
	return projected
}

func (p *Processor) streamGraph(ctx *engine.Context, h results.RDFHandler) (err error) {
	completed := false
	defer func() {
		if endErr := h.EndRDF(completed); err == nil {
			err = endErr
		}
	}()
	if err := h.StartRDF(); err != nil {
		return err
	}

	out, err := evaluate(ctx)
	if err != nil {
		return err
	}

	if ctx.Query().Type == engine.QueryTypeConstruct {
		completed, err = construct(ctx, h, out)
	} else {
		completed, err = describe(ctx, h, out)
	}
	return err
}

// construct instantiates the template once per row. Template blank nodes
// get fresh labels for every row; triples with an unbound or ill-typed
// position are skipped.
func construct(ctx *engine.Context, h results.RDFHandler, out engine.Multiset) (bool, error) {
	for _, id := range out.SetIDs() {
		if err := ctx.CheckTimeout(); err != nil {
			return false, err
		}
		set, err := out.Set(id)
		if err != nil {
			return false, err
		}

		blanks := make(map[string]*rdf.BlankNode)
		for _, pattern := range ctx.Query().Template {
			triple := instantiate(pattern, set, blanks)
			if triple == nil {
				continue
			}
			more, err := h.HandleTriple(triple)
			if err != nil {
				return false, err
			}
			if !more {
				return true, nil
			}
		}
	}
	return true, nil
}

func instantiate(pattern *store.Pattern, set *engine.Set, blanks map[string]*rdf.BlankNode) *rdf.Triple {
	term := func(pos any) rdf.Term {
		switch t := pos.(type) {
		case *store.Variable:
			return set.Value(t.Name)
		case *rdf.BlankNode:
			b, ok := blanks[t.ID]
			if !ok {
				b = rdf.NewBlankNode("b" + strings.ReplaceAll(uuid.NewString(), "-", ""))
				blanks[t.ID] = b
			}
			return b
		case rdf.Term:
			return t
		default:
			return nil
		}
	}

	subject, predicate, object := term(pattern.Subject), term(pattern.Predicate), term(pattern.Object)
	if subject == nil || predicate == nil || object == nil {
		return nil
	}
	if subject.Type() == rdf.TermTypeLiteral || predicate.Type() != rdf.TermTypeNamedNode {
		return nil
	}
	return rdf.NewTriple(subject, predicate, object)
}

// describe emits the concise description, every triple in the default
// graph with the resource as subject, of the listed resources and of the
// IRIs bound in the solutions
func describe(ctx *engine.Context, h results.RDFHandler, out engine.Multiset) (bool, error) {
	resources, err := describedResources(ctx.Query(), out)
	if err != nil {
		return false, err
	}

	for _, resource := range resources {
		more, err := describeResource(ctx, h, resource)
		if err != nil {
			return false, err
		}
		if !more {
			return true, nil
		}
	}
	return true, nil
}

func describedResources(q *engine.Query, out engine.Multiset) ([]rdf.Term, error) {
	var resources []rdf.Term
	seen := make(map[string]bool)
	add := func(term rdf.Term) {
		if term == nil || term.Type() == rdf.TermTypeLiteral {
			return
		}
		key := rdf.SerializeTermCanonical(term)
		if !seen[key] {
			seen[key] = true
			resources = append(resources, term)
		}
	}

	for _, term := range q.Describe {
		add(term)
	}
	if q.Algebra == nil {
		return resources, nil
	}

	for _, id := range out.SetIDs() {
		set, err := out.Set(id)
		if err != nil {
			return nil, err
		}
		vars := q.DescribeVariables
		if len(vars) == 0 {
			vars = set.Variables()
		}
		for _, v := range vars {
			if value, ok := set.Value(v).(*rdf.NamedNode); ok {
				add(value)
			}
		}
	}
	return resources, nil
}

func describeResource(ctx *engine.Context, h results.RDFHandler, resource rdf.Term) (bool, error) {
	iter, err := ctx.Data().Match(store.NewTriplePattern(resource, store.NewVariable("p"), store.NewVariable("o")))
	if err != nil {
		return false, errors.Wrapf(err, "describe %s", resource)
	}
	defer iter.Close()

	for iter.Next() {
		if err := ctx.CheckTimeout(); err != nil {
			return false, err
		}
		quad, err := iter.Quad()
		if err != nil {
			return false, err
		}
		more, err := h.HandleTriple(quad.Triple())
		if err != nil {
			return false, err
		}
		if !more {
			return true, nil
		}
	}
	return true, errors.Wrapf(iter.Close(), "describe %s", resource)
}
