package processor

import (
	"sync"

	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/results"
	"github.com/pkg/errors"
)

// GraphCallback receives the graph of an asynchronous query. On failure
// graph is nil and err is an *AsyncError.
type GraphCallback func(graph *results.Graph, state any, err error)

// ResultsCallback receives the result set of an asynchronous query. On
// failure set is nil and err is an *AsyncError.
type ResultsCallback func(set *results.ResultSet, state any, err error)

// CompletionCallback is called once a handler based asynchronous query
// finished, with an *AsyncError on failure
type CompletionCallback func(state any, err error)

// ProcessQueryAsync evaluates q in the background. On success onResults is
// called when the query produced a result set and onGraph otherwise; on
// failure both are called with the error.
func (p *Processor) ProcessQueryAsync(q *engine.Query, onGraph GraphCallback, onResults ResultsCallback, state any) {
	go func() {
		graph := results.NewGraph()
		set := results.NewResultSet()
		err := p.recovered(func() error {
			return p.ProcessQueryWithHandlers(results.NewGraphHandler(graph), results.NewResultSetHandler(set), q)
		})

		if err != nil {
			asyncErr := p.asyncError(q, err, state)
			if onGraph != nil {
				onGraph(nil, state, asyncErr)
			}
			if onResults != nil {
				onResults(nil, state, asyncErr)
			}
			return
		}

		if set.Type() != results.ResultSetUnknown {
			if onResults != nil {
				onResults(set, state, nil)
			}
			return
		}
		if onGraph != nil {
			onGraph(graph, state, nil)
		}
	}()
}

// ProcessQueryWithHandlersAsync streams q to the handlers in the background
// and calls onComplete when done
func (p *Processor) ProcessQueryWithHandlersAsync(rdfHandler results.RDFHandler, resultsHandler results.ResultsHandler, q *engine.Query, onComplete CompletionCallback, state any) {
	go func() {
		err := p.recovered(func() error {
			return p.ProcessQueryWithHandlers(rdfHandler, resultsHandler, q)
		})
		if onComplete == nil {
			return
		}
		if err != nil {
			onComplete(state, p.asyncError(q, err, state))
			return
		}
		onComplete(state, nil)
	}()
}

func (p *Processor) asyncError(q *engine.Query, err error, state any) *AsyncError {
	err = normalizeAsync(err)
	p.logger.V(1).Info("async query failed", "query", q.Type.String(), "error", err.Error())
	return &AsyncError{Err: err, State: state}
}

// recovered runs fn, turning a panic into an error
func (p *Processor) recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic during evaluation: %v", r)
		}
	}()
	return fn()
}

// Future is the pending result of a submitted query
type Future struct {
	done   chan struct{}
	once   sync.Once
	result results.QueryResult
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve settles the future; only the first call has an effect
func (f *Future) resolve(result results.QueryResult, err error) {
	f.once.Do(func() {
		f.result, f.err = result, err
		close(f.done)
	})
}

// Done is closed once the result is available
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the query finished and returns its result. Query
// evaluation errors are returned as is, anything else as an
// *AsyncEvaluationError.
func (f *Future) Wait() (results.QueryResult, error) {
	<-f.done
	return f.result, f.err
}

// Submit evaluates q in the background
func (p *Processor) Submit(q *engine.Query) *Future {
	f := newFuture()
	go func() {
		var result results.QueryResult
		err := p.recovered(func() error {
			var err error
			result, err = p.ProcessQuery(q)
			return err
		})
		if err != nil {
			f.resolve(nil, normalizeAsync(err))
			return
		}
		f.resolve(result, nil)
	}()
	return f
}
