package processor

import (
	"testing"
	"time"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/algebra"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/results"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ex = "http://example.org/"

func iri(local string) *rdf.NamedNode { return rdf.NewNamedNode(ex + local) }
func v(name string) *store.Variable    { return store.NewVariable(name) }

func testData() *store.MemoryDataset {
	data := store.NewMemoryDataset()
	data.AddTriple(rdf.NewTriple(iri("alice"), iri("knows"), iri("bob")))
	data.AddTriple(rdf.NewTriple(iri("bob"), iri("knows"), iri("carol")))
	data.AddTriple(rdf.NewTriple(iri("alice"), iri("name"), rdf.NewLiteral("Alice")))
	data.AddTriple(rdf.NewTriple(iri("bob"), iri("name"), rdf.NewLiteral("Bob")))
	return data
}

func knows() *algebra.BGP {
	return algebra.NewBGP(store.NewTriplePattern(v("s"), iri("knows"), v("o")))
}

// failing is an algebra node that always fails
type failing struct {
	err error
}

func (f *failing) Evaluate(*engine.Context) (engine.Multiset, error) { return nil, f.err }
func (f *failing) Variables() []string                              { return nil }

// panicking is an algebra node that panics
type panicking struct{}

func (panicking) Evaluate(*engine.Context) (engine.Multiset, error) { panic("boom") }
func (panicking) Variables() []string                              { return nil }

// recordingHandler records the handler calls and stops after limit rows
type recordingHandler struct {
	limit    int
	vars     []string
	rows     []*results.Result
	ends     []bool
	boolean  *bool
	startErr error
}

func (h *recordingHandler) StartResults() error { return h.startErr }

func (h *recordingHandler) HandleVariable(name string) (bool, error) {
	h.vars = append(h.vars, name)
	return true, nil
}

func (h *recordingHandler) HandleResult(r *results.Result) (bool, error) {
	h.rows = append(h.rows, r)
	return h.limit <= 0 || len(h.rows) < h.limit, nil
}

func (h *recordingHandler) HandleBooleanResult(value bool) error {
	h.boolean = &value
	return nil
}

func (h *recordingHandler) EndResults(ok bool) error {
	h.ends = append(h.ends, ok)
	return nil
}

func TestAsk(t *testing.T) {
	p := New(testData())

	result, err := p.ProcessQuery(&engine.Query{Type: engine.QueryTypeAsk, Algebra: algebra.NewBGP()})
	require.NoError(t, err)
	assert.True(t, result.(*results.ResultSet).Equals(results.NewBooleanResultSet(true)))

	result, err = p.ProcessQuery(&engine.Query{
		Type:    engine.QueryTypeAsk,
		Algebra: algebra.NewBGP(store.NewTriplePattern(v("s"), iri("hates"), v("o"))),
	})
	require.NoError(t, err)
	set := result.(*results.ResultSet)
	assert.Equal(t, results.ResultSetBoolean, set.Type())
	assert.False(t, set.Boolean())
}

func TestSelect(t *testing.T) {
	p := New(testData())
	q := &engine.Query{
		Type: engine.QueryTypeSelect,
		Algebra: &algebra.OrderBy{
			Input:      knows(),
			Conditions: []algebra.OrderCondition{{Expr: algebra.NewVar("s")}},
		},
		Variables: []string{"o", "s"},
	}

	result, err := p.ProcessQuery(q)
	require.NoError(t, err)

	set := result.(*results.ResultSet)
	assert.Equal(t, []string{"o", "s"}, set.Variables())
	require.Equal(t, 2, set.Count())
	first := set.Results()[0]
	assert.Equal(t, []string{"o", "s"}, first.Variables())
	assert.True(t, first.Value("s").Equals(iri("alice")))

	elapsed, ok := q.ExecutionTime()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
}

func TestSelectToTriples(t *testing.T) {
	p := New(testData())
	result, err := p.ProcessQuery(&engine.Query{
		Type: engine.QueryTypeSelect,
		Algebra: &algebra.LeftJoin{
			Left:  algebra.NewBGP(store.NewTriplePattern(v("s"), iri("knows"), v("x"))),
			Right: algebra.NewBGP(store.NewTriplePattern(v("x"), iri("name"), v("o"))),
		},
	})
	require.NoError(t, err)

	// carol has no name, so her row leaves ?o unbound
	set := result.(*results.ResultSet)
	require.Equal(t, 2, set.Count())
	triples := set.ToTriples("s", "x", "o")
	require.Len(t, triples, 1)
	assert.True(t, triples[0].Object.Equals(rdf.NewLiteral("Bob")))

	assert.Empty(t, set.ToTriples("", "", ""))
}

func TestHandlerStop(t *testing.T) {
	p := New(testData())
	h := &recordingHandler{limit: 1}

	err := p.ProcessQueryWithHandlers(nil, h, &engine.Query{Type: engine.QueryTypeSelect, Algebra: knows()})
	require.NoError(t, err)
	assert.Len(t, h.rows, 1)
	assert.Equal(t, []bool{true}, h.ends)
}

func TestHandlerFailure(t *testing.T) {
	p := New(testData())
	h := &recordingHandler{}
	q := &engine.Query{Type: engine.QueryTypeSelect, Algebra: &failing{err: errors.New("storage offline")}}

	err := p.ProcessQueryWithHandlers(nil, h, q)
	require.Error(t, err)
	assert.Equal(t, []bool{false}, h.ends)

	_, ok := q.ExecutionTime()
	assert.True(t, ok)
}

func TestHandlerStartFailure(t *testing.T) {
	p := New(testData())
	h := &recordingHandler{startErr: errors.New("closed")}

	err := p.ProcessQueryWithHandlers(nil, h, &engine.Query{Type: engine.QueryTypeAsk, Algebra: knows()})
	require.Error(t, err)
	assert.Equal(t, []bool{false}, h.ends)
	assert.Nil(t, h.boolean)
}

func TestMissingHandler(t *testing.T) {
	p := New(testData())
	err := p.ProcessQueryWithHandlers(nil, nil, &engine.Query{Type: engine.QueryTypeConstruct, Algebra: knows()})
	assert.Error(t, err)
}

func TestConstruct(t *testing.T) {
	p := New(testData())
	q := &engine.Query{
		Type:    engine.QueryTypeConstruct,
		Algebra: knows(),
		Template: []*store.Pattern{
			store.NewTriplePattern(v("o"), iri("knownBy"), v("s")),
			store.NewTriplePattern(rdf.NewBlankNode("link"), iri("from"), v("s")),
			store.NewTriplePattern(rdf.NewBlankNode("link"), iri("to"), v("o")),
			store.NewTriplePattern(v("s"), iri("label"), v("missing")),
		},
	}

	result, err := p.ProcessQuery(q)
	require.NoError(t, err)

	graph := result.(*results.Graph)
	assert.Equal(t, 6, graph.Count())

	// one fresh blank node per row, shared by the row's triples
	subjects := map[string]int{}
	for _, triple := range graph.Triples() {
		if b, ok := triple.Subject.(*rdf.BlankNode); ok {
			subjects[b.ID]++
		}
	}
	assert.Len(t, subjects, 2)
	for _, n := range subjects {
		assert.Equal(t, 2, n)
	}
}

func TestDescribe(t *testing.T) {
	p := New(testData())

	result, err := p.ProcessQuery(&engine.Query{
		Type:     engine.QueryTypeDescribe,
		Describe: []rdf.Term{iri("alice")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.(*results.Graph).Count())

	result, err = p.ProcessQuery(&engine.Query{
		Type:              engine.QueryTypeDescribe,
		Algebra:           algebra.NewBGP(store.NewTriplePattern(iri("alice"), iri("knows"), v("x"))),
		DescribeVariables: []string{"x"},
	})
	require.NoError(t, err)

	expected := results.NewGraph(
		rdf.NewTriple(iri("bob"), iri("knows"), iri("carol")),
		rdf.NewTriple(iri("bob"), iri("name"), rdf.NewLiteral("Bob")),
	)
	assert.True(t, expected.Equals(result.(*results.Graph)))
}

func tickingClock(step time.Duration) func() time.Time {
	now := time.Now()
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimeout(t *testing.T) {
	options := engine.DefaultOptions()
	options.QueryTimeout = 5
	p := New(testData(), WithOptions(options), WithContextOptions(engine.WithClock(tickingClock(10*time.Millisecond))))

	_, err := p.ProcessQuery(&engine.Query{Type: engine.QueryTypeSelect, Algebra: knows()})
	require.Error(t, err)
	assert.True(t, engine.IsTimeout(err))
}

func TestProcessQueryAsync(t *testing.T) {
	p := New(testData())

	type outcome struct {
		graph *results.Graph
		set   *results.ResultSet
		state any
		err   error
	}
	run := func(q *engine.Query) []outcome {
		ch := make(chan outcome, 2)
		p.ProcessQueryAsync(q,
			func(g *results.Graph, state any, err error) { ch <- outcome{graph: g, state: state, err: err} },
			func(s *results.ResultSet, state any, err error) { ch <- outcome{set: s, state: state, err: err} },
			"token",
		)
		var got []outcome
		got = append(got, <-ch)
		if got[0].err != nil {
			got = append(got, <-ch)
		}
		return got
	}

	got := run(&engine.Query{Type: engine.QueryTypeSelect, Algebra: knows()})
	require.Len(t, got, 1)
	require.NotNil(t, got[0].set)
	assert.Equal(t, 2, got[0].set.Count())
	assert.Equal(t, "token", got[0].state)

	got = run(&engine.Query{
		Type:     engine.QueryTypeConstruct,
		Algebra:  knows(),
		Template: []*store.Pattern{store.NewTriplePattern(v("o"), iri("knownBy"), v("s"))},
	})
	require.Len(t, got, 1)
	require.NotNil(t, got[0].graph)
	assert.Equal(t, 2, got[0].graph.Count())

	got = run(&engine.Query{Type: engine.QueryTypeSelect, Algebra: &failing{err: errors.New("disk")}})
	require.Len(t, got, 2)
	for _, o := range got {
		var asyncErr *AsyncError
		require.True(t, errors.As(o.err, &asyncErr))
		assert.Equal(t, "token", asyncErr.State)

		var envelope *AsyncEvaluationError
		assert.True(t, errors.As(asyncErr.Err, &envelope))
		assert.Nil(t, o.graph)
		assert.Nil(t, o.set)
	}
}

func TestProcessQueryWithHandlersAsync(t *testing.T) {
	p := New(testData())
	evalErr := &engine.EvaluationError{Msg: "bad query"}

	done := make(chan error, 1)
	h := &recordingHandler{}
	p.ProcessQueryWithHandlersAsync(nil, h, &engine.Query{Type: engine.QueryTypeSelect, Algebra: &failing{err: evalErr}},
		func(state any, err error) { done <- err }, nil)

	err := <-done
	var asyncErr *AsyncError
	require.True(t, errors.As(err, &asyncErr))
	// evaluation errors are not wrapped in the async envelope
	assert.Same(t, evalErr, asyncErr.Err)
	assert.Equal(t, []bool{false}, h.ends)

	h = &recordingHandler{}
	p.ProcessQueryWithHandlersAsync(nil, h, &engine.Query{Type: engine.QueryTypeSelect, Algebra: knows()},
		func(state any, err error) { done <- err }, nil)
	require.NoError(t, <-done)
	assert.Len(t, h.rows, 2)
}

func TestSubmit(t *testing.T) {
	p := New(testData())

	result, err := p.Submit(&engine.Query{Type: engine.QueryTypeAsk, Algebra: knows()}).Wait()
	require.NoError(t, err)
	assert.True(t, result.(*results.ResultSet).Boolean())

	f := p.Submit(&engine.Query{Type: engine.QueryTypeSelect, Algebra: panicking{}})
	<-f.Done()
	_, err = f.Wait()
	var envelope *AsyncEvaluationError
	assert.True(t, errors.As(err, &envelope))
}
