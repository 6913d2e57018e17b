package engine

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// ContextOption configures a Context
type ContextOption func(*Context)

// WithProcessor routes algebra evaluation through p instead of each node's own Evaluate
func WithProcessor(p Processor) ContextOption {
	return func(c *Context) {
		c.processor = p
	}
}

// WithLogger sets the logger
func WithLogger(logger logr.Logger) ContextOption {
	return func(c *Context) {
		c.logger = logger
	}
}

// WithClock replaces the wall clock used for timeout accounting
func WithClock(now func() time.Time) ContextOption {
	return func(c *Context) {
		c.clock.now = now
	}
}

// WithHTTPClient supplies the client returned by HTTPClient
func WithHTTPClient(client *http.Client) ContextOption {
	return func(c *Context) {
		c.http.client = client
		c.http.once.Do(func() {})
	}
}

// Context holds the state of one query evaluation. It is not safe for
// concurrent use; concurrent branches evaluate in forks (see Fork).
type Context struct {
	id        uuid.UUID
	query     *Query
	data      store.Dataset
	options   Options
	processor Processor
	logger    logr.Logger

	input  Multiset
	output Multiset
	binder Binder

	// shared with forks
	state         *functionState
	clock         *executionClock
	orderComparer *OrderComparer
	valueComparer *ValueComparer
	http          *lazyClient
}

// NewContext creates an evaluation context for query over data.
// query may be nil when evaluating a bare algebra tree.
func NewContext(query *Query, data store.Dataset, options Options, opts ...ContextOption) *Context {
	c := &Context{
		id:            uuid.New(),
		query:         query,
		data:          data,
		options:       options,
		logger:        logr.Discard(),
		input:         NewIdentity(),
		state:         &functionState{values: make(map[any]any)},
		clock:         &executionClock{now: time.Now},
		orderComparer: NewOrderComparer(options.Culture, options.StrictStringComparison),
		valueComparer: NewValueComparer(options.StrictStringComparison),
		http:          &lazyClient{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithValues("context", c.id.String())
	c.binder = NewContextBinder(c)
	return c
}

// ID returns the unique id of the evaluation
func (c *Context) ID() uuid.UUID {
	return c.id
}

// Query returns the query being evaluated, possibly nil
func (c *Context) Query() *Query {
	return c.query
}

// Data returns the dataset queried
func (c *Context) Data() store.Dataset {
	return c.data
}

// Options returns the evaluation options
func (c *Context) Options() Options {
	return c.options
}

// Logger returns the evaluation logger
func (c *Context) Logger() logr.Logger {
	return c.logger
}

// Input returns the multiset operators read from
func (c *Context) Input() Multiset {
	return c.input
}

// SetInput replaces the input multiset
func (c *Context) SetInput(m Multiset) {
	c.input = m
}

// Output returns the multiset produced by the last evaluation
func (c *Context) Output() Multiset {
	return c.output
}

// SetOutput replaces the output multiset
func (c *Context) SetOutput(m Multiset) {
	c.output = m
}

// Binder returns the active binder
func (c *Context) Binder() Binder {
	return c.binder
}

// SetBinder replaces the active binder and returns the previous one
func (c *Context) SetBinder(b Binder) Binder {
	prev := c.binder
	c.binder = b
	return prev
}

// OrderComparer returns the comparer used for ORDER BY
func (c *Context) OrderComparer() *OrderComparer {
	return c.orderComparer
}

// ValueComparer returns the comparer used for value equality
func (c *Context) ValueComparer() *ValueComparer {
	return c.valueComparer
}

// Fork returns a sub-context sharing the query, dataset, options, timer,
// function state and comparers, with its own input, output and binder
func (c *Context) Fork() *Context {
	f := *c
	f.output = nil
	f.binder = NewContextBinder(&f)
	return &f
}

// Evaluate evaluates node against the context, through the configured
// processor if any, and records the result as the output
func (c *Context) Evaluate(node Algebra) (Multiset, error) {
	if err := c.CheckTimeout(); err != nil {
		return nil, err
	}

	var (
		result Multiset
		err    error
	)
	if c.processor != nil {
		result, err = c.processor.ProcessAlgebra(node, c)
	} else {
		result, err = node.Evaluate(c)
	}
	if err != nil {
		return nil, err
	}

	c.output = result
	return result, nil
}

// Get returns the function state stored under key, nil if never set
func (c *Context) Get(key any) any {
	return c.state.get(key)
}

// Set stores function state under key, replacing any previous value
func (c *Context) Set(key, value any) {
	c.state.set(key, value)
}

// GetOrSet returns the function state stored under key, storing the result
// of create first when there is none. Forks calling it concurrently observe
// the same value.
func (c *Context) GetOrSet(key any, create func() any) any {
	return c.state.getOrSet(key, create)
}

// HTTPClient returns the context's HTTP client, creating it on first use.
// The client carries no timeout of its own; bound each request with
// RequestContext.
func (c *Context) HTTPClient() *http.Client {
	c.http.once.Do(func() {
		c.http.client = &http.Client{}
	})
	return c.http.client
}

// RequestContext derives a context for one outgoing request whose deadline
// is the time the query has left when it is called. It is already cancelled,
// with the timeout error as cause, once the query has timed out.
func (c *Context) RequestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if err := c.CheckTimeout(); err != nil {
		ctx, cancel := context.WithCancelCause(parent)
		cancel(err)
		return ctx, func() { cancel(nil) }
	}
	remaining := c.RemainingTimeout()
	if remaining <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, time.Duration(remaining)*time.Millisecond)
}

type functionState struct {
	mu     sync.Mutex
	values map[any]any
}

func (s *functionState) get(key any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func (s *functionState) set(key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *functionState) getOrSet(key any, create func() any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		value = create()
		s.values[key] = value
	}
	return value
}

type lazyClient struct {
	once   sync.Once
	client *http.Client
}
