package engine

import (
	"sync"
	"time"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
)

// Algebra is a node of a query algebra tree
type Algebra interface {
	// Evaluate computes the node's output multiset against ctx
	Evaluate(ctx *Context) (Multiset, error)

	// Variables returns the variables the node may bind
	Variables() []string
}

// Processor evaluates algebra nodes on behalf of a Context, replacing the
// node's own Evaluate
type Processor interface {
	ProcessAlgebra(node Algebra, ctx *Context) (Multiset, error)
}

// QueryType identifies the query form
type QueryType int

const (
	QueryTypeSelect QueryType = iota
	QueryTypeAsk
	QueryTypeConstruct
	QueryTypeDescribe
)

func (t QueryType) String() string {
	switch t {
	case QueryTypeSelect:
		return "SELECT"
	case QueryTypeAsk:
		return "ASK"
	case QueryTypeConstruct:
		return "CONSTRUCT"
	case QueryTypeDescribe:
		return "DESCRIBE"
	default:
		return "UNKNOWN"
	}
}

// Query is a parsed query ready for evaluation
type Query struct {
	Type    QueryType
	Algebra Algebra

	// Variables is the SELECT projection, in output order
	Variables []string

	// Template holds the CONSTRUCT template patterns
	Template []*store.Pattern

	// Describe lists the terms named by DESCRIBE; variables are taken from
	// the solutions of Algebra
	Describe []rdf.Term
	// DescribeVariables lists the variables named by DESCRIBE
	DescribeVariables []string

	// Timeout is the requested timeout in milliseconds, zero or less for none
	Timeout int64

	mu            sync.Mutex
	executionTime *time.Duration
}

// SetExecutionTime records the wall time of the last evaluation
func (q *Query) SetExecutionTime(d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.executionTime = &d
}

// ResetExecutionTime clears the recorded execution time
func (q *Query) ResetExecutionTime() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.executionTime = nil
}

// ExecutionTime returns the recorded execution time, if any
func (q *Query) ExecutionTime() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.executionTime == nil {
		return 0, false
	}
	return *q.executionTime, true
}
