package store

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// DefaultTermCacheSize is the number of decoded terms kept in memory
const DefaultTermCacheSize = 4096

// indexOrders maps each quad index to its key order (S=0, P=1, O=2, G=3)
var indexOrders = []struct {
	table Table
	order [4]int
}{
	{TableSPOG, [4]int{0, 1, 2, 3}},
	{TablePOSG, [4]int{1, 2, 0, 3}},
	{TableOSPG, [4]int{2, 0, 1, 3}},
	{TableGSPO, [4]int{3, 0, 1, 2}},
	{TableGPOS, [4]int{3, 1, 2, 0}},
	{TableGOSP, [4]int{3, 2, 0, 1}},
}

// TripleStore manages the RDF quads over a Storage with six quad indexes
type TripleStore struct {
	storage Storage
	encoder *TermEncoder
	terms   *lru.Cache[EncodedTerm, rdf.Term]
}

// NewTripleStore creates a new triplestore
func NewTripleStore(storage Storage) (*TripleStore, error) {
	cache, err := lru.New[EncodedTerm, rdf.Term](DefaultTermCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create term cache")
	}
	return &TripleStore{
		storage: storage,
		encoder: NewTermEncoder(),
		terms:   cache,
	}, nil
}

// Close closes the triplestore
func (s *TripleStore) Close() error {
	return s.storage.Close()
}

// InsertTriple inserts a triple into the default graph
func (s *TripleStore) InsertTriple(triple *rdf.Triple) error {
	return s.InsertQuads([]*rdf.Quad{rdf.NewQuad(triple.Subject, triple.Predicate, triple.Object, rdf.NewDefaultGraph())})
}

// InsertQuad inserts a quad into the store
func (s *TripleStore) InsertQuad(quad *rdf.Quad) error {
	return s.InsertQuads([]*rdf.Quad{quad})
}

// InsertQuads inserts quads in a single transaction
func (s *TripleStore) InsertQuads(quads []*rdf.Quad) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback() // #nosec G104 - no-op after commit

	for _, quad := range quads {
		if err := s.insertQuadInTxn(txn, quad); err != nil {
			return err
		}
	}
	return txn.Commit()
}

// insertQuadInTxn inserts a quad within an existing transaction
func (s *TripleStore) insertQuadInTxn(txn Transaction, quad *rdf.Quad) error {
	graph := quad.Graph
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	terms := [4]rdf.Term{quad.Subject, quad.Predicate, quad.Object, graph}

	var encoded [4]EncodedTerm
	for i, term := range terms {
		enc, err := s.encoder.EncodeTerm(term)
		if err != nil {
			return errors.Wrapf(err, "failed to encode quad position %d", i)
		}
		if err := s.storeTerm(txn, enc, term); err != nil {
			return err
		}
		encoded[i] = enc
	}

	// Empty value for all index entries
	emptyValue := []byte{}
	for _, idx := range indexOrders {
		key := s.encoder.EncodeQuadKey(encoded[idx.order[0]], encoded[idx.order[1]], encoded[idx.order[2]], encoded[idx.order[3]])
		if err := txn.Set(idx.table, key, emptyValue); err != nil {
			return err
		}
	}
	return nil
}

// storeTerm stores the term record in the dictionary unless already present
func (s *TripleStore) storeTerm(txn Transaction, encoded EncodedTerm, term rdf.Term) error {
	if encoded.Type() == rdf.TermTypeDefaultGraph {
		return nil
	}
	if _, ok := s.terms.Get(encoded); ok {
		return nil
	}

	_, err := txn.Get(TableID2Term, encoded[:])
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	record, err := s.encoder.MarshalTerm(term)
	if err != nil {
		return err
	}
	return txn.Set(TableID2Term, encoded[:], record)
}

// Count returns the number of quads in the store
func (s *TripleStore) Count() (int64, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback() // #nosec G104 - read-only transaction

	it, err := txn.Scan(TableSPOG, nil)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	count := int64(0)
	for it.Next() {
		count++
	}
	return count, nil
}

// Match executes a pattern match and returns matching quads
func (s *TripleStore) Match(pattern *Pattern) (QuadIterator, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}

	// Select the best index based on bound positions
	table, order := s.selectIndex(pattern)

	prefix, err := s.buildScanPrefix(pattern, order)
	if err != nil {
		_ = txn.Rollback() // #nosec G104 - rollback error less important than original error
		return nil, err
	}

	it, err := txn.Scan(table, prefix)
	if err != nil {
		_ = txn.Rollback() // #nosec G104 - rollback error less important than original error
		return nil, err
	}

	return &quadIterator{
		store:   s,
		txn:     txn,
		it:      it,
		pattern: pattern,
		order:   order,
	}, nil
}

// selectIndex chooses the index whose key order has the longest run of bound leading positions
func (s *TripleStore) selectIndex(pattern *Pattern) (Table, [4]int) {
	positions := pattern.Positions()
	best, bestLen := 0, -1
	for i, idx := range indexOrders {
		n := 0
		for _, pos := range idx.order {
			if IsVariable(positions[pos]) {
				break
			}
			n++
		}
		if n > bestLen {
			best, bestLen = i, n
		}
	}
	return indexOrders[best].table, indexOrders[best].order
}

// buildScanPrefix builds a key prefix for scanning based on bound positions
func (s *TripleStore) buildScanPrefix(pattern *Pattern, order [4]int) ([]byte, error) {
	positions := pattern.Positions()

	var prefix []byte
	for _, idx := range order {
		pos := positions[idx]
		if IsVariable(pos) {
			// Stop at first variable
			break
		}
		encoded, err := s.encoder.EncodeTerm(pos.(rdf.Term))
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, encoded[:]...)
	}
	return prefix, nil
}

// decodeTerm decodes an encoded term back to an rdf.Term through the dictionary
func (s *TripleStore) decodeTerm(txn Transaction, encoded EncodedTerm) (rdf.Term, error) {
	if encoded.Type() == rdf.TermTypeDefaultGraph {
		return rdf.NewDefaultGraph(), nil
	}
	if term, ok := s.terms.Get(encoded); ok {
		return term, nil
	}

	record, err := txn.Get(TableID2Term, encoded[:])
	if err != nil {
		return nil, errors.Wrapf(err, "term dictionary lookup for %s term", encoded.Type())
	}
	term, err := s.encoder.UnmarshalTerm(record)
	if err != nil {
		return nil, err
	}
	s.terms.Add(encoded, term)
	return term, nil
}

// quadIterator implements QuadIterator over one index scan
type quadIterator struct {
	store   *TripleStore
	txn     Transaction
	it      Iterator
	pattern *Pattern
	order   [4]int
	current *rdf.Quad
	err     error
	closed  bool
}

func (qi *quadIterator) Next() bool {
	if qi.closed || qi.err != nil {
		return false
	}
	for qi.it.Next() {
		quad, err := qi.decode(qi.it.Key())
		if err != nil {
			qi.err = err
			return false
		}
		// The prefix only covers the leading bound positions
		if !qi.pattern.Matches(quad) {
			continue
		}
		qi.current = quad
		return true
	}
	qi.current = nil
	return false
}

func (qi *quadIterator) decode(key []byte) (*rdf.Quad, error) {
	if len(key) < 4*EncodedTermSize {
		return nil, errors.Errorf("invalid key length: %d", len(key))
	}

	var terms [4]rdf.Term
	for i, pos := range qi.order {
		var encoded EncodedTerm
		copy(encoded[:], key[i*EncodedTermSize:(i+1)*EncodedTermSize])
		term, err := qi.store.decodeTerm(qi.txn, encoded)
		if err != nil {
			return nil, err
		}
		terms[pos] = term
	}
	return rdf.NewQuad(terms[0], terms[1], terms[2], terms[3]), nil
}

func (qi *quadIterator) Quad() (*rdf.Quad, error) {
	if qi.err != nil {
		return nil, qi.err
	}
	if qi.closed || qi.current == nil {
		return nil, errors.New("no current quad")
	}
	return qi.current, nil
}

func (qi *quadIterator) Close() error {
	if qi.closed {
		return qi.err
	}
	qi.closed = true
	_ = qi.it.Close() // #nosec G104 - iterator close error less critical than transaction rollback error
	if err := qi.txn.Rollback(); err != nil {
		return err
	}
	return qi.err
}
