package store

import (
	"encoding/binary"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
)

// EncodedTermSize is a type byte followed by a 128-bit hash
const EncodedTermSize = 17

// EncodedTerm represents a term encoded as a type byte followed by a 128-bit xxh3 hash
// of its canonical serialization
type EncodedTerm [EncodedTermSize]byte

// Type returns the term type recorded in the first byte
func (e EncodedTerm) Type() rdf.TermType {
	return rdf.TermType(e[0])
}

// TermEncoder handles encoding and decoding of RDF terms
type TermEncoder struct{}

func NewTermEncoder() *TermEncoder {
	return &TermEncoder{}
}

// Hash128 computes a 128-bit xxhash3 hash of the input string
func (e *TermEncoder) Hash128(s string) [16]byte {
	hash := xxh3.HashString128(s)
	var result [16]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// EncodeTerm encodes an RDF term into a fixed-size key.
// The default graph encodes to its type byte followed by zeros.
func (e *TermEncoder) EncodeTerm(term rdf.Term) (EncodedTerm, error) {
	var encoded EncodedTerm
	if term == nil {
		return encoded, errors.New("cannot encode nil term")
	}

	encoded[0] = byte(term.Type())
	switch t := term.(type) {
	case *rdf.NamedNode, *rdf.BlankNode, *rdf.Literal:
		hash := e.Hash128(rdf.SerializeTermCanonical(t))
		copy(encoded[1:], hash[:])
	case *rdf.DefaultGraph:
	default:
		return encoded, errors.Errorf("unknown term type: %T", term)
	}
	return encoded, nil
}

// EncodeQuadKey encodes a quad key for one of the indexes
func (e *TermEncoder) EncodeQuadKey(terms ...EncodedTerm) []byte {
	key := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, term := range terms {
		key = append(key, term[:]...)
	}
	return key
}

// MarshalTerm serializes the components of a term for the term dictionary.
// Layout: type byte, then value, language and datatype IRI as uvarint-length-prefixed strings.
func (e *TermEncoder) MarshalTerm(term rdf.Term) ([]byte, error) {
	var value, language, datatype string
	switch t := term.(type) {
	case *rdf.NamedNode:
		value = t.IRI
	case *rdf.BlankNode:
		value = t.ID
	case *rdf.Literal:
		value, language = t.Value, t.Language
		if t.Datatype != nil {
			datatype = t.Datatype.IRI
		}
	case *rdf.DefaultGraph:
	default:
		return nil, errors.Errorf("unknown term type: %T", term)
	}

	buf := []byte{byte(term.Type())}
	for _, s := range []string{value, language, datatype} {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return buf, nil
}

// UnmarshalTerm decodes a term dictionary record
func (e *TermEncoder) UnmarshalTerm(data []byte) (rdf.Term, error) {
	if len(data) == 0 {
		return nil, errors.New("empty term record")
	}

	termType := rdf.TermType(data[0])
	rest := data[1:]
	var fields [3]string
	for i := range fields {
		n, size := binary.Uvarint(rest)
		if size <= 0 || uint64(len(rest)-size) < n {
			return nil, errors.Errorf("corrupt term record for %s", termType)
		}
		fields[i] = string(rest[size : size+int(n)])
		rest = rest[size+int(n):]
	}

	switch termType {
	case rdf.TermTypeNamedNode:
		return rdf.NewNamedNode(fields[0]), nil
	case rdf.TermTypeBlankNode:
		return rdf.NewBlankNode(fields[0]), nil
	case rdf.TermTypeLiteral:
		lit := &rdf.Literal{Value: fields[0], Language: fields[1]}
		if fields[2] != "" {
			lit.Datatype = rdf.NewNamedNode(fields[2])
		}
		return lit, nil
	case rdf.TermTypeDefaultGraph:
		return rdf.NewDefaultGraph(), nil
	default:
		return nil, errors.Errorf("unknown term type byte: %d", termType)
	}
}
