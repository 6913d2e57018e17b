package rdf

import (
	"fmt"
	"strings"
)

// SerializeTriplesCanonical serializes triples to canonical N-Triples format (C14N)
// Note: Canonical form specifies representation, NOT ordering. Input order is preserved.
func SerializeTriplesCanonical(triples []*Triple) string {
	if len(triples) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, triple := range triples {
		builder.WriteString(SerializeTermCanonical(triple.Subject))
		builder.WriteString(" ")
		builder.WriteString(SerializeTermCanonical(triple.Predicate))
		builder.WriteString(" ")
		builder.WriteString(SerializeTermCanonical(triple.Object))
		builder.WriteString(" .\n")
	}

	return builder.String()
}

// SerializeTermCanonical serializes a single RDF term in canonical format.
// A nil term (an unbound value) serializes to the empty string.
func SerializeTermCanonical(term Term) string {
	switch t := term.(type) {
	case *NamedNode:
		return fmt.Sprintf("<%s>", escapeIRICanonical(t.IRI))
	case *BlankNode:
		return fmt.Sprintf("_:%s", t.ID)
	case *Literal:
		return serializeLiteralCanonical(t)
	case *DefaultGraph:
		return ""
	default:
		return ""
	}
}

// serializeLiteralCanonical serializes a literal in canonical format
func serializeLiteralCanonical(lit *Literal) string {
	escaped := escapeStringCanonical(lit.Value)

	// the tag keeps its case so that the form agrees with Literal.Equals
	if lit.Language != "" {
		return fmt.Sprintf(`"%s"@%s`, escaped, lit.Language)
	}

	// Omit xsd:string datatype in canonical format (it's the default)
	if lit.Datatype != nil && lit.Datatype.IRI != XSDString.IRI {
		return fmt.Sprintf(`"%s"^^<%s>`, escaped, lit.Datatype.IRI)
	}

	return fmt.Sprintf(`"%s"`, escaped)
}

// escapeStringCanonical escapes a string value for canonical N-Triples output
func escapeStringCanonical(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))

	for _, r := range s {
		switch r {
		case '\t':
			builder.WriteString(`\t`)
		case '\b':
			builder.WriteString(`\b`)
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\f':
			builder.WriteString(`\f`)
		case '"':
			builder.WriteString(`\"`)
		case '\\':
			builder.WriteString(`\\`)
		default:
			if r < 0x20 || r == 0x7F || (r >= 0xFFFE && r <= 0xFFFF) {
				fmt.Fprintf(&builder, `\u%04X`, r)
			} else {
				builder.WriteRune(r)
			}
		}
	}

	return builder.String()
}

// escapeIRICanonical escapes the characters N-Triples forbids inside an IRI reference
func escapeIRICanonical(iri string) string {
	if !strings.ContainsFunc(iri, forbiddenInIRI) {
		return iri
	}
	var builder strings.Builder
	builder.Grow(len(iri))
	for _, r := range iri {
		if forbiddenInIRI(r) {
			fmt.Fprintf(&builder, `\u%04X`, r)
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

func forbiddenInIRI(r rune) bool {
	return r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r)
}
