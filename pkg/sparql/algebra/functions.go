package algebra

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Call invokes a SPARQL built-in function by name
type Call struct {
	Name string
	Args []Expression
}

func NewCall(name string, args ...Expression) *Call {
	return &Call{Name: strings.ToUpper(name), Args: args}
}

func (c *Call) Variables() []string {
	return variablesOf(c.Args...)
}

func (c *Call) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	// functions that do not evaluate every argument eagerly
	switch c.Name {
	case "COALESCE":
		for _, arg := range c.Args {
			if value, err := arg.Evaluate(ctx, id); err == nil {
				return value, nil
			} else if !IsExpressionError(err) {
				return nil, err
			}
		}
		return nil, typeError("COALESCE: no argument has a value")
	case "IF":
		if err := c.arity(3); err != nil {
			return nil, err
		}
		cond, err := evaluateBool(ctx, c.Args[0], id)
		if err != nil {
			return nil, err
		}
		if cond {
			return c.Args[1].Evaluate(ctx, id)
		}
		return c.Args[2].Evaluate(ctx, id)
	}

	args := make([]rdf.Term, len(c.Args))
	for i, arg := range c.Args {
		value, err := arg.Evaluate(ctx, id)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}

	switch c.Name {
	// Type checking functions
	case "ISIRI", "ISURI":
		return c.test(args, func(t rdf.Term) bool { return t.Type() == rdf.TermTypeNamedNode })
	case "ISBLANK":
		return c.test(args, rdf.IsBlank)
	case "ISLITERAL":
		return c.test(args, func(t rdf.Term) bool { return t.Type() == rdf.TermTypeLiteral })
	case "ISNUMERIC":
		return c.test(args, func(t rdf.Term) bool {
			_, ok := numericValue(t)
			return ok
		})

	// Value extraction functions
	case "STR":
		if err := c.arity(1); err != nil {
			return nil, err
		}
		s, err := lexicalForm(args[0])
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(s), nil
	case "LANG":
		lit, err := c.literalArg(args)
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(lit.Language), nil
	case "DATATYPE":
		lit, err := c.literalArg(args)
		if err != nil {
			return nil, err
		}
		if lit.Language != "" {
			return rdf.NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"), nil
		}
		if lit.Datatype == nil {
			return rdf.XSDString, nil
		}
		return lit.Datatype, nil

	// String functions
	case "STRLEN":
		lit, err := c.literalArg(args)
		if err != nil {
			return nil, err
		}
		return rdf.NewIntegerLiteral(int64(utf8.RuneCountInString(lit.Value))), nil
	case "UCASE":
		return c.mapString(args, cases.Upper(language.Und).String)
	case "LCASE":
		return c.mapString(args, cases.Lower(language.Und).String)
	case "CONCAT":
		var b strings.Builder
		for _, arg := range args {
			s, err := lexicalForm(arg)
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
		}
		return rdf.NewLiteral(b.String()), nil
	case "CONTAINS":
		return c.stringTest(args, strings.Contains)
	case "STRSTARTS":
		return c.stringTest(args, strings.HasPrefix)
	case "STRENDS":
		return c.stringTest(args, strings.HasSuffix)
	case "REGEX":
		return c.regex(args)
	case "LANGMATCHES":
		return c.stringTest(args, langMatches)
	case "SAMETERM":
		if err := c.arity(2); err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(args[0].Equals(args[1])), nil

	// Numeric functions
	case "ABS":
		return c.mapNumber(args, math.Abs)
	case "CEIL":
		return c.mapNumber(args, math.Ceil)
	case "FLOOR":
		return c.mapNumber(args, math.Floor)
	case "ROUND":
		return c.mapNumber(args, func(v float64) float64 { return math.Floor(v + 0.5) })
	}

	return nil, typeError("unsupported function: %s", c.Name)
}

func (c *Call) arity(n int) error {
	if len(c.Args) != n {
		return typeError("%s requires exactly %d argument(s)", c.Name, n)
	}
	return nil
}

func (c *Call) test(args []rdf.Term, pred func(rdf.Term) bool) (rdf.Term, error) {
	if err := c.arity(1); err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(pred(args[0])), nil
}

func (c *Call) literalArg(args []rdf.Term) (*rdf.Literal, error) {
	if err := c.arity(1); err != nil {
		return nil, err
	}
	lit, ok := args[0].(*rdf.Literal)
	if !ok {
		return nil, typeError("%s requires a literal argument", c.Name)
	}
	return lit, nil
}

func (c *Call) mapString(args []rdf.Term, fn func(string) string) (rdf.Term, error) {
	lit, err := c.literalArg(args)
	if err != nil {
		return nil, err
	}
	return &rdf.Literal{Value: fn(lit.Value), Language: lit.Language, Datatype: lit.Datatype}, nil
}

func (c *Call) mapNumber(args []rdf.Term, fn func(float64) float64) (rdf.Term, error) {
	if err := c.arity(1); err != nil {
		return nil, err
	}
	// rounding leaves integers unchanged
	if n, ok := integerValue(args[0]); ok {
		if c.Name == "ABS" {
			n.Abs(n)
		}
		return integerLiteral(n), nil
	}
	value, ok := numericValue(args[0])
	if !ok {
		return nil, typeError("%s requires a numeric argument", c.Name)
	}
	return numericLiteral(fn(value), nil, args[0]), nil
}

func (c *Call) stringTest(args []rdf.Term, pred func(s, arg string) bool) (rdf.Term, error) {
	if err := c.arity(2); err != nil {
		return nil, err
	}
	s, err := lexicalForm(args[0])
	if err != nil {
		return nil, err
	}
	arg, err := lexicalForm(args[1])
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(pred(s, arg)), nil
}

// regex supports the SPARQL flags i, m, s and x, plus q for a literal pattern
func (c *Call) regex(args []rdf.Term) (rdf.Term, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, typeError("REGEX requires 2 or 3 arguments")
	}
	text, err := lexicalForm(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := lexicalForm(args[1])
	if err != nil {
		return nil, err
	}

	var flags string
	if len(args) == 3 {
		if flags, err = lexicalForm(args[2]); err != nil {
			return nil, err
		}
	}

	var modifiers string
	for _, flag := range flags {
		switch flag {
		case 'i', 'm', 's':
			modifiers += string(flag)
		case 'x':
			// RE2 has no extended mode
			pattern = strings.Join(strings.Fields(pattern), "")
		case 'q':
			pattern = regexp.QuoteMeta(pattern)
		default:
			return nil, typeError("unsupported REGEX flag: %c", flag)
		}
	}
	if modifiers != "" {
		pattern = "(?" + modifiers + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, typeError("invalid regex pattern: %v", err)
	}
	return rdf.NewBooleanLiteral(re.MatchString(text)), nil
}

// langMatches implements basic filtering of RFC 4647
func langMatches(tag, langRange string) bool {
	tag = strings.ToLower(tag)
	langRange = strings.ToLower(langRange)

	if langRange == "*" {
		return tag != ""
	}
	return tag == langRange || strings.HasPrefix(tag, langRange+"-")
}

func lexicalForm(term rdf.Term) (string, error) {
	switch t := term.(type) {
	case *rdf.Literal:
		return t.Value, nil
	case *rdf.NamedNode:
		return t.IRI, nil
	default:
		return "", typeError("cannot extract string from %s", term)
	}
}
