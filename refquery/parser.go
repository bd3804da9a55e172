package refquery

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parser is a small recursive-descent parser for the SELECT/DESCRIBE ...
// WHERE {} subset spec.md §8 shows: triple patterns, FILTER, a top-level
// two-way UNION, ORDER BY and LIMIT, with `prefix:local` and `<IRI>`
// terms. It is a reference front-end, not a general SPARQL parser --
// nested UNION, OPTIONAL and GRAPH are out of scope.
type Parser struct {
	tokens []string
	pos    int

	prefixes map[string]string
}

// NewParser tokenizes text, ready for Parse.
func NewParser(text string) *Parser {
	return &Parser{tokens: tokenize(text), prefixes: map[string]string{}}
}

// Parse runs the full grammar over the parser's tokens.
func Parse(text string) (*ParsedQuery, error) {
	p := NewParser(text)
	return p.parseQuery()
}

func (p *Parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekUpper() string { return strings.ToUpper(p.peek()) }

func (p *Parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *Parser) expect(lit string) error {
	if strings.EqualFold(p.peek(), lit) {
		p.pos++
		return nil
	}
	return errors.Errorf("refquery: expected %q, got %q", lit, p.peek())
}

func (p *Parser) parseQuery() (*ParsedQuery, error) {
	for p.peekUpper() == "PREFIX" {
		p.next()
		name := strings.TrimSuffix(p.next(), ":")
		iri := strings.Trim(p.next(), "<>")
		p.prefixes[name] = iri
	}

	q := &ParsedQuery{}
	switch p.peekUpper() {
	case "SELECT":
		p.next()
		q.Mode = ModeSelect
		if p.peek() == "*" {
			p.next()
			q.Star = true
		} else {
			for strings.HasPrefix(p.peek(), "?") {
				q.Projection = append(q.Projection, strings.TrimPrefix(p.next(), "?"))
			}
		}
	case "DESCRIBE":
		p.next()
		q.Mode = ModeDescribe
		q.Projection = append(q.Projection, strings.TrimPrefix(p.next(), "?"))
	default:
		return nil, errors.Errorf("refquery: expected SELECT or DESCRIBE, got %q", p.peek())
	}

	if err := p.expect("WHERE"); err != nil {
		return nil, err
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	group, branches, err := p.parseGroupBody()
	if err != nil {
		return nil, err
	}
	q.Where = group
	q.UnionBranches = branches

	if err := p.expect("}"); err != nil {
		return nil, err
	}

	if p.peekUpper() == "ORDER" {
		p.next()
		if err := p.expect("BY"); err != nil {
			return nil, err
		}
		for strings.HasPrefix(p.peek(), "?") || strings.EqualFold(p.peek(), "DESC") || strings.EqualFold(p.peek(), "ASC") {
			desc := false
			if strings.EqualFold(p.peek(), "DESC") || strings.EqualFold(p.peek(), "ASC") {
				desc = strings.EqualFold(p.next(), "DESC")
				if err := p.expect("("); err != nil {
					return nil, err
				}
				v := strings.TrimPrefix(p.next(), "?")
				if err := p.expect(")"); err != nil {
					return nil, err
				}
				q.OrderBy = append(q.OrderBy, OrderTerm{Var: v, Descending: desc})
				continue
			}
			v := strings.TrimPrefix(p.next(), "?")
			q.OrderBy = append(q.OrderBy, OrderTerm{Var: v, Descending: false})
		}
	}

	if p.peekUpper() == "LIMIT" {
		p.next()
		n, err := strconv.Atoi(p.next())
		if err != nil {
			return nil, errors.Wrap(err, "refquery: bad LIMIT")
		}
		q.Limit = n
	}

	if q.Star {
		seen := map[string]bool{}
		groups := branches
		if len(groups) == 0 {
			groups = []GroupPattern{q.Where}
		}
		for _, g := range groups {
			for _, tp := range g.Patterns {
				for _, t := range []Term{tp.S, tp.P, tp.O} {
					if t.IsVar && !seen[t.Var] {
						seen[t.Var] = true
						q.Projection = append(q.Projection, t.Var)
					}
				}
			}
		}
	}

	return q, nil
}

// parseGroupBody parses the content between a WHERE clause's braces:
// either a flat conjunction of triple patterns and FILTERs, or exactly
// one top-level `{ ... } UNION { ... }`.
func (p *Parser) parseGroupBody() (GroupPattern, []GroupPattern, error) {
	if p.peek() == "{" {
		p.next()
		left, err := p.parseFlatGroup()
		if err != nil {
			return GroupPattern{}, nil, err
		}
		if err := p.expect("}"); err != nil {
			return GroupPattern{}, nil, err
		}
		if err := p.expect("UNION"); err != nil {
			return GroupPattern{}, nil, err
		}
		if err := p.expect("{"); err != nil {
			return GroupPattern{}, nil, err
		}
		right, err := p.parseFlatGroup()
		if err != nil {
			return GroupPattern{}, nil, err
		}
		if err := p.expect("}"); err != nil {
			return GroupPattern{}, nil, err
		}
		return GroupPattern{}, []GroupPattern{left, right}, nil
	}
	g, err := p.parseFlatGroup()
	return g, nil, err
}

func (p *Parser) parseFlatGroup() (GroupPattern, error) {
	var g GroupPattern
	for p.peek() != "}" && p.peek() != "" {
		if strings.EqualFold(p.peek(), "FILTER") {
			p.next()
			f, err := p.parseFilter()
			if err != nil {
				return g, err
			}
			g.Filters = append(g.Filters, f)
			continue
		}
		tp, err := p.parseTriplePattern()
		if err != nil {
			return g, err
		}
		g.Patterns = append(g.Patterns, tp)
		if p.peek() == "." {
			p.next()
		}
	}
	return g, nil
}

func (p *Parser) parseTriplePattern() (TriplePattern, error) {
	s, err := p.parseTerm()
	if err != nil {
		return TriplePattern{}, err
	}
	pr, err := p.parseTerm()
	if err != nil {
		return TriplePattern{}, err
	}
	o, err := p.parseTerm()
	if err != nil {
		return TriplePattern{}, err
	}
	return TriplePattern{S: s, P: pr, O: o}, nil
}

func (p *Parser) parseTerm() (Term, error) {
	tok := p.next()
	if tok == "" {
		return Term{}, errors.New("refquery: unexpected end of query")
	}
	if strings.HasPrefix(tok, "?") {
		return VarTerm(strings.TrimPrefix(tok, "?")), nil
	}
	if strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">") {
		return ConstTerm(tok[1 : len(tok)-1]), nil
	}
	if strings.HasPrefix(tok, "\"") {
		unquoted, err := strconv.Unquote(tok)
		if err != nil {
			return Term{}, errors.Wrap(err, "refquery: bad literal")
		}
		return ConstTerm("\"" + unquoted + "\""), nil
	}
	if strings.Contains(tok, ":") {
		parts := strings.SplitN(tok, ":", 2)
		base, ok := p.prefixes[parts[0]]
		if !ok {
			return Term{}, errors.Errorf("refquery: unbound prefix %q", parts[0])
		}
		return ConstTerm(base + parts[1]), nil
	}
	return ConstTerm(tok), nil
}

// parseFilter parses one `( expr )` FILTER body: comparisons joined by
// && and ||. The FILTER's own parentheses are the only ones accepted;
// nested parenthesised sub-expressions are not parsed.
func (p *Parser) parseFilter() (*FilterExpr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	expr, err := p.parseOrExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) parseOrExpr() (*FilterExpr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.peek() == "||" {
		p.next()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &FilterExpr{Op: OpOr, Children: []*FilterExpr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (*FilterExpr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek() == "&&" {
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &FilterExpr{Op: OpAnd, Children: []*FilterExpr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseComparison() (*FilterExpr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	op := p.next()
	right, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	switch op {
	case "=":
		return &FilterExpr{Op: OpEqual, Left: left, Right: right}, nil
	case "!=":
		return &FilterExpr{Op: OpNotEqual, Left: left, Right: right}, nil
	default:
		return nil, errors.Errorf("refquery: unsupported filter operator %q", op)
	}
}

// tokenize splits query text into a flat token stream: punctuation
// (braces, dot, parens, comparison/boolean operators) as single tokens,
// quoted literals kept whole, everything else whitespace-separated.
func tokenize(text string) []string {
	var toks []string
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"':
			start := i
			i++
			for i < len(text) && text[i] != '"' {
				if text[i] == '\\' {
					i++
				}
				i++
			}
			i++
			toks = append(toks, text[start:i])
		case c == '<':
			start := i
			for i < len(text) && text[i] != '>' {
				i++
			}
			i++
			toks = append(toks, text[start:i])
		case strings.ContainsRune("{}().", rune(c)):
			toks = append(toks, string(c))
			i++
		case c == '!' && i+1 < len(text) && text[i+1] == '=':
			toks = append(toks, "!=")
			i += 2
		case c == '&' && i+1 < len(text) && text[i+1] == '&':
			toks = append(toks, "&&")
			i += 2
		case c == '|' && i+1 < len(text) && text[i+1] == '|':
			toks = append(toks, "||")
			i += 2
		case c == '=':
			toks = append(toks, "=")
			i++
		default:
			start := i
			for i < len(text) {
				c := text[i]
				if c == ' ' || c == '\t' || c == '\n' || c == '\r' || strings.ContainsRune("{}().\"<", rune(c)) {
					break
				}
				if c == '!' || c == '&' || c == '|' || c == '=' {
					break
				}
				i++
			}
			toks = append(toks, text[start:i])
		}
	}
	return toks
}
