package taxonomy

import (
	"strings"

	"github.com/starford/glanxiv/internal/models"
)

type ruleKind int

const (
	// ruleTree matches the code itself and its dotted descendants. Main
	// tokens and <main>.<sub> tokens compile to it.
	ruleTree ruleKind = iota
	// ruleExact matches the literal code only.
	ruleExact
)

type rule struct {
	kind ruleKind
	code string
}

func (r rule) match(code string) bool {
	if r.kind == ruleTree {
		return code == r.code || strings.HasPrefix(code, r.code+".")
	}
	return code == r.code
}

// Filter is a compiled category filter expression. The zero value passes
// everything.
type Filter struct {
	rules   []rule
	passAll bool
	unknown []string
}

// ParseExpression splits a comma-separated filter expression into lowercased,
// trimmed, de-duplicated tokens. Empty tokens are dropped.
func ParseExpression(expr string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range strings.Split(expr, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Compile turns filter tokens into a Filter. No tokens, or any "all" token,
// yields a pass-through filter. Compile never fails: tokens it cannot place
// in the tree become exact literal matches and are reported by Unknown.
func (t *Taxonomy) Compile(tokens []string) Filter {
	f := Filter{}
	for _, raw := range tokens {
		tok := strings.ToLower(strings.TrimSpace(raw))
		if tok == "" {
			continue
		}
		if tok == AllToken {
			return Filter{passAll: true}
		}
		f.rules = append(f.rules, t.ruleFor(tok, &f.unknown))
	}
	if len(f.rules) == 0 {
		f.passAll = true
	}
	return f
}

// ruleFor places one token:
//   - <main>.all and a bare known <main> match <main> and <main>.*;
//   - <main>.<sub> with a known main matches the code and <main>.<sub>.*;
//   - everything else is an exact literal. Subcategory codes without a main
//     prefix (quant-ph, hep-th) are exact too, but are not reported as
//     unknown since the tree lists them.
func (t *Taxonomy) ruleFor(tok string, unknown *[]string) rule {
	if main, ok := strings.CutSuffix(tok, "."+AllToken); ok && main != "" {
		return rule{kind: ruleTree, code: main}
	}
	if _, ok := t.mains[tok]; ok {
		return rule{kind: ruleTree, code: tok}
	}
	if main, _, ok := strings.Cut(tok, "."); ok {
		if _, known := t.mains[main]; known {
			return rule{kind: ruleTree, code: tok}
		}
	}
	if _, ok := t.subs[tok]; !ok {
		*unknown = append(*unknown, tok)
	}
	return rule{kind: ruleExact, code: tok}
}

// PassAll reports whether the filter accepts every paper.
func (f Filter) PassAll() bool { return f.passAll || len(f.rules) == 0 }

// Unknown returns the tokens that were not recognised and fell back to exact
// literal matching.
func (f Filter) Unknown() []string { return f.unknown }

// MatchCodes reports whether any of the already lowercased category codes
// satisfies at least one token.
func (f Filter) MatchCodes(codes []string) bool {
	if f.PassAll() {
		return true
	}
	for _, r := range f.rules {
		for _, c := range codes {
			if r.match(c) {
				return true
			}
		}
	}
	return false
}

// MatchPaper reports whether p's categories or primary category satisfy the
// filter.
func (f Filter) MatchPaper(p models.Paper) bool {
	if f.PassAll() {
		return true
	}
	codes := p.Codes()
	for i, c := range codes {
		codes[i] = strings.ToLower(c)
	}
	return f.MatchCodes(codes)
}

// Matches reports whether p satisfies at least one of tokens.
func (t *Taxonomy) Matches(p models.Paper, tokens []string) bool {
	return t.Compile(tokens).MatchPaper(p)
}

// Matches evaluates tokens against p using the built-in taxonomy.
func Matches(p models.Paper, tokens []string) bool {
	return defaultTaxonomy.Matches(p, tokens)
}
