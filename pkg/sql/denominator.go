package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cohortlens/insights-engine/pkg/models"
)

// PercentageScale is never treated as a hardcoded denominator.
const PercentageScale = 100

// familyOrder fixes iteration order wherever families are listed.
var familyOrder = []models.DenominatorFamily{
	models.DenominatorClassDays,
	models.DenominatorActiveBuilders,
	models.DenominatorTotalTasks,
}

// guardedClauses are clauses whose divisions are never rewritten.
var guardedClauses = map[string]bool{
	"WHERE":  true,
	"LIMIT":  true,
	"OFFSET": true,
}

// clauseKeywords end the backwards search for the clause a division sits in.
var clauseKeywords = map[string]bool{
	"SELECT":    true,
	"FROM":      true,
	"JOIN":      true,
	"ON":        true,
	"USING":     true,
	"GROUP":     true,
	"HAVING":    true,
	"ORDER":     true,
	"WINDOW":    true,
	"QUALIFY":   true,
	"UNION":     true,
	"INTERSECT": true,
	"EXCEPT":    true,
	"WITH":      true,
	"VALUES":    true,
	"SET":       true,
	"RETURNING": true,
}

var setOperators = map[string]bool{
	"UNION":     true,
	"INTERSECT": true,
	"EXCEPT":    true,
}

// Context tokens that select a denominator family.
var (
	classDayTokens = []string{"attendance", "curriculum_days"}
	taskTokens     = map[string]bool{"tasks": true, "task_submissions": true, "time_blocks": true}
)

// DenominatorOccurrence is one hardcoded divisor found in a query.
// Start and End span the "/ <literal>" text in the original query.
type DenominatorOccurrence struct {
	Start   int
	End     int
	Literal string
	Family  models.DenominatorFamily
}

// Description is the audit text for the rewrite of this occurrence.
func (o DenominatorOccurrence) Description() string {
	return fmt.Sprintf("Replaced hardcoded %s (%s) with dynamic subquery", o.Family.Description(), o.Literal)
}

// DenominatorValidator finds divisions by point-in-time constants and rewrites
// them to live subqueries. It holds no mutable state and is safe for concurrent use.
type DenominatorValidator struct {
	subqueries map[models.DenominatorFamily]string
	watched    map[int][]models.DenominatorFamily
	optionsErr error
}

// NewDenominatorValidator builds a validator for opts. When opts would render
// an unsafe subquery, the default cohort is used instead and OptionsError
// reports why.
func NewDenominatorValidator(opts DenominatorOptions) *DenominatorValidator {
	v := &DenominatorValidator{
		watched: make(map[int][]models.DenominatorFamily),
	}

	subqueries, err := renderSubqueries(opts)
	if err != nil {
		v.optionsErr = err
		fallback := opts
		fallback.Cohort = DefaultDenominatorOptions().Cohort
		subqueries, _ = renderSubqueries(fallback)
	}
	v.subqueries = subqueries

	literals := opts.WatchedLiterals
	if literals == nil {
		literals = DefaultDenominatorOptions().WatchedLiterals
	}
	for _, family := range familyOrder {
		for _, lit := range literals[family] {
			if lit == PercentageScale {
				continue
			}
			v.watched[lit] = append(v.watched[lit], family)
		}
	}

	return v
}

// OptionsError returns the reason the configured options were not fully applied, if any.
func (v *DenominatorValidator) OptionsError() error {
	return v.optionsErr
}

// Subquery returns the rendered subquery for a family.
func (v *DenominatorValidator) Subquery(family models.DenominatorFamily) string {
	return v.subqueries[family]
}

// Find returns every hardcoded denominator in sqlQuery in text order.
func (v *DenominatorValidator) Find(sqlQuery string) []DenominatorOccurrence {
	if strings.TrimSpace(sqlQuery) == "" {
		return nil
	}

	tokens := Tokenize(sqlQuery)
	parens := indexParens(tokens)

	var found []DenominatorOccurrence
	for i, tok := range tokens {
		if tok.Kind != TokenPunct || tok.Text != "/" {
			continue
		}
		j := nextSignificant(tokens, i)
		if j < 0 {
			continue
		}
		lit := tokens[j]
		if lit.Kind != TokenNumber || lit.IsDecimal() {
			continue
		}
		n, err := strconv.Atoi(lit.Text)
		if err != nil || n == PercentageScale {
			continue
		}
		candidates := v.watched[n]
		if len(candidates) == 0 {
			continue
		}
		if inGuardedClause(tokens, parens, i) {
			continue
		}

		found = append(found, DenominatorOccurrence{
			Start:   tok.Start,
			End:     lit.End,
			Literal: lit.Text,
			Family:  chooseFamily(contextFamily(tokens, parens, i), candidates),
		})
	}
	return found
}

// Fix rewrites every hardcoded denominator in sqlQuery. When nothing is found,
// or anything goes wrong, the input is returned unchanged with HadIssues false.
func (v *DenominatorValidator) Fix(sqlQuery string) (result models.SQLFixResult) {
	result = models.SQLFixResult{SQL: sqlQuery, Fixes: []string{}}
	defer func() {
		if r := recover(); r != nil {
			result = models.SQLFixResult{SQL: sqlQuery, Fixes: []string{}}
		}
	}()

	occurrences := v.Find(sqlQuery)
	if len(occurrences) == 0 {
		return result
	}

	var b strings.Builder
	b.Grow(len(sqlQuery) + len(occurrences)*256)
	last := 0
	for _, o := range occurrences {
		b.WriteString(sqlQuery[last:o.Start])
		b.WriteString("/ (")
		b.WriteString(v.subqueries[o.Family])
		b.WriteString(")")
		last = o.End
		result.Fixes = append(result.Fixes, o.Description())
	}
	b.WriteString(sqlQuery[last:])

	result.SQL = b.String()
	result.HadIssues = true
	return result
}

// FixBatch fixes each query independently. Results keep the caller's ids and order.
func (v *DenominatorValidator) FixBatch(queries []models.BatchSQLQuery) []models.BatchSQLFixResult {
	results := make([]models.BatchSQLFixResult, len(queries))
	for i, q := range queries {
		results[i] = models.BatchSQLFixResult{ID: q.ID, SQLFixResult: v.Fix(q.SQL)}
	}
	return results
}

// ============================================================================
// Clause guards
// ============================================================================

// parenIndex records, for every token, the index of the innermost unclosed
// "(" enclosing it (-1 at top level) and, for parentheses, their partner.
type parenIndex struct {
	parent []int
	match  []int
}

func indexParens(tokens []Token) parenIndex {
	idx := parenIndex{
		parent: make([]int, len(tokens)),
		match:  make([]int, len(tokens)),
	}
	var stack []int
	for j, t := range tokens {
		idx.match[j] = -1
		isOpen := t.Kind == TokenPunct && t.Text == "("
		isClose := t.Kind == TokenPunct && t.Text == ")"

		if isClose && len(stack) > 0 {
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			idx.match[open] = j
			idx.match[j] = open
		}
		if len(stack) > 0 {
			idx.parent[j] = stack[len(stack)-1]
		} else {
			idx.parent[j] = -1
		}
		if isOpen {
			stack = append(stack, j)
		}
	}
	return idx
}

// inGuardedClause reports whether the token at i sits in a WHERE, LIMIT or
// OFFSET clause, or inside an IN (...) list, at its own level or any
// enclosing level.
func inGuardedClause(tokens []Token, parens parenIndex, i int) bool {
	pos := i
	open := parens.parent[i]
	for {
		for j := pos - 1; j > open; j-- {
			if parens.parent[j] != open || tokens[j].Kind != TokenWord {
				continue
			}
			kw := tokens[j].Upper()
			if guardedClauses[kw] {
				return true
			}
			if clauseKeywords[kw] {
				break
			}
		}
		if open < 0 {
			return false
		}
		if p := prevSignificant(tokens, open); p >= 0 && tokens[p].Kind == TokenWord && tokens[p].Upper() == "IN" {
			return true
		}
		pos = open
		open = parens.parent[open]
	}
}

// ============================================================================
// Family resolution
// ============================================================================

// statementScope returns the token range [lo, hi) of the SELECT branch that
// contains token i: the innermost parenthesized query (or the whole text),
// narrowed to the UNION/INTERSECT/EXCEPT branch around i.
func statementScope(tokens []Token, parens parenIndex, i int) (lo, hi int) {
	open := parens.parent[i]
	for open >= 0 {
		if first := nextSignificant(tokens, open); first >= 0 && startsQuery(tokens[first]) {
			break
		}
		open = parens.parent[open]
	}

	lo, hi = 0, len(tokens)
	if open >= 0 {
		lo = open + 1
		if parens.match[open] >= 0 {
			hi = parens.match[open]
		}
	}

	for j := i; j >= lo; j-- {
		if parens.parent[j] == open && isSetOperator(tokens[j]) {
			lo = j + 1
			break
		}
	}
	for j := i; j < hi; j++ {
		if parens.parent[j] == open && isSetOperator(tokens[j]) {
			hi = j
			break
		}
	}
	return lo, hi
}

func startsQuery(t Token) bool {
	if t.Kind != TokenWord {
		return false
	}
	kw := t.Upper()
	return kw == "SELECT" || kw == "WITH"
}

func isSetOperator(t Token) bool {
	return t.Kind == TokenWord && setOperators[t.Upper()]
}

// contextFamily picks a family from the table and column names around token i.
func contextFamily(tokens []Token, parens parenIndex, i int) models.DenominatorFamily {
	lo, hi := statementScope(tokens, parens, i)

	hasClassDays, hasTasks := false, false
	for _, t := range tokens[lo:hi] {
		var word string
		switch t.Kind {
		case TokenWord:
			word = strings.ToLower(t.Text)
		case TokenQuotedIdent:
			word = strings.ToLower(strings.Trim(t.Text, `"`))
		default:
			continue
		}
		if containsAnyToken(word, classDayTokens) {
			hasClassDays = true
		}
		if taskTokens[word] {
			hasTasks = true
		}
	}

	switch {
	case hasClassDays:
		return models.DenominatorClassDays
	case hasTasks:
		return models.DenominatorTotalTasks
	default:
		return models.DenominatorActiveBuilders
	}
}

// chooseFamily resolves a literal watched by several families. Context wins
// when it names one of them; otherwise active builders, then the first candidate.
func chooseFamily(preferred models.DenominatorFamily, candidates []models.DenominatorFamily) models.DenominatorFamily {
	if len(candidates) == 1 {
		return candidates[0]
	}
	for _, c := range candidates {
		if c == preferred {
			return c
		}
	}
	for _, c := range candidates {
		if c == models.DenominatorActiveBuilders {
			return c
		}
	}
	return candidates[0]
}

func containsAnyToken(word string, substrs []string) bool {
	for _, s := range substrs {
		if strings.Contains(word, s) {
			return true
		}
	}
	return false
}

// defaultValidator serves the package-level helpers.
var defaultValidator = NewDenominatorValidator(DefaultDenominatorOptions())

// FixDenominators checks sqlQuery with the default options.
func FixDenominators(sqlQuery string) models.SQLFixResult {
	return defaultValidator.Fix(sqlQuery)
}
