// Package sql provides text-level SQL checks that do not require a parser:
// denominator validation and rewriting, template rendering and injection checks.
package sql

import "strings"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenWhitespace TokenKind = iota
	TokenComment
	TokenWord         // Identifier or keyword
	TokenQuotedIdent  // "identifier"
	TokenString       // 'literal'
	TokenNumber       // 42, 4.2, 4e2
	TokenPunct        // Operators and delimiters, one character each
)

// Token is a span of the original SQL text. Start and End are byte offsets,
// so concatenating every token's Text reproduces the input exactly.
type Token struct {
	Kind  TokenKind
	Text  string
	Start int
	End   int
}

// IsSignificant reports whether the token carries meaning (not whitespace or a comment).
func (t Token) IsSignificant() bool {
	return t.Kind != TokenWhitespace && t.Kind != TokenComment
}

// Upper returns the token text upper-cased, for keyword comparisons.
func (t Token) Upper() string {
	return strings.ToUpper(t.Text)
}

// IsDecimal reports whether a number token was written with a decimal point or exponent.
func (t Token) IsDecimal() bool {
	return t.Kind == TokenNumber && strings.ContainsAny(t.Text, ".eE")
}

// Tokenize splits SQL into tokens. It understands single-quoted strings with
// '' and backslash escapes, double-quoted identifiers, -- line comments and
// /* */ block comments. Unterminated strings and comments run to the end of
// the input. Tokenize never fails.
func Tokenize(sqlQuery string) []Token {
	var tokens []Token
	i := 0
	n := len(sqlQuery)

	emit := func(kind TokenKind, end int) {
		tokens = append(tokens, Token{Kind: kind, Text: sqlQuery[i:end], Start: i, End: end})
		i = end
	}

	for i < n {
		ch := sqlQuery[i]
		switch {
		case isSpace(ch):
			j := i + 1
			for j < n && isSpace(sqlQuery[j]) {
				j++
			}
			emit(TokenWhitespace, j)

		case ch == '-' && i+1 < n && sqlQuery[i+1] == '-':
			j := strings.IndexByte(sqlQuery[i:], '\n')
			if j < 0 {
				emit(TokenComment, n)
			} else {
				emit(TokenComment, i+j)
			}

		case ch == '/' && i+1 < n && sqlQuery[i+1] == '*':
			j := strings.Index(sqlQuery[i+2:], "*/")
			if j < 0 {
				emit(TokenComment, n)
			} else {
				emit(TokenComment, i+2+j+2)
			}

		case ch == '\'':
			emit(TokenString, scanQuoted(sqlQuery, i, '\''))

		case ch == '"':
			emit(TokenQuotedIdent, scanQuoted(sqlQuery, i, '"'))

		case isDigit(ch) || (ch == '.' && i+1 < n && isDigit(sqlQuery[i+1])):
			emit(TokenNumber, scanNumber(sqlQuery, i))

		case isIdentStart(ch):
			j := i + 1
			for j < n && isIdentPart(sqlQuery[j]) {
				j++
			}
			emit(TokenWord, j)

		default:
			emit(TokenPunct, i+1)
		}
	}

	return tokens
}

// scanQuoted returns the end offset of a quoted span starting at start.
// A doubled quote character stays inside the span.
func scanQuoted(s string, start int, quote byte) int {
	prev := byte(0)
	for j := start + 1; j < len(s); j++ {
		ch := s[j]
		if ch == quote && prev != '\\' {
			if j+1 < len(s) && s[j+1] == quote {
				j++
				prev = 0
				continue
			}
			return j + 1
		}
		prev = ch
	}
	return len(s)
}

func scanNumber(s string, start int) int {
	j := start
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j < len(s) && s[j] == '.' {
		j++
		for j < len(s) && isDigit(s[j]) {
			j++
		}
	}
	if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
		k := j + 1
		if k < len(s) && (s[k] == '+' || s[k] == '-') {
			k++
		}
		if k < len(s) && isDigit(s[k]) {
			for k < len(s) && isDigit(s[k]) {
				k++
			}
			j = k
		}
	}
	return j
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

// nextSignificant returns the index of the first significant token after i, or -1.
func nextSignificant(tokens []Token, i int) int {
	for j := i + 1; j < len(tokens); j++ {
		if tokens[j].IsSignificant() {
			return j
		}
	}
	return -1
}

// prevSignificant returns the index of the last significant token before i, or -1.
func prevSignificant(tokens []Token, i int) int {
	for j := i - 1; j >= 0; j-- {
		if tokens[j].IsSignificant() {
			return j
		}
	}
	return -1
}
