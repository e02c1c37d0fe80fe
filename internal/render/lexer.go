// internal/render/lexer.go
package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// multi-character operators, longest first
var operators = []string{"===", "!==", "==", "!=", "||", "&&", "<=", ">=", ".", ",", "(", ")", "[", "]", "?", ":", "!", "+", "-", "<", ">"}

func tokenize(src string) ([]token, error) {
	var out []token
	i := 0
	for i < len(src) {
		c, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(c):
			i += size
		case c == '"' || c == '\'' || c == '`':
			s, n, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			out = append(out, token{kind: tokString, text: s, pos: i})
			i = n
		case c >= '0' && c <= '9':
			start := i
			seenDot := false
			for i < len(src) {
				if isDigit(src[i]) {
					i++
					continue
				}
				if src[i] == '.' && !seenDot && i+1 < len(src) && isDigit(src[i+1]) {
					seenDot = true
					i++
					continue
				}
				break
			}
			f, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q at %d", ErrSyntax, src[start:i], start)
			}
			out = append(out, token{kind: tokNumber, text: src[start:i], num: f, pos: start})
		case c == '_' || c == '$' || unicode.IsLetter(c):
			start := i
			for i < len(src) {
				r, n := utf8.DecodeRuneInString(src[i:])
				if r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r) {
					i += n
					continue
				}
				break
			}
			out = append(out, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			matched := false
			for _, op := range operators {
				if strings.HasPrefix(src[i:], op) {
					out = append(out, token{kind: tokPunct, text: op, pos: i})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrSyntax, c, i)
			}
		}
	}
	out = append(out, token{kind: tokEOF, pos: len(src)})
	return out, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func scanString(src string, start int) (string, int, error) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		if c == quote {
			return b.String(), i + 1, nil
		}
		if c == '\\' && i+1 < len(src) {
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(src[i])
			}
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("%w: unterminated string at %d", ErrSyntax, start)
}
