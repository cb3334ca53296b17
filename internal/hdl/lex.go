package hdl

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Type is a token type.
//
type Type int

// Tokens
const (
	EOF Type = iota
	Raw
	Ident
	BracketOpen
	BracketClose
	Comma
	Int
	Range
	Dot
	Arrow
)

var typeNames = [...]string{"EOF", "Raw", "Ident", "[", "]", ",", "Int", "..", ".", "->"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Item is a lexed token.
//
type Item struct {
	Type  Type
	Pos   int
	Value interface{}
}

// A StateFn is a lexer state function. It returns the next state function or
// nil to restart at the initial state.
//
type StateFn func(l *Lexer) StateFn

// Lexer is a state function based lexer for pin lists and pin references.
//
type Lexer struct {
	input string
	pos   int // position of the next rune
	start int // start position of the current token
	cur   rune
	items []Item
}

// NewLexer returns a lexer for the given input.
//
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Lex returns the next token.
//
func (l *Lexer) Lex() Item {
	for len(l.items) == 0 {
		l.start = l.pos
		state := lexInit(l)
		for state != nil {
			state = state(l)
		}
	}
	i := l.items[0]
	l.items = l.items[1:]
	return i
}

// Next returns the next rune in the input, or -1 at end of input.
//
func (l *Lexer) Next() rune {
	if l.pos >= len(l.input) {
		l.cur = -1
		l.pos++
		return -1
	}
	r, n := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += n
	l.cur = r
	return r
}

// Backup steps back one rune.
//
func (l *Lexer) Backup() {
	if l.cur < 0 {
		l.pos--
		return
	}
	l.pos -= utf8.RuneLen(l.cur)
}

// Current returns the last rune returned by Next.
//
func (l *Lexer) Current() rune { return l.cur }

// AcceptWhile consumes runes while f returns true.
//
func (l *Lexer) AcceptWhile(f func(rune) bool) {
	for r := l.Next(); r >= 0 && f(r); r = l.Next() {
	}
	l.Backup()
}

// Emit emits a token starting at the current token start position.
//
func (l *Lexer) Emit(t Type, v interface{}) {
	l.items = append(l.items, Item{Type: t, Pos: l.start, Value: v})
	l.start = l.pos
}

func lexInit(l *Lexer) StateFn {
	r := l.Next()
	switch {
	case r < 0:
		return lexEOF
	case unicode.IsSpace(r):
		l.AcceptWhile(unicode.IsSpace)
		l.start = l.pos
	case isIdentStart(r):
		return lexIdent
	case r == '[':
		l.Emit(BracketOpen, "[")
	case r == ']':
		l.Emit(BracketClose, "]")
	case r == ',':
		l.Emit(Comma, ",")
	case '0' <= r && r <= '9':
		return lexNumber
	case r == '-':
		if l.Next() == '>' {
			l.Emit(Arrow, "->")
			break
		}
		l.Backup()
		l.Emit(Raw, r)
		return lexEOF
	case r == '.':
		if l.Next() == '.' {
			l.Emit(Range, "..")
			break
		}
		l.Backup()
		l.Emit(Dot, ".")
	default:
		l.Emit(Raw, r)
		return lexEOF
	}
	return nil
}

func lexEOF(l *Lexer) StateFn {
	l.Emit(EOF, nil)
	return nil
}

func lexNumber(l *Lexer) StateFn {
	i := int(l.Current() - '0')
	r := l.Next()
	for '0' <= r && r <= '9' {
		i = i*10 + int(r-'0')
		r = l.Next()
	}
	l.Backup()
	l.Emit(Int, i)
	return nil
}

func lexIdent(l *Lexer) StateFn {
	l.AcceptWhile(isIdentRune)
	l.Emit(Ident, l.input[l.start:l.pos])
	return nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '~'
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
