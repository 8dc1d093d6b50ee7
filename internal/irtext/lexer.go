package irtext

import (
	"strconv"

	"ipa/internal/diag"
)

// Lexer turns source bytes into tokens. Comments start with '#' and run to the
// end of the line.
type Lexer struct {
	file string
	src  []byte
	off  int
	line int
	col  int
}

func NewLexer(file string, src []byte) *Lexer {
	return &Lexer{file: file, src: src, line: 1, col: 1}
}

func (lx *Lexer) eof() bool { return lx.off >= len(lx.src) }

func (lx *Lexer) peek() byte {
	if lx.eof() {
		return 0
	}
	return lx.src[lx.off]
}

func (lx *Lexer) peekAt(n int) byte {
	if lx.off+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+n]
}

func (lx *Lexer) bump() byte {
	if lx.eof() {
		return 0
	}
	b := lx.src[lx.off]
	lx.off++
	if b == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return b
}

func (lx *Lexer) pos() diag.Pos {
	return diag.Pos{File: lx.file, Line: lx.line, Col: lx.col}
}

func (lx *Lexer) skipTrivia() {
	for !lx.eof() {
		switch ch := lx.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			lx.bump()
		case ch == '#':
			for !lx.eof() && lx.peek() != '\n' {
				lx.bump()
			}
		default:
			return
		}
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

var puncts3 = []string{"..."}

var puncts2 = []string{"==", "!=", "<=", ">=", "&&", "||", "<<", ">>"}

const puncts1 = "{}()[];,:=<>+-*/%&|^!~?."

// Next returns the next token. After the end of input it keeps returning EOF.
func (lx *Lexer) Next() (Token, error) {
	lx.skipTrivia()
	start := lx.pos()
	if lx.eof() {
		return Token{Kind: EOF, Pos: start}, nil
	}
	ch := lx.peek()
	switch {
	case isIdentStart(ch):
		return Token{Kind: Ident, Text: lx.scanIdent(), Pos: start}, nil
	case ch == '$':
		lx.bump()
		if !isIdentStart(lx.peek()) {
			return Token{}, diag.NewError(diag.IRLexUnknownChar, start, "expected register name after '$'")
		}
		return Token{Kind: Preg, Text: lx.scanIdent(), Pos: start}, nil
	case isDigit(ch):
		return lx.scanNumber(start)
	case ch == '"':
		return lx.scanString(start)
	}
	for _, p := range puncts3 {
		if lx.match(p) {
			return Token{Kind: Punct, Text: p, Pos: start}, nil
		}
	}
	for _, p := range puncts2 {
		if lx.match(p) {
			return Token{Kind: Punct, Text: p, Pos: start}, nil
		}
	}
	for i := 0; i < len(puncts1); i++ {
		if ch == puncts1[i] {
			lx.bump()
			return Token{Kind: Punct, Text: string(ch), Pos: start}, nil
		}
	}
	return Token{}, diag.NewError(diag.IRLexUnknownChar, start, "unexpected character "+strconv.QuoteRune(rune(ch)))
}

func (lx *Lexer) match(p string) bool {
	for i := 0; i < len(p); i++ {
		if lx.peekAt(i) != p[i] {
			return false
		}
	}
	for range len(p) {
		lx.bump()
	}
	return true
}

func (lx *Lexer) scanIdent() string {
	begin := lx.off
	for !lx.eof() && isIdentContinue(lx.peek()) {
		lx.bump()
	}
	return string(lx.src[begin:lx.off])
}

func (lx *Lexer) scanNumber(start diag.Pos) (Token, error) {
	begin := lx.off
	for !lx.eof() && (isIdentContinue(lx.peek())) {
		lx.bump()
	}
	text := string(lx.src[begin:lx.off])
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return Token{}, diag.NewError(diag.IRLexBadNumber, start, "malformed integer "+strconv.Quote(text))
	}
	return Token{Kind: Int, Text: text, Value: v, Pos: start}, nil
}

func (lx *Lexer) scanString(start diag.Pos) (Token, error) {
	begin := lx.off
	lx.bump()
	for {
		if lx.eof() || lx.peek() == '\n' {
			return Token{}, diag.NewError(diag.IRLexUnterminatedString, start, "unterminated string literal")
		}
		ch := lx.bump()
		if ch == '\\' {
			lx.bump()
			continue
		}
		if ch == '"' {
			break
		}
	}
	text, err := strconv.Unquote(string(lx.src[begin:lx.off]))
	if err != nil {
		return Token{}, diag.NewError(diag.IRLexUnterminatedString, start, "bad string literal: "+err.Error())
	}
	return Token{Kind: String, Text: text, Pos: start}, nil
}

// Tokenize lexes the whole input.
func Tokenize(file string, src []byte) ([]Token, error) {
	lx := NewLexer(file, src)
	var toks []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}
