// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package lexer implements a single-pass, no-backtracking lexer for the Wabbit language.
//
// Design principles:
//   - ASCII-only input
//   - Single-pass, no backtracking
//   - Support // line comments and /* */ block comments (non-nesting)
//   - Float literals accept "1.5", "1." and ".5"; a leading minus is
//     never part of the literal
package lexer

import (
	"github.com/doctaphred/dabeaz-compilers/lang/diag"
	"github.com/doctaphred/dabeaz-compilers/lang/token"
)

// Lexer holds the state for a single-pass tokenization run.
type Lexer struct {
	filename string
	input    []byte

	// pos is the index into input of the next byte to be loaded into ch.
	// After advance(), ch == input[pos-1] and pos points one past it.
	pos  int
	line int // 1-based current line number
	col  int // 1-based current column number

	ch byte // current character; 0 when past end

	errs diag.List
}

// New creates a new Lexer for the given filename and input string.
func New(filename, input string) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    []byte(input),
		line:     1,
		col:      0,
	}
	l.advance() // prime l.ch with the first byte
	return l
}

// Errors returns the diagnostics recorded while scanning.
func (l *Lexer) Errors() diag.List { return l.errs }

// advance moves to the next byte in the input, updating line/column tracking.
// When the end of input is reached, ch is set to 0.
func (l *Lexer) advance() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	l.ch = l.input[l.pos]
	l.pos++
}

// peek returns the byte after the current character without consuming it.
// Returns 0 if at or past end.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

// currentPos returns a token.Position capturing the lexer's state right now.
// Call this before consuming the first character of a token.
func (l *Lexer) currentPos() token.Position {
	// After advance(), pos is already one past ch, so the byte offset of ch is pos-1.
	return token.Position{
		File:   l.filename,
		Line:   l.line,
		Column: l.col,
		Offset: l.pos - 1,
	}
}

// makeToken constructs a token with the given type, literal, and position.
func makeToken(typ token.Type, literal string, pos token.Position) token.Token {
	return token.Token{Type: typ, Literal: literal, Pos: pos}
}

// errorf records a LexError at pos and returns an ILLEGAL token carrying the
// offending text.
func (l *Lexer) errorf(pos token.Position, lit string, format string, args ...interface{}) token.Token {
	l.errs.Add(diag.Errorf(pos, diag.LexError, format, args...))
	return makeToken(token.ILLEGAL, lit, pos)
}

// skipWhitespace consumes space, tab, carriage return, and newline characters.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.advance()
	}
}

// NextToken scans and returns the next token from the input.
// After EOF is reached, subsequent calls continue returning EOF tokens.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	pos := l.currentPos()
	ch := l.ch

	if ch == 0 {
		return makeToken(token.EOF, "", pos)
	}

	l.advance() // consume ch; from here on, l.ch is the character AFTER ch

	switch {
	// -------------------------------------------------------------------------
	// Identifiers and keywords
	// -------------------------------------------------------------------------
	case isIdentStart(ch):
		lit := l.readIdentFromFirst(ch)
		typ := token.LookupIdent(lit)
		return makeToken(typ, lit, pos)

	// -------------------------------------------------------------------------
	// Numeric literals
	// -------------------------------------------------------------------------
	case isDigit(ch):
		return l.readNumberFromFirst(ch, pos)

	// A '.' immediately followed by a digit starts a float (".5").
	case ch == '.':
		if isDigit(l.ch) {
			return l.readFractionFromDot(pos)
		}
		return l.errorf(pos, ".", "invalid character '.'")

	// -------------------------------------------------------------------------
	// Slash: comments or division
	// -------------------------------------------------------------------------
	case ch == '/':
		switch l.ch {
		case '/':
			l.advance() // consume second '/'
			body := l.readLineCommentBody()
			return makeToken(token.COMMENT, "//"+body, pos)
		case '*':
			lit, ok := l.readBlockCommentBody()
			if !ok {
				return l.errorf(pos, lit, "unterminated block comment")
			}
			return makeToken(token.COMMENT, lit, pos)
		default:
			return makeToken(token.SLASH, "/", pos)
		}

	// -------------------------------------------------------------------------
	// Operators
	// -------------------------------------------------------------------------
	case ch == '+':
		return makeToken(token.PLUS, "+", pos)

	case ch == '-':
		return makeToken(token.MINUS, "-", pos)

	case ch == '*':
		return makeToken(token.STAR, "*", pos)

	case ch == '^':
		return makeToken(token.CARET, "^", pos)

	case ch == '`':
		return makeToken(token.DEREF, "`", pos)

	case ch == '&':
		if l.ch == '&' {
			l.advance()
			return makeToken(token.AND, "&&", pos)
		}
		return l.errorf(pos, "&", "invalid character '&' (did you mean '&&'?)")

	case ch == '|':
		if l.ch == '|' {
			l.advance()
			return makeToken(token.OR, "||", pos)
		}
		return l.errorf(pos, "|", "invalid character '|' (did you mean '||'?)")

	case ch == '!':
		if l.ch == '=' {
			l.advance()
			return makeToken(token.NEQ, "!=", pos)
		}
		return makeToken(token.BANG, "!", pos)

	case ch == '=':
		if l.ch == '=' {
			l.advance()
			return makeToken(token.EQ, "==", pos)
		}
		return makeToken(token.ASSIGN, "=", pos)

	case ch == '<':
		if l.ch == '=' {
			l.advance()
			return makeToken(token.LTE, "<=", pos)
		}
		return makeToken(token.LT, "<", pos)

	case ch == '>':
		if l.ch == '=' {
			l.advance()
			return makeToken(token.GTE, ">=", pos)
		}
		return makeToken(token.GT, ">", pos)

	// -------------------------------------------------------------------------
	// Single-character punctuation
	// -------------------------------------------------------------------------
	case ch == '(':
		return makeToken(token.LPAREN, "(", pos)
	case ch == ')':
		return makeToken(token.RPAREN, ")", pos)
	case ch == '{':
		return makeToken(token.LBRACE, "{", pos)
	case ch == '}':
		return makeToken(token.RBRACE, "}", pos)
	case ch == ',':
		return makeToken(token.COMMA, ",", pos)
	case ch == ';':
		return makeToken(token.SEMICOLON, ";", pos)
	}

	// Anything else is ILLEGAL.
	return l.errorf(pos, string([]byte{ch}), "invalid character %q", string([]byte{ch}))
}

// Tokenize returns all tokens (including the final EOF) produced by repeated
// calls to NextToken.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

// ---------------------------------------------------------------------------
// Internal readers. Each assumes the first character has already been
// consumed by the advance() call inside NextToken.
// ---------------------------------------------------------------------------

// readIdentFromFirst builds an identifier literal starting with the already-
// consumed byte `first`, then consuming subsequent ident-continue bytes.
func (l *Lexer) readIdentFromFirst(first byte) string {
	buf := make([]byte, 1, 16)
	buf[0] = first
	for isIdentContinue(l.ch) {
		buf = append(buf, l.ch)
		l.advance()
	}
	return string(buf)
}

// readNumberFromFirst parses an integer or float literal given the already-
// consumed first digit `first`.
//
//   - digits              →  INT
//   - digits "." digits*  →  FLOAT  ("123." is a valid float)
func (l *Lexer) readNumberFromFirst(first byte, pos token.Position) token.Token {
	buf := make([]byte, 1, 24)
	buf[0] = first

	// Accumulate remaining decimal digits.
	for isDigit(l.ch) {
		buf = append(buf, l.ch)
		l.advance()
	}

	if l.ch != '.' {
		// A digit-run immediately followed by an identifier character is a
		// malformed number ("123abc"), not two tokens.
		if isIdentStart(l.ch) {
			for isIdentContinue(l.ch) {
				buf = append(buf, l.ch)
				l.advance()
			}
			return l.errorf(pos, string(buf), "malformed number %q", string(buf))
		}
		return makeToken(token.INT, string(buf), pos)
	}

	// Float: the fractional part may be empty ("1234.").
	buf = append(buf, '.')
	l.advance() // consume '.'
	for isDigit(l.ch) {
		buf = append(buf, l.ch)
		l.advance()
	}
	if l.ch == '.' || isIdentStart(l.ch) {
		for l.ch == '.' || isIdentContinue(l.ch) {
			buf = append(buf, l.ch)
			l.advance()
		}
		return l.errorf(pos, string(buf), "malformed number %q", string(buf))
	}
	return makeToken(token.FLOAT, string(buf), pos)
}

// readFractionFromDot parses a float of the form ".digits" after the leading
// '.' has been consumed.  l.ch is known to be a digit.
func (l *Lexer) readFractionFromDot(pos token.Position) token.Token {
	buf := make([]byte, 1, 24)
	buf[0] = '.'
	for isDigit(l.ch) {
		buf = append(buf, l.ch)
		l.advance()
	}
	return makeToken(token.FLOAT, string(buf), pos)
}

// readLineCommentBody reads from the current position to end-of-line (not
// including the newline byte).  The "//" prefix has already been consumed.
func (l *Lexer) readLineCommentBody() string {
	var buf []byte
	for l.ch != '\n' && l.ch != 0 {
		buf = append(buf, l.ch)
		l.advance()
	}
	return string(buf)
}

// readBlockCommentBody reads a /* ... */ block comment.  The opening '/' has
// already been consumed; l.ch is currently '*'.  Returns the full literal
// including "/*" and "*/", and false when the comment is unterminated.
func (l *Lexer) readBlockCommentBody() (string, bool) {
	buf := []byte{'/', '*'}
	l.advance() // consume the '*' that opened the block comment
	for {
		switch {
		case l.ch == 0:
			return string(buf), false
		case l.ch == '*' && l.peek() == '/':
			buf = append(buf, '*', '/')
			l.advance() // consume '*'
			l.advance() // consume '/'
			return string(buf), true
		default:
			buf = append(buf, l.ch)
			l.advance()
		}
	}
}

// ---------------------------------------------------------------------------
// Character classification helpers
// ---------------------------------------------------------------------------

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentContinue(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
