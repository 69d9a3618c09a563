// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqltemplate

import (
	"fmt"
	"strings"
)

// TokenType is the type of a lexical token.
type TokenType int

// Token types. Keywords are matched without regard to case.
const (
	TokenEOF TokenType = iota
	TokenError
	TokenIdent
	TokenNumber
	TokenString
	TokenPlaceholder

	TokenLParen
	TokenRParen
	TokenComma
	TokenSemicolon
	TokenDot
	TokenStar
	TokenPlus
	TokenMinus
	TokenSlash
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe
	TokenQuestion

	keywordStart
	TokenInsert
	TokenInto
	TokenValues
	TokenUpdate
	TokenSet
	TokenDelete
	TokenFrom
	TokenWhere
	TokenSelect
	TokenAnd
	TokenInner
	TokenJoin
	TokenOn
	TokenLimit
	TokenOrder
	TokenBy
	TokenAsc
	TokenDesc
	TokenTrue
	TokenFalse
	TokenNull
	TokenNow
	TokenMax
	TokenMin
	TokenCount
	TokenSum
)

var tokenNames = map[TokenType]string{
	TokenEOF: "end of input", TokenError: "error", TokenIdent: "identifier", TokenNumber: "number",
	TokenString: "string", TokenPlaceholder: "placeholder", TokenLParen: "(", TokenRParen: ")", TokenComma: ",",
	TokenSemicolon: ";", TokenDot: ".", TokenStar: "*", TokenPlus: "+", TokenMinus: "-", TokenSlash: "/",
	TokenEq: "=", TokenNe: "<>", TokenLt: "<", TokenLe: "<=", TokenGt: ">", TokenGe: ">=", TokenQuestion: "?",
}

var keywords = map[string]TokenType{
	"INSERT": TokenInsert, "INTO": TokenInto, "VALUES": TokenValues, "VALUE": TokenValues, "UPDATE": TokenUpdate,
	"SET": TokenSet, "DELETE": TokenDelete, "FROM": TokenFrom, "WHERE": TokenWhere, "SELECT": TokenSelect,
	"AND": TokenAnd, "INNER": TokenInner, "JOIN": TokenJoin, "ON": TokenOn, "LIMIT": TokenLimit,
	"ORDER": TokenOrder, "BY": TokenBy, "ASC": TokenAsc, "DESC": TokenDesc, "TRUE": TokenTrue,
	"FALSE": TokenFalse, "NULL": TokenNull, "NOW": TokenNow, "MAX": TokenMax, "MIN": TokenMin,
	"COUNT": TokenCount, "SUM": TokenSum,
}

func init() {
	for k, t := range keywords {
		if _, ok := tokenNames[t]; !ok {
			tokenNames[t] = k
		}
	}
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(tt))
}

// Token is a lexical token. Offset is the byte offset of the token in the template.
type Token struct {
	Type    TokenType
	Literal string
	Offset  int
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return t.Type.String()
	}
	return fmt.Sprintf("%q", t.Literal)
}

// Lexer splits a SQL template into tokens. Placeholders [[...]] are single tokens; string literals keep their quotes
// and may contain placeholders.
type Lexer struct {
	input string
	pos   int
}

// NewLexer returns a lexer reading input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func isLetter(ch byte) bool {
	return ch == '_' || ch == '`' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *Lexer) peek(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

// NextToken returns the next token, TokenEOF at the end of the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Offset: start}
	}
	ch := l.input[l.pos]
	switch {
	case ch == '[' && l.peek(1) == '[':
		end := strings.Index(l.input[l.pos:], "]]")
		if end < 0 {
			l.pos = len(l.input)
			return Token{Type: TokenError, Literal: l.input[start:], Offset: start}
		}
		l.pos += end + 2
		return Token{Type: TokenPlaceholder, Literal: l.input[start:l.pos], Offset: start}
	case ch == '\'' || ch == '"':
		return l.readString(ch)
	case isDigit(ch):
		for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
			l.pos++
		}
		return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Offset: start}
	case isLetter(ch):
		for l.pos < len(l.input) && (isLetter(l.input[l.pos]) || isDigit(l.input[l.pos]) || l.input[l.pos] == '$') {
			l.pos++
		}
		lit := strings.Trim(l.input[start:l.pos], "`")
		if t, ok := keywords[strings.ToUpper(lit)]; ok {
			return Token{Type: t, Literal: lit, Offset: start}
		}
		return Token{Type: TokenIdent, Literal: lit, Offset: start}
	}
	l.pos++
	tt := TokenError
	switch ch {
	case '(':
		tt = TokenLParen
	case ')':
		tt = TokenRParen
	case ',':
		tt = TokenComma
	case ';':
		tt = TokenSemicolon
	case '.':
		tt = TokenDot
	case '*':
		tt = TokenStar
	case '+':
		tt = TokenPlus
	case '-':
		tt = TokenMinus
	case '/':
		tt = TokenSlash
	case '?':
		tt = TokenQuestion
	case '=':
		tt = TokenEq
	case '!':
		if l.peek(0) == '=' {
			l.pos++
			tt = TokenNe
		}
	case '<':
		switch l.peek(0) {
		case '=':
			l.pos++
			tt = TokenLe
		case '>':
			l.pos++
			tt = TokenNe
		default:
			tt = TokenLt
		}
	case '>':
		if l.peek(0) == '=' {
			l.pos++
			tt = TokenGe
		} else {
			tt = TokenGt
		}
	}
	return Token{Type: tt, Literal: l.input[start:l.pos], Offset: start}
}

// readString reads a quoted literal. A doubled quote stands for the quote itself.
func (l *Lexer) readString(quote byte) Token {
	start := l.pos
	l.pos++
	for l.pos < len(l.input) {
		if l.input[l.pos] == quote {
			if l.peek(1) == quote {
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Type: TokenString, Literal: l.input[start:l.pos], Offset: start}
		}
		l.pos++
	}
	return Token{Type: TokenError, Literal: l.input[start:], Offset: start}
}

// Tokenize returns every token of input, ending with TokenEOF or the first TokenError.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var res []Token
	for {
		t := l.NextToken()
		res = append(res, t)
		if t.Type == TokenEOF || t.Type == TokenError {
			return res
		}
	}
}

// unquote returns the content of a string literal token.
func unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	q := lit[:1]
	return strings.ReplaceAll(lit[1:len(lit)-1], q+q, q)
}
