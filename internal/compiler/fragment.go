package compiler

import (
	"fmt"
	"go/scanner"
	"go/token"
	"strings"
	"unicode"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/errors"
)

// checkFragment is a best-effort check that code is something the Go
// compiler could tokenize: no illegal tokens, no unterminated literals and
// balanced brackets. It does not parse the fragment. Expressions and headers
// are spliced into a single line of output, so a line comment in them is
// rejected as well.
func (c *Compiler) checkFragment(code string, pos ast.Position) error {
	if reason := fragmentProblem(code, false); reason != "" {
		return c.fail(errors.NewMalformedFragment(code, reason), pos)
	}
	return nil
}

// checkStatement is checkFragment for code copied onto lines of its own,
// where line comments are harmless.
func (c *Compiler) checkStatement(code string, pos ast.Position) error {
	if reason := fragmentProblem(code, true); reason != "" {
		return c.fail(errors.NewMalformedFragment(code, reason), pos)
	}
	return nil
}

// checkNumber accepts exactly one numeric literal, optionally signed.
func (c *Compiler) checkNumber(lexeme string, pos ast.Position) error {
	toks, reason := scanTokens(lexeme)
	if reason == "" {
		if len(toks) > 0 && (toks[0] == token.SUB || toks[0] == token.ADD) {
			toks = toks[1:]
		}
		if len(toks) != 1 || (toks[0] != token.INT && toks[0] != token.FLOAT && toks[0] != token.IMAG) {
			reason = "not a number literal"
		}
	}
	if reason != "" {
		return c.fail(errors.NewMalformedFragment(lexeme, reason), pos)
	}
	return nil
}

// fragmentProblem returns a description of the first problem found in code,
// or the empty string.
func fragmentProblem(code string, lineComments bool) string {
	if strings.TrimSpace(code) == "" {
		return "empty fragment"
	}

	var stack []token.Token
	closing := map[token.Token]token.Token{
		token.RPAREN: token.LPAREN,
		token.RBRACK: token.LBRACK,
		token.RBRACE: token.LBRACE,
	}

	var (
		s       scanner.Scanner
		scanErr string
	)
	fset := token.NewFileSet()
	src := []byte(code)
	file := fset.AddFile("", fset.Base(), len(src))
	s.Init(file, src, func(_ token.Position, msg string) {
		if scanErr == "" {
			scanErr = msg
		}
	}, scanner.ScanComments)

	for {
		pos, tok, lit := s.Scan()
		if scanErr != "" {
			return scanErr
		}
		switch tok {
		case token.COMMENT:
			if !lineComments && strings.HasPrefix(lit, "//") {
				return fmt.Sprintf("line comment at offset %d", file.Offset(pos))
			}
		case token.EOF:
			if len(stack) > 0 {
				return fmt.Sprintf("unclosed %s", stack[len(stack)-1])
			}
			return ""
		case token.ILLEGAL:
			return fmt.Sprintf("illegal token %q at offset %d", lit, file.Offset(pos))
		case token.LPAREN, token.LBRACK, token.LBRACE:
			stack = append(stack, tok)
		case token.RPAREN, token.RBRACK, token.RBRACE:
			if len(stack) == 0 || stack[len(stack)-1] != closing[tok] {
				return fmt.Sprintf("unexpected %s at offset %d", tok, file.Offset(pos))
			}
			stack = stack[:len(stack)-1]
		}
	}
}

// scanTokens returns the token kinds of code without automatic semicolons.
func scanTokens(code string) ([]token.Token, string) {
	if reason := fragmentProblem(code, false); reason != "" {
		return nil, reason
	}

	var s scanner.Scanner
	fset := token.NewFileSet()
	src := []byte(code)
	s.Init(fset.AddFile("", fset.Base(), len(src)), src, nil, 0)

	var toks []token.Token
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			return toks, ""
		}
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		toks = append(toks, tok)
	}
}

// blockHeader splits code into the statements before its last statement and
// that last statement, when the last statement is one that takes a block:
// a for, if, else, switch or select header, or one ending in a function
// literal without its body such as "f := func()". Comments after the header
// are dropped. ok is false when the code does not end in such a header.
func blockHeader(code string) (stmts, header string, ok bool) {
	var s scanner.Scanner
	fset := token.NewFileSet()
	src := []byte(code)
	file := fset.AddFile("", fset.Base(), len(src))
	s.Init(file, src, nil, scanner.ScanComments)

	var (
		start, end int
		started    bool
		boundary   = true
		clause     bool
		openFunc   bool
		depth      int
	)
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.COMMENT {
			continue
		}
		if tok == token.SEMICOLON {
			// Semicolons separate the clauses of a for, if or switch header
			// unless a newline put them there.
			if depth == 0 && (lit == "\n" || !clause) {
				boundary = true
			}
			continue
		}

		off := file.Offset(pos)
		if boundary && depth == 0 {
			boundary = false
			started = true
			start = off
			openFunc = false
			switch tok {
			case token.FOR, token.IF, token.ELSE, token.SWITCH, token.SELECT:
				clause = true
			default:
				clause = false
			}
		}

		switch tok {
		case token.FUNC:
			openFunc = true
		case token.LBRACE:
			openFunc = false
			depth++
		case token.LPAREN, token.LBRACK:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
		}

		if lit == "" {
			lit = tok.String()
		}
		end = off + len(lit)
	}

	if !started || !(clause || openFunc) {
		return "", "", false
	}
	return strings.TrimRightFunc(code[:start], unicode.IsSpace), code[start:end], true
}
