// Package parser implements a pragmatic Spin/Spin2 parser: enough of the
// expression grammar, statement forms, and declaration sections to drive the
// core middle-end (expression engine, lowering, type inference, Nu IR
// generation) end to end. It is explicitly not a complete Spin2 parser —
// full language coverage is this system's stated Non-goal; the core
// components downstream of parsing are the subject of this module.
//
// Two simplifications the real Spin grammar doesn't need, both called out
// because they shape every block-bearing statement form this parser
// accepts:
//   - Blocks are delimited by the keywords `do`/`end` rather than
//     column/indentation, since the lexer does not track column position.
//     `{ ... }` is reserved for (possibly nested) block comments, as in real
//     Spin, so it is not available to repurpose as block punctuation.
//   - Statements within a block are separated by `;`.
//
// Like the teacher's parser, this is a recursive-descent parser with Pratt
// (precedence-climbing) expression parsing.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/lexer"
	"github.com/totalspectrum/spinc/internal/token"
)

// Precedence levels, lowest to highest.
const (
	_ int = iota
	LOWEST
	LOGICAL     // AND OR
	COMPARISON  // < > =< => == <>
	BITOR_PREC  // |
	BITXOR_PREC // ^
	BITAND_PREC // &
	SHIFT       // << >> ~> <<< >>> ><
	SUM         // + -
	PRODUCT     // * / //
	HIGHMULTP   // **
	PREFIX      // unary - ! NOT ABS SQRT ...
	POSTFIX     // x~ x~~
	CALLIDX     // f(...) a[...]
)

var precedences = map[token.Type]int{
	token.AND:      LOGICAL,
	token.OR:       LOGICAL,
	token.LT:       COMPARISON,
	token.GT:       COMPARISON,
	token.LE:       COMPARISON,
	token.GE:       COMPARISON,
	token.EQ:       COMPARISON,
	token.NOT_EQ:   COMPARISON,
	token.PIPE:     BITOR_PREC,
	token.CARET:    BITXOR_PREC,
	token.AMP:      BITAND_PREC,
	token.SHL:      SHIFT,
	token.SHR:      SHIFT,
	token.SAR:      SHIFT,
	token.ROTL:     SHIFT,
	token.ROTR:     SHIFT,
	token.REVOP:    SHIFT,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.MODULUS:  PRODUCT,
	token.HIGHMULT: HIGHMULTP,
	token.LPAREN:   CALLIDX,
	token.LBRACKET: CALLIDX,
	token.TILDE:    POSTFIX,
	token.DOUBLETILDE: POSTFIX,
}

var binOpKind = map[token.Type]ast.Kind{
	token.AND:      ast.LOGAND,
	token.OR:       ast.LOGOR,
	token.LT:       ast.LT,
	token.GT:       ast.GT,
	token.LE:       ast.LE,
	token.GE:       ast.GE,
	token.EQ:       ast.EQ,
	token.NOT_EQ:   ast.NOTEQ,
	token.PIPE:     ast.BITOR,
	token.CARET:    ast.BITXOR,
	token.AMP:      ast.BITAND,
	token.SHL:      ast.SHL,
	token.SHR:      ast.SHR,
	token.SAR:      ast.SAR,
	token.ROTL:     ast.ROTL,
	token.ROTR:     ast.ROTR,
	token.REVOP:    ast.REVOP,
	token.PLUS:     ast.ADD,
	token.MINUS:    ast.SUB,
	token.ASTERISK: ast.MUL,
	token.SLASH:    ast.DIV,
	token.MODULUS:  ast.MODULUS,
	token.HIGHMULT: ast.HIGHMULT,
}

// builtinKind maps a keyword-spelled builtin function name to its AST kind.
var builtinKind = map[token.Type]ast.Kind{
	token.ABS:      ast.ABS,
	token.SQRT:     ast.SQRTOP,
	token.ENCODE:   ast.ENCODEOP,
	token.DECODE:   ast.DECODEOP,
	token.REV:      ast.REVOP,
	token.LIMITMIN: ast.LIMITMIN,
	token.LIMITMAX: ast.LIMITMAX,
	token.COGINIT:  ast.COGINIT,
	token.LOOKUP:   ast.LOOKUPEXPR,
	token.LOOKUPZ:  ast.LOOKUPZEXPR,
}

type (
	prefixParseFn func() *ast.Node
	infixParseFn  func(*ast.Node) *ast.Node
)

// Parser parses a token stream into the tagged AST of package ast.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	cur  token.Token
	peek token.Token

	prefixFns map[token.Type]prefixParseFn
	infixFns  map[token.Type]infixParseFn
}

// New creates a Parser reading tokens from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixFns = make(map[token.Type]prefixParseFn)
	p.prefixFns[token.IDENT] = p.parseIdentifier
	p.prefixFns[token.INT] = p.parseIntLiteral
	p.prefixFns[token.FLOAT] = p.parseFloatLiteral
	p.prefixFns[token.STRING] = p.parseStringLiteral
	p.prefixFns[token.TRUE] = p.parseBoolLiteral
	p.prefixFns[token.FALSE] = p.parseBoolLiteral
	p.prefixFns[token.MINUS] = p.parseUnary(ast.NEG, PREFIX)
	p.prefixFns[token.BANG] = p.parseUnary(ast.BITNOT, PREFIX)
	p.prefixFns[token.NOT] = p.parseUnary(ast.LOGNOT, PREFIX)
	p.prefixFns[token.AT] = p.parseUnary(ast.ADDROF, PREFIX)
	p.prefixFns[token.ATAT] = p.parseUnary(ast.ADDROF, PREFIX)
	p.prefixFns[token.ATATAT] = p.parseUnary(ast.ABSADDROF, PREFIX)
	p.prefixFns[token.LPAREN] = p.parseGroupedExpression
	for tt, kind := range builtinKind {
		p.prefixFns[tt] = p.parseBuiltinCall(kind)
	}

	p.infixFns = make(map[token.Type]infixParseFn)
	for tt := range binOpKind {
		p.infixFns[tt] = p.parseBinaryExpression
	}
	p.infixFns[token.LPAREN] = p.parseCallExpression
	p.infixFns[token.LBRACKET] = p.parseIndexExpression
	p.infixFns[token.TILDE] = p.parsePostEffect(ast.POSTCLEAR)
	p.infixFns[token.DOUBLETILDE] = p.parsePostEffect(ast.POSTSET)

	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the accumulated syntax error messages.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekIs(t) {
		p.nextToken()
		return true
	}
	p.errors = append(p.errors, fmt.Sprintf(
		"line %d: expected next token %s, got %s %q", p.peek.Line, t, p.peek.Type, p.peek.Literal))
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: ", p.cur.Line)+fmt.Sprintf(format, args...))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peek.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseProgram parses a full module source: CON/VAR/OBJ sections and PUB/PRI
// function declarations, in any order, until EOF. Check [Parser.Errors]
// afterward.
func (p *Parser) ParseProgram() *ast.Node {
	root := &ast.Node{Kind: ast.BLOCK, Line: p.cur.Line}
	var decls []*ast.Node

	for !p.curIs(token.EOF) {
		switch p.cur.Type {
		case token.CON:
			decls = append(decls, p.parseConSection()...)
		case token.VAR:
			decls = append(decls, p.parseVarSection()...)
		case token.OBJ:
			decls = append(decls, p.parseObjSection()...)
		case token.PUB, token.PRI:
			decls = append(decls, p.parseFunctionDecl())
		default:
			p.errorf("unexpected token %s %q at module level", p.cur.Type, p.cur.Literal)
			p.nextToken()
		}
	}
	root.Extra = decls
	return root
}

// --- declaration sections ---

func (p *Parser) parseConSection() []*ast.Node {
	if !p.expectPeek(token.DO) {
		return nil
	}
	p.nextToken()
	var decls []*ast.Node
	for !p.curIs(token.END) && !p.curIs(token.EOF) {
		if p.curIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		line := p.cur.Line
		name := p.cur.Literal
		if !p.expectPeek(token.CONASSIGN) {
			p.nextToken()
			continue
		}
		p.nextToken()
		val := p.parseExpression(LOWEST)
		decls = append(decls, &ast.Node{Kind: ast.CONDECL, Line: line, Left: ast.Ident(line, name), Right: val})
		if p.peekIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}
	p.nextToken() // past END
	return decls
}

func (p *Parser) parseVarSection() []*ast.Node {
	if !p.expectPeek(token.DO) {
		return nil
	}
	p.nextToken()
	var decls []*ast.Node
	for !p.curIs(token.END) && !p.curIs(token.EOF) {
		if p.curIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		typeName := p.cur.Literal
		line := p.cur.Line
		p.nextToken()
		for {
			name := p.cur.Literal
			decls = append(decls, &ast.Node{Kind: ast.VARDECL, Line: line, Left: ast.Ident(line, name), Str: typeName})
			if p.peekIs(token.COMMA) {
				p.nextToken()
				p.nextToken()
				continue
			}
			break
		}
		if p.peekIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}
	p.nextToken()
	return decls
}

func (p *Parser) parseObjSection() []*ast.Node {
	if !p.expectPeek(token.DO) {
		return nil
	}
	p.nextToken()
	var decls []*ast.Node
	for !p.curIs(token.END) && !p.curIs(token.EOF) {
		if p.curIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		line := p.cur.Line
		name := p.cur.Literal
		file := ""
		if p.peekIs(token.COLON) {
			p.nextToken()
			if p.expectPeek(token.STRING) {
				file = p.cur.Literal
			}
		}
		decls = append(decls, &ast.Node{Kind: ast.OBJDECL, Line: line, Left: ast.Ident(line, name), Str: file})
		if p.peekIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}
	p.nextToken()
	return decls
}

// parseFunctionDecl parses `PUB name(params) | locals do body end`; the
// parenthesised parameter list and the `| locals` list are both optional
// (`PUB name do body end`). The parameter and local-variable lists become BLOCK nodes of PARAMDECL /
// LOCALDECL children so the function-normalisation pass can walk them
// uniformly with the body.
func (p *Parser) parseFunctionDecl() *ast.Node {
	isPub := p.curIs(token.PUB)
	line := p.cur.Line
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.cur.Literal

	params := &ast.Node{Kind: ast.BLOCK, Line: line}
	if p.peekIs(token.LPAREN) {
		p.nextToken()
		if !p.peekIs(token.RPAREN) {
			p.nextToken()
			for {
				params.Extra = append(params.Extra, &ast.Node{Kind: ast.PARAMDECL, Line: p.cur.Line, Str: p.cur.Literal})
				if p.peekIs(token.COMMA) {
					p.nextToken()
					p.nextToken()
					continue
				}
				break
			}
		}
		p.expectPeek(token.RPAREN)
	}

	locals := &ast.Node{Kind: ast.BLOCK, Line: line}
	if p.peekIs(token.PIPE) {
		p.nextToken()
		p.nextToken()
		for {
			locals.Extra = append(locals.Extra, &ast.Node{Kind: ast.LOCALDECL, Line: p.cur.Line, Str: p.cur.Literal})
			if p.peekIs(token.COMMA) {
				p.nextToken()
				p.nextToken()
				continue
			}
			break
		}
	}

	if !p.expectPeek(token.DO) {
		return nil
	}
	body := p.parseBlockBody()
	p.nextToken() // past the body's closing end

	flag := int64(0)
	if isPub {
		flag = 1
	}
	return &ast.Node{
		Kind:  ast.FUNCDECL,
		Line:  line,
		Str:   name,
		IVal:  flag,
		Right: body,
		Extra: []*ast.Node{params, locals},
	}
}

// --- statements ---

// parseBlockBody parses statements until a matching `end`, assuming `do` was
// already consumed by the caller (cur == DO).
func (p *Parser) parseBlockBody() *ast.Node {
	block := &ast.Node{Kind: ast.BLOCK, Line: p.cur.Line}
	p.nextToken()
	for !p.curIs(token.END) && !p.curIs(token.EOF) {
		if p.curIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Extra = append(block.Extra, stmt)
		}
		if p.peekIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseStatement() *ast.Node {
	switch p.cur.Type {
	case token.REPEAT:
		return p.parseRepeatStatement()
	case token.IF, token.IFNOT:
		return p.parseIfStatement()
	case token.CASE:
		return p.parseCaseStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.ABORT:
		return p.parseAbortStatement()
	case token.QUIT:
		return &ast.Node{Kind: ast.QUITSTMT, Line: p.cur.Line}
	case token.NEXT:
		return &ast.Node{Kind: ast.NEXTSTMT, Line: p.cur.Line}
	case token.DEBUG:
		return p.parseDebugStatement()
	default:
		return p.parseSimpleStatement()
	}
}

func (p *Parser) parseSimpleStatement() *ast.Node {
	line := p.cur.Line
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if p.peekIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		rhs := p.parseExpression(LOWEST)
		kind := ast.ASSIGN
		if expr.Kind == ast.RANGEREF {
			kind = ast.RANGEASSIGN
		}
		return &ast.Node{Kind: kind, Line: line, Left: expr, Right: rhs}
	}
	return &ast.Node{Kind: ast.EXPRSTMT, Line: line, Left: expr}
}

// parseRepeatStatement covers three forms: bare `repeat do end` (infinite),
// `repeat n do end` (count), and `repeat var from a to b [step s] do end`
// (counting). The counting form is represented uniformly as a REPEATCOUNT
// node: Left is the loop variable identifier (nil for the anonymous count
// form), Extra is [from, to, step, body] with from/step nil when defaulted.
func (p *Parser) parseRepeatStatement() *ast.Node {
	line := p.cur.Line
	p.nextToken() // past REPEAT

	if p.curIs(token.DO) {
		body := p.parseBlockBody()
		return &ast.Node{Kind: ast.REPEATCOUNT, Line: line, Extra: []*ast.Node{nil, nil, nil, body}}
	}

	if p.curIs(token.IDENT) && p.peekIs(token.FROM) {
		varNode := ast.Ident(p.cur.Line, p.cur.Literal)
		p.nextToken() // past ident, cur == FROM
		p.nextToken() // past FROM
		from := p.parseExpression(LOWEST)
		if !p.expectPeek(token.TO) {
			return nil
		}
		p.nextToken()
		to := p.parseExpression(LOWEST)
		var step *ast.Node
		if p.peekIs(token.STEP) {
			p.nextToken()
			p.nextToken()
			step = p.parseExpression(LOWEST)
		}
		if !p.expectPeek(token.DO) {
			return nil
		}
		body := p.parseBlockBody()
		return &ast.Node{Kind: ast.REPEATCOUNT, Line: line, Left: varNode, Extra: []*ast.Node{from, to, step, body}}
	}

	count := p.parseExpression(LOWEST)
	if !p.expectPeek(token.DO) {
		return nil
	}
	body := p.parseBlockBody()
	return &ast.Node{Kind: ast.REPEATCOUNT, Line: line, Extra: []*ast.Node{nil, count, nil, body}}
}

// parseIfStatement parses `if cond do end [elseif cond do end]* [else do end]`,
// building a right-leaning chain of IFSTMT nodes. IVal is 1 for `ifnot`.
func (p *Parser) parseIfStatement() *ast.Node {
	line := p.cur.Line
	negate := p.curIs(token.IFNOT)
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(token.DO) {
		return nil
	}
	then := p.parseBlockBody()

	flag := int64(0)
	if negate {
		flag = 1
	}
	node := &ast.Node{Kind: ast.IFSTMT, Line: line, IVal: flag, Left: cond, Right: then}

	if p.peekIs(token.ELSEIF) {
		p.nextToken()
		node.Extra = []*ast.Node{p.parseIfStatement()}
	} else if p.peekIs(token.ELSE) {
		p.nextToken()
		if !p.expectPeek(token.DO) {
			return node
		}
		node.Extra = []*ast.Node{p.parseBlockBody()}
	}
	return node
}

// parseCaseStatement parses `case expr do item: do end ... other: do end end`.
// Each arm is a CASEITEM node; Left is nil for the `other` arm.
func (p *Parser) parseCaseStatement() *ast.Node {
	line := p.cur.Line
	p.nextToken()
	scrutinee := p.parseExpression(LOWEST)
	if !p.expectPeek(token.DO) {
		return nil
	}
	p.nextToken()

	node := &ast.Node{Kind: ast.CASESTMT, Line: line, Left: scrutinee}
	for !p.curIs(token.END) && !p.curIs(token.EOF) {
		itemLine := p.cur.Line
		var match *ast.Node
		if p.curIs(token.OTHER) {
			// cur sits on OTHER itself; peek is expected to be COLON,
			// exactly like the fall-through after parsing an expression.
		} else {
			match = p.parseExpression(LOWEST)
			if p.peekIs(token.DOTDOT) {
				p.nextToken()
				p.nextToken()
				hi := p.parseExpression(LOWEST)
				match = &ast.Node{Kind: ast.ISBETWEEN, Line: itemLine, Left: match, Right: hi}
			}
		}
		if !p.expectPeek(token.COLON) {
			return node
		}
		if !p.expectPeek(token.DO) {
			return node
		}
		body := p.parseBlockBody()
		node.Extra = append(node.Extra, &ast.Node{Kind: ast.CASEITEM, Line: itemLine, Left: match, Right: body})
		p.nextToken()
	}
	return node
}

func (p *Parser) parseReturnStatement() *ast.Node {
	line := p.cur.Line
	p.nextToken()
	if p.curIs(token.SEMICOLON) || p.curIs(token.END) {
		return &ast.Node{Kind: ast.RETURNSTMT, Line: line}
	}
	expr := p.parseExpression(LOWEST)
	return &ast.Node{Kind: ast.RETURNSTMT, Line: line, Left: expr}
}

func (p *Parser) parseAbortStatement() *ast.Node {
	line := p.cur.Line
	p.nextToken()
	if p.curIs(token.SEMICOLON) || p.curIs(token.END) {
		return &ast.Node{Kind: ast.ABORTSTMT, Line: line}
	}
	expr := p.parseExpression(LOWEST)
	return &ast.Node{Kind: ast.ABORTSTMT, Line: line, Left: expr}
}

// parseDebugStatement parses `DEBUG(item, item, ...)`. Each item is either a
// bare identifier (a flow keyword like `if`/`dly`), a string literal, or a
// call-shaped tag expression (`udec(x)`, `uhex_long_array(ptr, n)`) — all of
// which already fall out of the ordinary expression grammar, so this just
// collects a comma list and lets internal/debugasm interpret it against its
// own tag table.
func (p *Parser) parseDebugStatement() *ast.Node {
	line := p.cur.Line
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	node := &ast.Node{Kind: ast.BRKDEBUG, Line: line}
	if p.peekIs(token.RPAREN) {
		p.nextToken()
		return node
	}
	p.nextToken()
	node.Extra = append(node.Extra, p.parseExpression(LOWEST))
	for p.peekIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		node.Extra = append(node.Extra, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return node
}

// --- expressions ---

func (p *Parser) parseExpression(precedence int) *ast.Node {
	prefix, ok := p.prefixFns[p.cur.Type]
	if !ok {
		p.errorf("no prefix parse function for %s %q", p.cur.Type, p.cur.Literal)
		return nil
	}
	left := prefix()

	for !p.peekIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix, ok := p.infixFns[p.peek.Type]
		if !ok {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() *ast.Node {
	return ast.Ident(p.cur.Line, p.cur.Literal)
}

func (p *Parser) parseIntLiteral() *ast.Node {
	lit := p.cur.Literal
	line := p.cur.Line
	var v int64
	var err error
	switch {
	case strings.HasPrefix(lit, "$"):
		v, err = strconv.ParseInt(strings.ReplaceAll(lit[1:], "_", ""), 16, 64)
	case strings.HasPrefix(lit, "%"):
		v, err = strconv.ParseInt(strings.ReplaceAll(lit[1:], "_", ""), 2, 64)
	default:
		v, err = strconv.ParseInt(strings.ReplaceAll(lit, "_", ""), 10, 64)
	}
	if err != nil {
		p.errorf("could not parse %q as integer: %v", lit, err)
		return nil
	}
	return ast.Int(line, v)
}

func (p *Parser) parseFloatLiteral() *ast.Node {
	line := p.cur.Line
	f, err := strconv.ParseFloat(strings.ReplaceAll(p.cur.Literal, "_", ""), 32)
	if err != nil {
		p.errorf("could not parse %q as float: %v", p.cur.Literal, err)
		return nil
	}
	bits := int64(int32(math.Float32bits(float32(f))))
	return ast.Float(line, bits)
}

func (p *Parser) parseStringLiteral() *ast.Node {
	return ast.StringLit(p.cur.Line, p.cur.Literal)
}

func (p *Parser) parseBoolLiteral() *ast.Node {
	if p.curIs(token.TRUE) {
		return ast.Int(p.cur.Line, -1)
	}
	return ast.Int(p.cur.Line, 0)
}

func (p *Parser) parseUnary(kind ast.Kind, prec int) prefixParseFn {
	return func() *ast.Node {
		line := p.cur.Line
		p.nextToken()
		operand := p.parseExpression(prec)
		return &ast.Node{Kind: kind, Line: line, Left: operand}
	}
}

func (p *Parser) parseGroupedExpression() *ast.Node {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseBinaryExpression(left *ast.Node) *ast.Node {
	line := p.cur.Line
	kind := binOpKind[p.cur.Type]
	prec := precedences[p.cur.Type]
	p.nextToken()
	right := p.parseExpression(prec)
	return &ast.Node{Kind: kind, Line: line, Left: left, Right: right}
}

func (p *Parser) parsePostEffect(kind ast.Kind) infixParseFn {
	return func(left *ast.Node) *ast.Node {
		return &ast.Node{Kind: kind, Line: p.cur.Line, Left: left}
	}
}

func (p *Parser) parseCallExpression(fn *ast.Node) *ast.Node {
	line := p.cur.Line
	args := p.parseExpressionList(token.RPAREN)
	return &ast.Node{Kind: ast.FUNCCALL, Line: line, Left: fn, Extra: args}
}

// parseIndexExpression handles both `a[i]` (plain index) and `hw[hi..lo]`
// (range reference), distinguished by whether a `..` follows the first
// bracketed expression. Both shapes produce a RANGEREF node; for a plain
// index, Right is the index expression itself rather than a RANGE node.
func (p *Parser) parseIndexExpression(left *ast.Node) *ast.Node {
	line := p.cur.Line
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if p.peekIs(token.DOTDOT) {
		p.nextToken()
		p.nextToken()
		lo := p.parseExpression(LOWEST)
		rangeNode := &ast.Node{Kind: ast.RANGE, Line: line, Left: first, Right: lo}
		if !p.expectPeek(token.RBRACKET) {
			return nil
		}
		return &ast.Node{Kind: ast.RANGEREF, Line: line, Left: left, Right: rangeNode}
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return &ast.Node{Kind: ast.RANGEREF, Line: line, Left: left, Right: first}
}

// unaryBuiltinKinds take exactly one argument, parsed into Left — the same
// shape as the prefix unary operators (parseUnary), so internal/eval has a
// single NEG/BITNOT/ABS/SQRTOP/ENCODEOP/DECODEOP case keyed on Kind alone.
var unaryBuiltinKinds = map[ast.Kind]bool{
	ast.ABS: true, ast.SQRTOP: true, ast.ENCODEOP: true, ast.DECODEOP: true,
}

// binaryBuiltinKinds take exactly two arguments, parsed into Left/Right —
// the same shape as the infix binary operators (parseBinaryExpression), so
// a REVOP node means the same thing whether it was spelled as the infix
// `><` operator or the REV(a, n) builtin call.
var binaryBuiltinKinds = map[ast.Kind]bool{
	ast.REVOP: true, ast.LIMITMIN: true, ast.LIMITMAX: true,
}

// parseBuiltinCall parses `NAME(args...)`. Fixed-arity builtins (ABS, SQRT,
// ENCODE, DECODE, REV, LIMITMIN, LIMITMAX) land in Left (unary) or
// Left/Right (binary); the rest (LOOKUP, LOOKUPZ, COGINIT) collect every
// argument into Extra, with LOOKUP/LOOKUPZ's `NAME(ix: e1, e2, ...)` form
// special-cased: if a colon follows the first argument, that argument
// becomes Left (the index expression) and the remainder becomes the table
// entries in Extra.
func (p *Parser) parseBuiltinCall(kind ast.Kind) prefixParseFn {
	return func() *ast.Node {
		line := p.cur.Line
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		node := &ast.Node{Kind: kind, Line: line}
		if p.peekIs(token.RPAREN) {
			p.nextToken()
			return node
		}
		p.nextToken()

		if unaryBuiltinKinds[kind] {
			node.Left = p.parseExpression(LOWEST)
			if !p.expectPeek(token.RPAREN) {
				return nil
			}
			return node
		}
		if binaryBuiltinKinds[kind] {
			node.Left = p.parseExpression(LOWEST)
			if !p.expectPeek(token.COMMA) {
				return nil
			}
			p.nextToken()
			node.Right = p.parseExpression(LOWEST)
			if !p.expectPeek(token.RPAREN) {
				return nil
			}
			return node
		}

		first := p.parseExpression(LOWEST)
		if p.peekIs(token.COLON) {
			node.Left = first
			p.nextToken()
			p.nextToken()
			node.Extra = append(node.Extra, p.parseExpression(LOWEST))
		} else {
			node.Extra = append(node.Extra, first)
		}
		for p.peekIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			node.Extra = append(node.Extra, p.parseExpression(LOWEST))
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return node
	}
}

func (p *Parser) parseExpressionList(end token.Type) []*ast.Node {
	var list []*ast.Node
	if p.peekIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))
	for p.peekIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}
