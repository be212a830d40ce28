package parser

import (
	"github.com/tessera-cpu/tasm/internal/assembler/ast"
	"github.com/tessera-cpu/tasm/internal/assembler/token"
)

// Expression parsing mirrors the preprocessor evaluator's precedence ladder
// but builds AST nodes instead of values. Every binary level is
// left-associative except exponentiation, which sits between multiplicative
// and unary and associates to the right.

func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseLogicalOr()
}

// binaryLevel parses one left-associative precedence level.
func (p *Parser) binaryLevel(next func() (ast.Expression, error), kinds ...token.Kind) (ast.Expression, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		k := p.lx.Current().Kind
		match := false
		for _, want := range kinds {
			if k == want {
				match = true
				break
			}
		}
		if !match {
			return left, nil
		}
		p.lx.Skip(1)
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: k, Left: left, Right: right}
	}
}

func (p *Parser) parseLogicalOr() (ast.Expression, error) {
	return p.binaryLevel(p.parseLogicalAnd, token.OR)
}

func (p *Parser) parseLogicalAnd() (ast.Expression, error) {
	return p.binaryLevel(p.parseBitOr, token.AND)
}

func (p *Parser) parseBitOr() (ast.Expression, error) {
	return p.binaryLevel(p.parseBitXor, token.PIPE)
}

func (p *Parser) parseBitXor() (ast.Expression, error) {
	return p.binaryLevel(p.parseBitAnd, token.CARET)
}

func (p *Parser) parseBitAnd() (ast.Expression, error) {
	return p.binaryLevel(p.parseEquality, token.AMP)
}

func (p *Parser) parseEquality() (ast.Expression, error) {
	return p.binaryLevel(p.parseRelational, token.EQ, token.NOT_EQ)
}

func (p *Parser) parseRelational() (ast.Expression, error) {
	return p.binaryLevel(p.parseShift, token.LT, token.GT, token.LT_EQ, token.GT_EQ)
}

func (p *Parser) parseShift() (ast.Expression, error) {
	return p.binaryLevel(p.parseAdditive, token.SHL, token.SHR)
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	return p.binaryLevel(p.parseMultiplicative, token.PLUS, token.MINUS)
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	return p.binaryLevel(p.parseExponent, token.ASTERISK, token.SLASH, token.PERCENT)
}

// parseExponent is right-associative: 2 ** 3 ** 4 is 2 ** (3 ** 4).
func (p *Parser) parseExponent() (ast.Expression, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.lx.Current().Kind != token.POWER {
		return base, nil
	}
	p.lx.Skip(1)
	exp, err := p.parseExponent()
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpr{Op: token.POWER, Left: base, Right: exp}, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	k := p.lx.Current().Kind
	switch k {
	case token.BANG, token.TILDE, token.PLUS, token.MINUS:
		p.lx.Skip(1)
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: k, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	t := p.lx.Current()
	switch t.Kind {
	case token.INT:
		p.lx.Skip(1)
		return &ast.IntLit{Value: t.IntVal, Lexeme: t.Lexeme}, nil
	case token.NUMBER:
		p.lx.Skip(1)
		return &ast.NumberLit{Value: t.FloatVal, Lexeme: t.Lexeme}, nil
	case token.CHAR:
		p.lx.Skip(1)
		return &ast.CharLit{Value: t.IntVal, Lexeme: t.Lexeme}, nil
	case token.STRING:
		p.lx.Skip(1)
		return &ast.StringLit{Value: t.Str, Lexeme: t.Lexeme}, nil
	case token.IDENT:
		p.lx.Skip(1)
		return &ast.Ident{Name: t.Lexeme}, nil
	case token.VARIABLE:
		p.lx.Skip(1)
		return &ast.VarRef{Name: t.Lexeme[1:]}, nil
	case token.PLACEHOLDER, token.PLACEHOLDER_KEYWORD:
		p.lx.Skip(1)
		return &ast.Placeholder{Name: t.Lexeme[1:]}, nil
	case token.LPAREN:
		p.lx.Skip(1)
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.lx.Current().Kind != token.RPAREN {
			return nil, p.errorf(p.lx.Current(), "expected ')' to close grouped expression")
		}
		p.lx.Skip(1)
		return &ast.GroupExpr{Inner: inner}, nil
	}
	return nil, p.errorf(t, "unexpected %q in expression", t.Lexeme)
}
