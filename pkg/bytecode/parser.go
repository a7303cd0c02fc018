package bytecode

import (
	"fmt"
	"strconv"

	"github.com/kristofer/ovum/pkg/builtin"
	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/jit"
	"github.com/kristofer/ovum/pkg/runtime"
)

// classification is the fixed per-opcode literal-argument table spec
// §4.7 says the parser consults: how many tokens (zero or one) each
// command name consumes, and of what kind. Derived from the original
// implementation's CommandFactory and mirrored by pkg/builtin's
// NewSimpleCommand/NewIntCommand/NewFloatCommand/NewBoolCommand/
// NewStringCommand/NewIdentCommand constructors.
type argKind int

const (
	argNone argKind = iota
	argString
	argInt
	argFloat
	argBool
	argIdent
)

var commandArgKind = func() map[string]argKind {
	m := map[string]argKind{}
	for _, name := range []string{"PushString", "PushChar"} {
		m[name] = argString
	}
	for _, name := range []string{"PushInt", "PushByte", "Rotate", "LoadLocal", "SetLocal", "LoadStatic", "SetStatic", "GetField", "SetField"} {
		m[name] = argInt
	}
	m["PushFloat"] = argFloat
	m["PushBool"] = argBool
	for _, name := range []string{"NewArray", "Call", "CallVirtual", "CallConstructor", "GetVTable", "SetVTable", "SafeCall", "IsType", "SizeOf"} {
		m[name] = argIdent
	}
	return m
}()

// JITOptions controls how the parser wraps functions lacking `no-jit`.
// Every such function is wrapped in a JitFunction with Threshold and an
// executor from NewExecutor; a nil NewExecutor gives the wrapper a nil
// executor, so it always runs the interpreted body regardless of
// threshold, matching the driver's default when no `-j` flag is given.
type JITOptions struct {
	NewExecutor func() jit.Executor
	Threshold   int64
}

// Parser turns bytecode source text into installed vtables, installed
// functions, and an init-static block, per spec §4.7's top-level grammar.
type Parser struct {
	lex *Lexer
	tok Token

	vtables   *runtime.VirtualTableRepository
	functions *exec.FunctionStore
	jitOpts   JITOptions

	sawInitStatic bool
}

// NewParser builds a Parser over source, installing declarations into
// vtables and functions as it parses and wrapping JIT-eligible functions
// per jitOpts.
func NewParser(source string, vtables *runtime.VirtualTableRepository, functions *exec.FunctionStore, jitOpts JITOptions) *Parser {
	return &Parser{lex: New(source), vtables: vtables, functions: functions, jitOpts: jitOpts}
}

// Parse consumes the whole program and returns the init-static block (nil
// if the program declared none).
func (p *Parser) Parse() (exec.Executable, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}

	var initStatic exec.Executable
	for p.tok.Type != TokenEOF {
		switch {
		case p.isKeyword("init-static"):
			if p.sawInitStatic {
				return nil, p.errorf("duplicate init-static block")
			}
			p.sawInitStatic = true
			block, err := p.parseInitStatic()
			if err != nil {
				return nil, err
			}
			initStatic = block
		case p.isKeyword("vtable"):
			if err := p.parseVTable(); err != nil {
				return nil, err
			}
		case p.isKeyword("pure"), p.isKeyword("no-jit"), p.isKeyword("function"):
			if err := p.parseFunction(); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf("unknown top-level declaration %q", p.tok.Literal)
		}
	}
	return initStatic, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%s at line %d, column %d", fmt.Sprintf(format, args...), p.tok.Line, p.tok.Col)
}

func (p *Parser) isKeyword(lit string) bool {
	return p.tok.Type == TokenKeyword && p.tok.Literal == lit
}

func (p *Parser) expect(typ TokenType) (Token, error) {
	if p.tok.Type != typ {
		return Token{}, p.errorf("expected %s, got %s %q", typ, p.tok.Type, p.tok.Literal)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (p *Parser) expectKeyword(lit string) error {
	if !p.isKeyword(lit) {
		return p.errorf("expected keyword %q, got %s %q", lit, p.tok.Type, p.tok.Literal)
	}
	return p.advance()
}

// parseInitStatic parses `init-static { stmts }`.
func (p *Parser) parseInitStatic() (exec.Executable, error) {
	if err := p.expectKeyword("init-static"); err != nil {
		return nil, err
	}
	return p.parseBlock()
}

// parseBlock parses `{ stmt* }`.
func (p *Parser) parseBlock() (exec.Executable, error) {
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	var children []exec.Executable
	for p.tok.Type != TokenRBrace {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		children = append(children, stmt)
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	return exec.NewBlock(children...), nil
}

// parseStatement parses one `if`, `while`, or command (spec §4.7).
func (p *Parser) parseStatement() (exec.Executable, error) {
	switch {
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("while"):
		return p.parseWhile()
	default:
		return p.parseCommand()
	}
}

// parseIf parses `if { cond } then { body } (else if {...} then {...})* (else {...})?`.
func (p *Parser) parseIf() (exec.Executable, error) {
	if err := p.expectKeyword("if"); err != nil {
		return nil, err
	}
	var branches []*exec.ConditionalExecution
	cond, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("then"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	branches = append(branches, exec.NewConditionalExecution(cond, body))

	var elseBlock exec.Executable
	for p.isKeyword("else") {
		if err := p.expectKeyword("else"); err != nil {
			return nil, err
		}
		if p.isKeyword("if") {
			if err := p.expectKeyword("if"); err != nil {
				return nil, err
			}
			cond, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("then"); err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			branches = append(branches, exec.NewConditionalExecution(cond, body))
			continue
		}
		elseBlock, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
		break
	}
	return exec.NewIfMultibranch(branches, elseBlock), nil
}

// parseWhile parses `while { cond } then { body }`.
func (p *Parser) parseWhile() (exec.Executable, error) {
	if err := p.expectKeyword("while"); err != nil {
		return nil, err
	}
	cond, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("then"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return exec.NewWhileExecution(cond, body), nil
}

// parseCommand parses one opcode name plus its classified literal
// argument, if any (spec §4.7's "command" production).
func (p *Parser) parseCommand() (exec.Executable, error) {
	if p.tok.Type != TokenIdent && p.tok.Type != TokenKeyword {
		return nil, p.errorf("expected command name, got %s %q", p.tok.Type, p.tok.Literal)
	}
	name := p.tok.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}

	kind, known := commandArgKind[name]
	if !known {
		return builtin.NewSimpleCommand(name)
	}

	switch kind {
	case argString:
		tok, err := p.expect(TokenString)
		if err != nil {
			return nil, err
		}
		return builtin.NewStringCommand(name, tok.Literal)
	case argInt:
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		return builtin.NewIntCommand(name, n)
	case argFloat:
		tok, err := p.expect(TokenFloat)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf("malformed float literal %q", tok.Literal)
		}
		return builtin.NewFloatCommand(name, f)
	case argBool:
		var b bool
		switch {
		case p.isKeyword("true"):
			b = true
		case p.isKeyword("false"):
			b = false
		default:
			return nil, p.errorf("expected true or false, got %s %q", p.tok.Type, p.tok.Literal)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return builtin.NewBoolCommand(name, b)
	case argIdent:
		tok, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		return builtin.NewIdentCommand(name, tok.Literal)
	default:
		return builtin.NewSimpleCommand(name)
	}
}

// parseIntLiteral accepts a bare int token. The lexer produces no minus
// token (it accepts '-' only inside an identifier, before a letter, as in
// `no-jit`), so a negative
// literal fails to lex and every value parsed here is non-negative.
func (p *Parser) parseIntLiteral() (int64, error) {
	tok, err := p.expect(TokenInt)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		return 0, p.errorf("malformed integer literal %q", tok.Literal)
	}
	return n, nil
}

// parseVTable parses `vtable name { directive* }`.
func (p *Parser) parseVTable() error {
	if err := p.expectKeyword("vtable"); err != nil {
		return err
	}
	nameTok, err := p.expect(TokenIdent)
	if err != nil {
		return err
	}
	vt := runtime.NewVirtualTable(nameTok.Literal, 8)

	if _, err := p.expect(TokenLBrace); err != nil {
		return err
	}
	hasObjectField := false
	for p.tok.Type != TokenRBrace {
		switch {
		case p.isKeyword("size"):
			if err := p.advance(); err != nil {
				return err
			}
			if _, err := p.expect(TokenColon); err != nil {
				return err
			}
			n, err := p.parseIntLiteral()
			if err != nil {
				return err
			}
			vt.SetSize(n)
		case p.isKeyword("interfaces"):
			if err := p.advance(); err != nil {
				return err
			}
			if _, err := p.expect(TokenLBrace); err != nil {
				return err
			}
			for p.tok.Type != TokenRBrace {
				tok, err := p.expect(TokenIdent)
				if err != nil {
					return err
				}
				vt.AddInterface(tok.Literal)
				if p.tok.Type == TokenComma {
					if err := p.advance(); err != nil {
						return err
					}
				}
			}
			if _, err := p.expect(TokenRBrace); err != nil {
				return err
			}
		case p.isKeyword("methods"):
			if err := p.advance(); err != nil {
				return err
			}
			if _, err := p.expect(TokenLBrace); err != nil {
				return err
			}
			for p.tok.Type != TokenRBrace {
				virtTok, err := p.expect(TokenIdent)
				if err != nil {
					return err
				}
				if _, err := p.expect(TokenColon); err != nil {
					return err
				}
				realTok, err := p.expect(TokenIdent)
				if err != nil {
					return err
				}
				vt.AddMethod(virtTok.Literal, realTok.Literal)
				if p.tok.Type == TokenComma {
					if err := p.advance(); err != nil {
						return err
					}
				}
			}
			if _, err := p.expect(TokenRBrace); err != nil {
				return err
			}
		case p.isKeyword("vartable"):
			if err := p.advance(); err != nil {
				return err
			}
			if _, err := p.expect(TokenLBrace); err != nil {
				return err
			}
			for p.tok.Type != TokenRBrace {
				fieldNameTok, err := p.expect(TokenIdent)
				if err != nil {
					return err
				}
				if _, err := p.expect(TokenColon); err != nil {
					return err
				}
				typeTok, err := p.expect(TokenIdent)
				if err != nil {
					return err
				}
				fieldType, err := parseFieldType(typeTok.Literal)
				if err != nil {
					return p.errorf("%s", err.Error())
				}
				if fieldType == runtime.FieldObject {
					hasObjectField = true
				}
				if _, err := p.expect(TokenAt); err != nil {
					return err
				}
				offset, err := p.parseIntLiteral()
				if err != nil {
					return err
				}
				vt.AddField(fieldNameTok.Literal, fieldType, offset)
				if p.tok.Type == TokenComma {
					if err := p.advance(); err != nil {
						return err
					}
				}
			}
			if _, err := p.expect(TokenRBrace); err != nil {
				return err
			}
		default:
			return p.errorf("unknown vtable directive %q", p.tok.Literal)
		}
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return err
	}

	if hasObjectField {
		vt.SetScanner(runtime.ScannerDefault)
	}

	_, err = p.vtables.Add(vt)
	return err
}

func parseFieldType(name string) (runtime.FieldValueType, error) {
	switch name {
	case "Int":
		return runtime.FieldInt, nil
	case "Float":
		return runtime.FieldFloat, nil
	case "Bool":
		return runtime.FieldBool, nil
	case "Char":
		return runtime.FieldChar, nil
	case "Byte":
		return runtime.FieldByte, nil
	case "Object":
		return runtime.FieldObject, nil
	default:
		return 0, fmt.Errorf("unknown vartable field type %q", name)
	}
}

// parseFunction parses `[pure(T, ...)] [no-jit] function : arity name { stmts }`
// and installs the resulting Callable, composed pure-outermost, then jit,
// then plain (spec §4.7's composition order).
func (p *Parser) parseFunction() error {
	var pureTypes []string
	isPure := false
	noJIT := false

	if p.isKeyword("pure") {
		isPure = true
		if err := p.advance(); err != nil {
			return err
		}
		if _, err := p.expect(TokenLParen); err != nil {
			return err
		}
		for p.tok.Type != TokenRParen {
			tok, err := p.expect(TokenIdent)
			if err != nil {
				return err
			}
			pureTypes = append(pureTypes, tok.Literal)
			if p.tok.Type == TokenComma {
				if err := p.advance(); err != nil {
					return err
				}
			}
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return err
		}
	}

	if p.isKeyword("no-jit") {
		noJIT = true
		if err := p.advance(); err != nil {
			return err
		}
	}

	if err := p.expectKeyword("function"); err != nil {
		return err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return err
	}
	arity, err := p.parseIntLiteral()
	if err != nil {
		return err
	}
	nameTok, err := p.expect(TokenIdent)
	if err != nil {
		return err
	}
	body, err := p.parseBlock()
	if err != nil {
		return err
	}

	var fn exec.Callable = exec.NewFunction(nameTok.Literal, int(arity), body)

	if !noJIT {
		var executor jit.Executor
		if p.jitOpts.NewExecutor != nil {
			executor = p.jitOpts.NewExecutor()
		}
		fn = exec.NewJitFunction(fn, executor, p.jitOpts.Threshold)
	}

	if isPure {
		if len(pureTypes) != int(arity) {
			return p.errorf("function %s declares pure(%d types) for arity %d", nameTok.Literal, len(pureTypes), arity)
		}
		fn = exec.NewPureFunction(fn, pureTypes)
	}

	_, err = p.functions.Add(fn)
	return err
}
