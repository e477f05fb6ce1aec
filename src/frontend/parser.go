// parser.go implements the recursive-descent parser and its syntax-directed
// code generation against the Program IR contract. Statements translate
// directly to instructions as they are recognised; there is no syntax tree.
//
// Recoverable errors (syntax and semantic) are accumulated in the caller's
// ErrorCollector with file:line:column positions; the parser resynchronises
// at statement boundaries and keeps going so one run surfaces as many
// diagnostics as possible. The pipeline driver abandons compilation before
// the backend phases when the collector is non-empty.

package frontend

import (
	"fmt"

	"rvcc/src/ir"
	"rvcc/src/target/riscv"
	"rvcc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// parser holds the state of one parse: the token stream, the program being
// built, the diagnostic sink and the symbol table.
type parser struct {
	path string
	lx   *lexer
	tok  token

	p    *ir.Program
	ec   *util.ErrorCollector
	syms map[string]*ir.Symbol
}

// ---------------------
// ----- Functions -----
// ---------------------

// Parse lexes and parses src (read from path, used only for diagnostics),
// emitting instructions, globals and symbols into p. Errors are accumulated
// in ec.
func Parse(path, src string, p *ir.Program, ec *util.ErrorCollector) {
	ps := &parser{
		path: path,
		lx:   newLexer(src),
		p:    p,
		ec:   ec,
		syms: make(map[string]*ir.Symbol),
	}
	ps.advance()
	for ps.tok.typ != tokEOF {
		ps.statement()
	}
}

// advance steps to the next token, reporting lexical errors and skipping
// past the offending input.
func (ps *parser) advance() {
	for {
		t, err := ps.lx.next()
		if err != nil {
			ps.ec.Append(fmt.Errorf("%s:%s", ps.path, err))
			continue
		}
		ps.tok = t
		return
	}
}

// errorf records a diagnostic at the current token.
func (ps *parser) errorf(format string, args ...interface{}) {
	pos := fmt.Sprintf("%s:%d:%d", ps.path, ps.tok.line, ps.tok.col)
	ps.ec.Append(fmt.Errorf("%s: %s", pos, fmt.Sprintf(format, args...)))
}

// expect consumes a token of type typ, or reports a syntax error. It
// returns whether the token matched.
func (ps *parser) expect(typ tokenType, what string) bool {
	if ps.tok.typ != typ {
		ps.errorf("expected %s", what)
		return false
	}
	ps.advance()
	return true
}

// resync skips tokens up to and including the next ';', or to a '}' or end
// of input, to resume parsing after a syntax error.
func (ps *parser) resync() {
	for {
		switch ps.tok.typ {
		case tokSemicolon:
			ps.advance()
			return
		case tokRBrace, tokEOF:
			return
		}
		ps.advance()
	}
}

// emit appends instr to the program, tagged with line for the source-line
// comment bookkeeping.
func (ps *parser) emit(instr *ir.Instruction, line int) {
	ps.p.AddInstruction(instr, line)
}

// isScratch reports whether r is a parser-allocated scratch temporary, as
// opposed to a register pinned to a declared scalar.
func (ps *parser) isScratch(r ir.RegID) bool {
	if !r.IsTemp() {
		return false
	}
	for _, s := range ps.syms {
		if s.Reg == r {
			return false
		}
	}
	return true
}

// ----------------------
// ----- Statements -----
// ----------------------

func (ps *parser) statement() {
	switch ps.tok.typ {
	case tokInt:
		ps.declaration()
	case tokIdent:
		ps.assignment()
	case tokRead:
		ps.readStatement()
	case tokWrite:
		ps.writeStatement()
	case tokIf:
		ps.ifStatement()
	case tokWhile:
		ps.whileStatement()
	case tokLBrace:
		ps.block()
	case tokSemicolon:
		ps.advance()
	default:
		ps.errorf("unexpected %q at start of statement", ps.tok.text)
		ps.advance()
		ps.resync()
	}
}

// block parses "{ statement* }".
func (ps *parser) block() {
	ps.advance()
	for ps.tok.typ != tokRBrace && ps.tok.typ != tokEOF {
		ps.statement()
	}
	ps.expect(tokRBrace, "'}'")
}

// declaration parses "int name [= expr | [size]] {, ...} ;". Scalars are
// pinned to a fresh temporary and defined immediately; arrays reserve a
// zero-filled span in the data segment.
func (ps *parser) declaration() {
	ps.advance()
	for {
		line := ps.tok.line
		name := ps.tok.text
		if !ps.expect(tokIdent, "identifier") {
			ps.resync()
			return
		}
		if _, dup := ps.syms[name]; dup {
			ps.errorf("duplicate declaration of %q", name)
		}

		if ps.tok.typ == tokLBracket {
			ps.advance()
			size := ps.tok.val
			if !ps.expect(tokNumber, "constant array size") {
				ps.resync()
				return
			}
			if size <= 0 {
				ps.errorf("invalid array size %d for %q", size, name)
				size = 1
			}
			ps.expect(tokRBracket, "']'")
			sym := ps.p.NewArray(name, size)
			ps.p.GenData(ir.GlobalSpace, size*4, sym.Label)
			ps.syms[name] = sym
		} else {
			sym := ps.p.NewScalar(name)
			ps.syms[name] = sym
			if ps.tok.typ == tokAssign {
				ps.advance()
				ps.expression(sym.Reg, line)
			} else {
				ps.emit(&ir.Instruction{
					Op:   ir.OpAddI,
					Dest: ir.NewArg(sym.Reg),
					Src1: ir.NewArg(ir.RegZero),
				}, line)
			}
		}

		if ps.tok.typ != tokComma {
			break
		}
		ps.advance()
	}
	ps.expect(tokSemicolon, "';'")
}

// assignment parses "name = expr ;" for scalars and "name[const] = expr ;"
// for arrays.
func (ps *parser) assignment() {
	line := ps.tok.line
	name := ps.tok.text
	ps.advance()

	sym, ok := ps.syms[name]
	if !ok {
		ps.errorf("undeclared variable %q", name)
	}

	if ps.tok.typ == tokLBracket {
		if ok && sym.Type != ir.TypeIntArray {
			ps.errorf("%q is not an array", name)
			ok = false
		}
		ps.advance()
		idx := ps.tok.val
		if !ps.expect(tokNumber, "constant array subscript") {
			ps.resync()
			return
		}
		if ok && (idx < 0 || idx >= sym.ArraySize) {
			ps.errorf("subscript %d out of range for %q", idx, name)
			ok = false
		}
		ps.expect(tokRBracket, "']'")
		if !ps.expect(tokAssign, "'='") {
			ps.resync()
			return
		}
		r := ps.expression(ir.RegInvalid, line)
		if ok {
			ps.emit(&ir.Instruction{
				Op:        ir.OpSw,
				Src2:      ir.NewArg(r),
				AddrLabel: sym.Label,
				Imm:       idx * 4,
			}, line)
		}
		ps.expect(tokSemicolon, "';'")
		return
	}

	if ok && sym.Type != ir.TypeInt {
		ps.errorf("array %q used without subscript", name)
		ok = false
	}
	if !ps.expect(tokAssign, "'='") {
		ps.resync()
		return
	}
	dest := ir.RegInvalid
	if ok {
		dest = sym.Reg
	}
	ps.expression(dest, line)
	ps.expect(tokSemicolon, "';'")
}

// readStatement parses "read(name);". The environment call produces its
// result in the syscall result register; the value is then moved into the
// scalar's own register so the pinned interval stays short.
func (ps *parser) readStatement() {
	line := ps.tok.line
	ps.advance()
	ps.expect(tokLParen, "'('")
	name := ps.tok.text
	if !ps.expect(tokIdent, "identifier") {
		ps.resync()
		return
	}
	ps.expect(tokRParen, "')'")
	ps.expect(tokSemicolon, "';'")

	sym, ok := ps.syms[name]
	if !ok || sym.Type != ir.TypeInt {
		ps.errorf("read target %q is not a declared scalar", name)
		return
	}

	tmp := ps.p.NewTempReg()
	ps.emit(&ir.Instruction{
		Op:   ir.OpSysRead,
		Dest: ir.NewConstrainedArg(tmp, riscv.WhitelistResult()),
	}, line)
	ps.emit(&ir.Instruction{
		Op:   ir.OpAdd,
		Dest: ir.NewArg(sym.Reg),
		Src1: ir.NewArg(tmp),
		Src2: ir.NewArg(ir.RegZero),
	}, line)
}

// writeStatement parses "write(expr);". The value is moved into a
// temporary pinned to the syscall argument register, then printed.
func (ps *parser) writeStatement() {
	line := ps.tok.line
	ps.advance()
	ps.expect(tokLParen, "'('")
	r := ps.expression(ir.RegInvalid, line)
	ps.expect(tokRParen, "')'")
	ps.expect(tokSemicolon, "';'")

	tmp := ps.p.NewTempReg()
	ps.emit(&ir.Instruction{
		Op:   ir.OpAdd,
		Dest: ir.NewConstrainedArg(tmp, riscv.WhitelistArg()),
		Src1: ir.NewArg(r),
		Src2: ir.NewArg(ir.RegZero),
	}, line)
	ps.emit(&ir.Instruction{
		Op:   ir.OpSysPrint,
		Src1: ir.NewConstrainedArg(tmp, riscv.WhitelistArg()),
	}, line)
}

// ifStatement parses "if (expr) stmt [else stmt]", branching to the else
// arm (or past the body) when the condition is zero.
func (ps *parser) ifStatement() {
	line := ps.tok.line
	ps.advance()
	ps.expect(tokLParen, "'('")
	cond := ps.expression(ir.RegInvalid, line)
	ps.expect(tokRParen, "')'")

	elseLabel := ps.p.NewLabel("")
	ps.emit(&ir.Instruction{
		Op:        ir.OpBeq,
		Src1:      ir.NewArg(cond),
		Src2:      ir.NewArg(ir.RegZero),
		AddrLabel: elseLabel,
	}, line)

	ps.statement()

	if ps.tok.typ == tokElse {
		endLabel := ps.p.NewLabel("")
		ps.emit(&ir.Instruction{Op: ir.OpJump, AddrLabel: endLabel}, ps.tok.line)
		ps.p.AssignLabel(elseLabel)
		ps.advance()
		ps.statement()
		ps.p.AssignLabel(endLabel)
	} else {
		ps.p.AssignLabel(elseLabel)
	}
}

// whileStatement parses "while (expr) stmt". The condition is re-evaluated
// at the loop head on every iteration.
func (ps *parser) whileStatement() {
	line := ps.tok.line
	ps.advance()

	loopLabel := ps.p.NewLabel("")
	endLabel := ps.p.NewLabel("")
	ps.p.AssignLabel(loopLabel)

	ps.expect(tokLParen, "'('")
	cond := ps.expression(ir.RegInvalid, line)
	ps.expect(tokRParen, "')'")

	ps.emit(&ir.Instruction{
		Op:        ir.OpBeq,
		Src1:      ir.NewArg(cond),
		Src2:      ir.NewArg(ir.RegZero),
		AddrLabel: endLabel,
	}, line)

	ps.statement()

	ps.emit(&ir.Instruction{Op: ir.OpJump, AddrLabel: loopLabel}, line)
	ps.p.AssignLabel(endLabel)
}

// -----------------------
// ----- Expressions -----
// -----------------------

// expression parses a full expression and returns the register holding its
// value. When dest is a valid register the result is steered into it:
// either by retargeting the final instruction of the expression (when that
// instruction defines a scratch temporary) or with an explicit move.
func (ps *parser) expression(dest ir.RegID, line int) ir.RegID {
	r := ps.bitOr()
	if dest == ir.RegInvalid || dest == r {
		return r
	}

	if last := ps.p.Instructions.Back(); last != nil &&
		last.V.Dest != nil && last.V.Dest.Reg == r &&
		last.V.Dest.Whitelist == nil && ps.isScratch(r) {
		last.V.Dest.Reg = dest
		return dest
	}

	ps.emit(&ir.Instruction{
		Op:   ir.OpAdd,
		Dest: ir.NewArg(dest),
		Src1: ir.NewArg(r),
		Src2: ir.NewArg(ir.RegZero),
	}, line)
	return dest
}

// emitBinary computes "op lhs, rhs" into a fresh scratch temporary.
func (ps *parser) emitBinary(op ir.Opcode, lhs, rhs ir.RegID, line int) ir.RegID {
	t := ps.p.NewTempReg()
	ps.emit(&ir.Instruction{
		Op:   op,
		Dest: ir.NewArg(t),
		Src1: ir.NewArg(lhs),
		Src2: ir.NewArg(rhs),
	}, line)
	return t
}

// emitImm computes "op src, imm" into a fresh scratch temporary.
func (ps *parser) emitImm(op ir.Opcode, src ir.RegID, imm int32, line int) ir.RegID {
	t := ps.p.NewTempReg()
	ps.emit(&ir.Instruction{
		Op:   op,
		Dest: ir.NewArg(t),
		Src1: ir.NewArg(src),
		Imm:  imm,
	}, line)
	return t
}

func (ps *parser) bitOr() ir.RegID {
	r := ps.bitXor()
	for ps.tok.typ == tokPipe {
		line := ps.tok.line
		ps.advance()
		r = ps.emitBinary(ir.OpOr, r, ps.bitXor(), line)
	}
	return r
}

func (ps *parser) bitXor() ir.RegID {
	r := ps.bitAnd()
	for ps.tok.typ == tokCaret {
		line := ps.tok.line
		ps.advance()
		r = ps.emitBinary(ir.OpXor, r, ps.bitAnd(), line)
	}
	return r
}

func (ps *parser) bitAnd() ir.RegID {
	r := ps.equality()
	for ps.tok.typ == tokAmp {
		line := ps.tok.line
		ps.advance()
		r = ps.emitBinary(ir.OpAnd, r, ps.equality(), line)
	}
	return r
}

func (ps *parser) equality() ir.RegID {
	r := ps.relational()
	for ps.tok.typ == tokEq || ps.tok.typ == tokNe {
		op := ps.tok.typ
		line := ps.tok.line
		ps.advance()
		rhs := ps.relational()
		diff := ps.emitBinary(ir.OpXor, r, rhs, line)
		if op == tokEq {
			// Equal iff the XOR is zero.
			r = ps.emitImm(ir.OpSltIu, diff, 1, line)
		} else {
			// Not equal iff the XOR is non-zero.
			t := ps.p.NewTempReg()
			ps.emit(&ir.Instruction{
				Op:   ir.OpSltu,
				Dest: ir.NewArg(t),
				Src1: ir.NewArg(ir.RegZero),
				Src2: ir.NewArg(diff),
			}, line)
			r = t
		}
	}
	return r
}

func (ps *parser) relational() ir.RegID {
	r := ps.shift()
	for ps.tok.typ == tokLt || ps.tok.typ == tokGt || ps.tok.typ == tokLe || ps.tok.typ == tokGe {
		op := ps.tok.typ
		line := ps.tok.line
		ps.advance()
		rhs := ps.shift()
		switch op {
		case tokLt:
			r = ps.emitBinary(ir.OpSlt, r, rhs, line)
		case tokGt:
			r = ps.emitBinary(ir.OpSlt, rhs, r, line)
		case tokLe:
			// a <= b is !(b < a).
			r = ps.emitImm(ir.OpXorI, ps.emitBinary(ir.OpSlt, rhs, r, line), 1, line)
		case tokGe:
			// a >= b is !(a < b).
			r = ps.emitImm(ir.OpXorI, ps.emitBinary(ir.OpSlt, r, rhs, line), 1, line)
		}
	}
	return r
}

func (ps *parser) shift() ir.RegID {
	r := ps.additive()
	for ps.tok.typ == tokShl || ps.tok.typ == tokShr {
		op := ir.OpSll
		if ps.tok.typ == tokShr {
			op = ir.OpSra
		}
		line := ps.tok.line
		ps.advance()
		r = ps.emitBinary(op, r, ps.additive(), line)
	}
	return r
}

func (ps *parser) additive() ir.RegID {
	r := ps.unary()
	for ps.tok.typ == tokPlus || ps.tok.typ == tokMinus {
		op := ir.OpAdd
		if ps.tok.typ == tokMinus {
			op = ir.OpSub
		}
		line := ps.tok.line
		ps.advance()
		r = ps.emitBinary(op, r, ps.unary(), line)
	}
	return r
}

func (ps *parser) unary() ir.RegID {
	line := ps.tok.line
	switch ps.tok.typ {
	case tokMinus:
		ps.advance()
		return ps.emitBinary(ir.OpSub, ir.RegZero, ps.unary(), line)
	case tokTilde:
		ps.advance()
		return ps.emitImm(ir.OpXorI, ps.unary(), -1, line)
	case tokNot:
		ps.advance()
		return ps.emitImm(ir.OpSltIu, ps.unary(), 1, line)
	default:
		return ps.primary()
	}
}

func (ps *parser) primary() ir.RegID {
	line := ps.tok.line
	switch ps.tok.typ {
	case tokNumber:
		val := ps.tok.val
		ps.advance()
		t := ps.p.NewTempReg()
		ps.emit(&ir.Instruction{
			Op:   ir.OpAddI,
			Dest: ir.NewArg(t),
			Src1: ir.NewArg(ir.RegZero),
			Imm:  val,
		}, line)
		return t

	case tokIdent:
		name := ps.tok.text
		ps.advance()
		sym, ok := ps.syms[name]
		if !ok {
			ps.errorf("undeclared variable %q", name)
			return ir.RegZero
		}

		if ps.tok.typ == tokLBracket {
			if sym.Type != ir.TypeIntArray {
				ps.errorf("%q is not an array", name)
			}
			ps.advance()
			idx := ps.tok.val
			if !ps.expect(tokNumber, "constant array subscript") {
				return ir.RegZero
			}
			ps.expect(tokRBracket, "']'")
			if sym.Type != ir.TypeIntArray || idx < 0 || idx >= sym.ArraySize {
				if sym.Type == ir.TypeIntArray {
					ps.errorf("subscript %d out of range for %q", idx, name)
				}
				return ir.RegZero
			}
			t := ps.p.NewTempReg()
			ps.emit(&ir.Instruction{
				Op:        ir.OpLw,
				Dest:      ir.NewArg(t),
				AddrLabel: sym.Label,
				Imm:       idx * 4,
			}, line)
			return t
		}

		if sym.Type != ir.TypeInt {
			ps.errorf("array %q used without subscript", name)
			return ir.RegZero
		}
		return sym.Reg

	case tokLParen:
		ps.advance()
		r := ps.bitOr()
		ps.expect(tokRParen, "')'")
		return r
	}

	ps.errorf("unexpected %q in expression", ps.tok.text)
	ps.advance()
	return ir.RegZero
}
