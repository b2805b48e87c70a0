package vm

import (
	"fmt"
	"sort"

	"github.com/hmny-labs/hack-toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Translator

// The Translator takes a 'vm.Program' (one or more '.vm' modules) and produces its
// 'asm.Program' counterpart, ready to be handed to 'asm.Printer' or 'asm.Lowerer'.
//
// Unlike the Assembler's Lowerer (a flat label-binding pass) the VM Translator expands
// every high level stack operation into its full 'asm.Statement' sequence: arithmetic
// and comparison folding, segment addressing, and the complete call/return ABI (frame
// save on call, frame restore on return). Modules are processed in name-sorted order so
// repeated runs over the same Program produce byte-identical output.
type Translator struct {
	program Program

	module     string // Base name of the module currently being translated, namespaces 'static'
	function   string // Fully qualified name of the function currently being translated, namespaces labels
	cmpCounter int     // Translator-wide counter, guarantees unique eq/gt/lt labels across all modules
	callSeq    int     // Translator-wide counter, guarantees unique call-site return labels
}

// Initializes and returns to the caller a brand new 'Translator' struct.
// Requires the argument Program 'p' to be non-nil.
func NewTranslator(p Program) *Translator {
	return &Translator{program: p}
}

// Translates the whole Program into a single, flat 'asm.Program'. Modules are visited in
// sorted name order for deterministic output; within each module operations are translated
// in declaration order. Bootstrap code ('SP=256; call Sys.init 0') is NOT emitted here — it
// is the caller's responsibility to prepend it only when translating a directory of modules.
func (t *Translator) Translate() (asm.Program, error) {
	names := make([]string, 0, len(t.program))
	for name := range t.program {
		names = append(names, name)
	}
	sort.Strings(names)

	out := asm.Program{}
	for _, name := range names {
		t.module, t.function = name, ""

		for _, operation := range t.program[name] {
			statements, err := t.TranslateOp(operation)
			if err != nil {
				return nil, fmt.Errorf("module '%s': %w", name, err)
			}
			out = append(out, statements...)
		}
	}

	return out, nil
}

// Dispatches a single 'vm.Operation' to its specialized translation method based on type.
func (t *Translator) TranslateOp(operation Operation) ([]asm.Statement, error) {
	switch op := operation.(type) {
	case MemoryOp:
		return t.TranslateMemoryOp(op)
	case ArithmeticOp:
		return t.TranslateArithmeticOp(op)
	case LabelDecl:
		return t.TranslateLabelDecl(op)
	case GotoOp:
		return t.TranslateGotoOp(op)
	case FuncDecl:
		return t.TranslateFuncDecl(op)
	case FuncCallOp:
		return t.TranslateFuncCallOp(op)
	case ReturnOp:
		return t.TranslateReturnOp(op)
	default:
		return nil, fmt.Errorf("unrecognized operation type %T", operation)
	}
}

// scopedLabel namespaces a user-defined label behind the enclosing function (or, if no
// function declaration has been seen yet in this module, behind the module's own name).
func (t *Translator) scopedLabel(name string) string {
	scope := t.function
	if scope == "" {
		scope = t.module
	}
	return fmt.Sprintf("%s$%s", scope, name)
}

// ----------------------------------------------------------------------------
// Memory Op (push/pop)

// Translates a MemoryOp to its 'asm.Statement' sequence. The 8 segments split into three
// addressing families: 'constant' (push-only, the raw literal), the pointer-relative
// segments ('local'/'argument'/'this'/'that', offset from a base register held in RAM),
// and the fixed-address segments ('temp'/'pointer'/'static', offset from a constant base).
func (t *Translator) TranslateMemoryOp(op MemoryOp) ([]asm.Statement, error) {
	if err := t.validateSegmentOffset(op.Segment, op.Offset); err != nil {
		return nil, err
	}

	switch op.Segment {
	case Constant:
		if op.Operation != Push {
			return nil, fmt.Errorf("'constant' segment cannot be popped")
		}
		return t.pushConstant(op.Offset), nil

	case Local, Argument, This, That:
		base := map[SegmentType]string{Local: "LCL", Argument: "ARG", This: "THIS", That: "THAT"}[op.Segment]
		if op.Operation == Push {
			return t.pushPointerRelative(base, op.Offset), nil
		}
		return t.popPointerRelative(base, op.Offset), nil

	case Temp:
		address := fmt.Sprintf("%d", 5+op.Offset)
		if op.Operation == Push {
			return t.pushFixedAddress(address), nil
		}
		return t.popFixedAddress(address), nil

	case Pointer:
		target := map[uint16]string{0: "THIS", 1: "THAT"}[op.Offset]
		if op.Operation == Push {
			return t.pushFixedAddress(target), nil
		}
		return t.popFixedAddress(target), nil

	case Static:
		address := fmt.Sprintf("%s.%d", t.module, op.Offset)
		if op.Operation == Push {
			return t.pushFixedAddress(address), nil
		}
		return t.popFixedAddress(address), nil

	default:
		return nil, fmt.Errorf("unrecognized segment '%s'", op.Segment)
	}
}

// Pointer and temp segments have a bounded number of valid offsets: enforce that here so
// malformed bytecode is rejected at translation time rather than producing bogus addresses.
func (t *Translator) validateSegmentOffset(segment SegmentType, offset uint16) error {
	if segment == Pointer && offset > 1 {
		return fmt.Errorf("invalid 'pointer' offset, got %d", offset)
	}
	if segment == Temp && offset > 7 {
		return fmt.Errorf("invalid 'temp' offset, got %d", offset)
	}
	return nil
}

func (t *Translator) pushConstant(value uint16) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: fmt.Sprint(value)},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

func (t *Translator) pushPointerRelative(base string, offset uint16) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: base},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(offset)},
		asm.CInstruction{Dest: "A", Comp: "D+A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

func (t *Translator) popPointerRelative(base string, offset uint16) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: base},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(offset)},
		asm.CInstruction{Dest: "D", Comp: "D+A"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
}

func (t *Translator) pushFixedAddress(address string) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: address},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

func (t *Translator) popFixedAddress(address string) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: address},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
}

// ----------------------------------------------------------------------------
// Arithmetic Op

// Translates an ArithmeticOp to its 'asm.Statement' sequence. Binary operators
// (add/sub/and/or) pop two operands and push their result; unary operators (neg/not)
// mutate the stack top in place. Comparisons (eq/gt/lt) need a pair of uniquely named
// labels to fold the Hack CPU's jump-only conditionals into a boolean -1/0 result.
func (t *Translator) TranslateArithmeticOp(op ArithmeticOp) ([]asm.Statement, error) {
	switch op.Operation {
	case Add:
		return t.binaryOp("D+M"), nil
	case Sub:
		return t.binaryOp("M-D"), nil
	case And:
		return t.binaryOp("D&M"), nil
	case Or:
		return t.binaryOp("D|M"), nil
	case Neg:
		return t.unaryOp("-M"), nil
	case Not:
		return t.unaryOp("!M"), nil
	case Eq:
		return t.comparisonOp("JEQ"), nil
	case Gt:
		return t.comparisonOp("JGT"), nil
	case Lt:
		return t.comparisonOp("JLT"), nil
	default:
		return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
	}
}

func (t *Translator) binaryOp(comp string) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

func (t *Translator) unaryOp(comp string) []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

func (t *Translator) comparisonOp(jump string) []asm.Statement {
	t.cmpCounter++
	trueLabel := fmt.Sprintf("%s.TRUE.%d", jump, t.cmpCounter)
	endLabel := fmt.Sprintf("%s.END.%d", jump, t.cmpCounter)

	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.LabelDecl{Name: endLabel},
	}
}

// ----------------------------------------------------------------------------
// Label Declaration and Goto

func (t *Translator) TranslateLabelDecl(op LabelDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to translate empty label declaration")
	}
	return []asm.Statement{asm.LabelDecl{Name: t.scopedLabel(op.Name)}}, nil
}

func (t *Translator) TranslateGotoOp(op GotoOp) ([]asm.Statement, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to translate jump to empty label")
	}

	switch op.Jump {
	case Unconditional:
		return []asm.Statement{
			asm.AInstruction{Location: t.scopedLabel(op.Label)},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	case Conditional:
		return []asm.Statement{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: t.scopedLabel(op.Label)},
			asm.CInstruction{Comp: "D", Jump: "JNE"},
		}, nil
	default:
		return nil, fmt.Errorf("unrecognized jump type '%s'", op.Jump)
	}
}

// ----------------------------------------------------------------------------
// Function Declaration, Call and Return

// Translates a function's entry point: a label at its fully qualified name followed by
// zero-initializing 'NLocal' stack slots (the callee's own local variables).
func (t *Translator) TranslateFuncDecl(op FuncDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to translate empty function declaration")
	}
	t.function = op.Name

	statements := []asm.Statement{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		statements = append(statements,
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "0"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
		)
	}
	return statements, nil
}

// Translates a function call: saves the caller's frame (return address, LCL, ARG, THIS,
// THAT) onto the stack, repositions ARG/LCL for the callee, jumps to it, then declares
// the unique return label the callee's 'return' op will jump back to.
func (t *Translator) TranslateFuncCallOp(op FuncCallOp) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to translate empty function call")
	}

	t.callSeq++
	returnLabel := fmt.Sprintf("%s$ret.%d", op.Name, t.callSeq)

	statements := []asm.Statement{
		// Push the return address.
		asm.AInstruction{Location: returnLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}

	// Save the caller's segment pointers so 'return' can restore them.
	for _, segment := range []string{"LCL", "ARG", "THIS", "THAT"} {
		statements = append(statements,
			asm.AInstruction{Location: segment},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
		)
	}

	statements = append(statements,
		// ARG = SP - NArgs - 5 (5 saved words: return addr, LCL, ARG, THIS, THAT)
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(op.NArgs)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = SP
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// Transfer control to the callee.
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		// Where the callee's 'return' jumps back to.
		asm.LabelDecl{Name: returnLabel},
	)

	return statements, nil
}

// Translates a function return: saves the callee's frame base to a scratch register,
// repositions the return value at ARG[0], restores SP/THAT/THIS/ARG/LCL from the saved
// frame, then jumps back to the saved return address.
func (t *Translator) TranslateReturnOp(ReturnOp) ([]asm.Statement, error) {
	return []asm.Statement{
		// R13 (endFrame) = LCL; R14 (retAddr) = *(endFrame - 5)
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// *ARG = pop() (place the return value where the caller expects it)
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// THAT = *(endFrame - 1)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THAT"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// THIS = *(endFrame - 2)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THIS"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// ARG = *(endFrame - 3)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = *(endFrame - 4)
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// goto retAddr
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}, nil
}

// Bootstrap returns the 'asm.Statement' sequence that initializes SP to 256 and calls
// 'Sys.init 0'. Only ever prepended by the caller when translating a directory of
// modules (a single '.vm' file has no bootstrap, see spec.md's naming convention).
func Bootstrap() ([]asm.Statement, error) {
	t := &Translator{program: Program{}}
	call, err := t.TranslateFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, err
	}

	return append([]asm.Statement{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}, call...), nil
}
