package asm

import (
	"errors"
	"fmt"

	"github.com/hmny-labs/hack-toolchain/pkg/hack"
)

// ----------------------------------------------------------------------------
// Printer

// Printer takes a set of 'asm.Statement' and spits out their textual counterparts.
//
// This is the inverse of the Parser: it's used by the VM translator to serialize
// its generated 'asm.Statement' IR down to '.asm' text, and could equally well
// round-trip a parsed '.asm' program back to source.
type Printer struct {
	program []Statement // The set of statements to convert to Asm textual format
}

// Initializes and returns to the caller a brand new 'Printer' struct.
// Requires that argument Program 'p' (what we want to print) is non-nil.
func NewPrinter(p []Statement) Printer {
	return Printer{program: p}
}

// Prints each statement in the 'program' field to the Asm textual format.
//
// Each instruction will pass through the following step: evaluation, validation and
// then conversion to its textual representation (a string) so that it can be further
// elaborated by the caller (e.g. dumping to a file, runtime interpretation, ...).
func (p *Printer) Print() ([]string, error) {
	lines := make([]string, 0, len(p.program))

	for _, statement := range p.program {
		var generated string
		var err error

		switch tStatement := statement.(type) {
		case AInstruction:
			generated, err = p.PrintAInst(tStatement)
		case CInstruction:
			generated, err = p.PrintCInst(tStatement)
		case LabelDecl:
			generated, err = p.PrintLabelDecl(tStatement)
		default:
			err = fmt.Errorf("unrecognized statement type %T", statement)
		}

		if err != nil {
			return nil, err
		}
		lines = append(lines, generated)
	}

	return lines, nil
}

// Specialized function to convert an A Instruction to the Asm format.
func (Printer) PrintAInst(stmt AInstruction) (string, error) {
	if stmt.Location == "" {
		return "", errors.New("unable to print empty A instruction location")
	}

	return fmt.Sprintf("@%s", stmt.Location), nil
}

// Specialized function to convert a C Instruction to the Asm format.
//
// 'Dest' and 'Jump' may both be set at once (as the Parser produces for source text
// like 'D=D+A;JMP'), in which case the full 'dest=comp;jump' form is emitted.
func (Printer) PrintCInst(stmt CInstruction) (string, error) {
	if stmt.Comp == "" {
		return "", errors.New("expected 'comp' directive in C Instruction")
	}

	switch {
	case stmt.Dest != "" && stmt.Jump != "":
		return fmt.Sprintf("%s=%s;%s", stmt.Dest, stmt.Comp, stmt.Jump), nil
	case stmt.Dest != "":
		return fmt.Sprintf("%s=%s", stmt.Dest, stmt.Comp), nil
	case stmt.Jump != "":
		return fmt.Sprintf("%s;%s", stmt.Comp, stmt.Jump), nil
	default:
		return "", errors.New("expected either 'dest' or 'jump' directive in C Instruction")
	}
}

// Specialized function to convert an Label Declaration to the Asm format.
func (Printer) PrintLabelDecl(stmt LabelDecl) (string, error) {
	if stmt.Name == "" {
		return "", errors.New("unable to print empty label declaration")
	}
	if _, found := hack.BuiltInTable[stmt.Name]; found {
		return "", fmt.Errorf("unable to override built-in label '%s'", stmt.Name)
	}

	return fmt.Sprintf("(%s)", stmt.Name), nil
}
