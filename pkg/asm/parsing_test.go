package asm_test

import (
	"strings"
	"testing"

	"github.com/hmny-labs/hack-toolchain/pkg/asm"
)

func parseProgram(t *testing.T, source string) asm.Program {
	t.Helper()
	parser := asm.NewParser(strings.NewReader(source))
	program, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	return program
}

func TestParseAInstructions(t *testing.T) {
	program := parseProgram(t, "@42\n@SCREEN\n@loop\n")
	expected := []asm.AInstruction{{Location: "42"}, {Location: "SCREEN"}, {Location: "loop"}}

	if len(program) != len(expected) {
		t.Fatalf("expected %d instructions, got %d", len(expected), len(program))
	}
	for i, exp := range expected {
		if program[i] != exp {
			t.Errorf("instruction %d: expected %#v, got %#v", i, exp, program[i])
		}
	}
}

func TestParseCInstructionDestOnly(t *testing.T) {
	program := parseProgram(t, "D=A\n")
	if len(program) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(program))
	}
	if program[0] != (asm.CInstruction{Dest: "D", Comp: "A"}) {
		t.Errorf("expected {Dest: D, Comp: A}, got %#v", program[0])
	}
}

func TestParseCInstructionJumpOnly(t *testing.T) {
	program := parseProgram(t, "0;JMP\n")
	if len(program) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(program))
	}
	if program[0] != (asm.CInstruction{Comp: "0", Jump: "JMP"}) {
		t.Errorf("expected {Comp: 0, Jump: JMP}, got %#v", program[0])
	}
}

// A legal combined 'dest=comp;jump' C-instruction must carry all three fields;
// dropping the jump (or the dest) silently mis-assembles otherwise-valid input.
func TestParseCInstructionDestAndJumpCombined(t *testing.T) {
	program := parseProgram(t, "D=D+A;JMP\n")
	if len(program) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(program))
	}

	expected := asm.CInstruction{Dest: "D", Comp: "D+A", Jump: "JMP"}
	if program[0] != expected {
		t.Errorf("expected %#v, got %#v", expected, program[0])
	}
}

func TestParseLabelDecl(t *testing.T) {
	program := parseProgram(t, "(LOOP)\n@LOOP\n0;JMP\n")
	if len(program) != 3 {
		t.Fatalf("expected 3 statements (the label decl is kept as one), got %d", len(program))
	}
	if program[0] != (asm.LabelDecl{Name: "LOOP"}) {
		t.Errorf("expected a label decl as the first instruction, got %#v", program[0])
	}
}

func TestParseSkipsComments(t *testing.T) {
	program := parseProgram(t, "// a comment\n@1 // trailing comment\nD=A\n")
	if len(program) != 2 {
		t.Fatalf("expected comments to be skipped, got %d instructions: %#v", len(program), program)
	}
}
