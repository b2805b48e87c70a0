package vm_test

import (
	"testing"

	"github.com/hmny-labs/hack-toolchain/pkg/asm"
	"github.com/hmny-labs/hack-toolchain/pkg/vm"
)

func TestTranslateMemoryOp(t *testing.T) {
	translator := vm.NewTranslator(vm.Program{})

	t.Run("push constant", func(t *testing.T) {
		statements, err := translator.TranslateMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 17})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if first, ok := statements[0].(asm.AInstruction); !ok || first.Location != "17" {
			t.Errorf("expected first statement to load constant 17, got %#v", statements[0])
		}
	})

	t.Run("pop constant is invalid", func(t *testing.T) {
		if _, err := translator.TranslateMemoryOp(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Constant, Offset: 0}); err == nil {
			t.Error("expected error popping the 'constant' segment")
		}
	})

	t.Run("pointer offset out of bounds", func(t *testing.T) {
		if _, err := translator.TranslateMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 2}); err == nil {
			t.Error("expected error for pointer offset > 1")
		}
	})

	t.Run("temp offset out of bounds", func(t *testing.T) {
		if _, err := translator.TranslateMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 8}); err == nil {
			t.Error("expected error for temp offset > 7")
		}
	})

	t.Run("static segment namespaced by module", func(t *testing.T) {
		program := vm.Program{"Foo": {vm.MemoryOp{Operation: vm.Push, Segment: vm.Static, Offset: 3}}}
		out, err := vm.NewTranslator(program).Translate()
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !containsAInst(out, "Foo.3") {
			t.Errorf("expected a reference to 'Foo.3', got %#v", out)
		}
	})
}

func TestTranslateArithmeticOp(t *testing.T) {
	translator := vm.NewTranslator(vm.Program{})

	for _, op := range []vm.ArithOpType{vm.Add, vm.Sub, vm.Neg, vm.And, vm.Or, vm.Not} {
		statements, err := translator.TranslateArithmeticOp(vm.ArithmeticOp{Operation: op})
		if err != nil {
			t.Errorf("unexpected error for op '%s': %s", op, err)
		}
		if len(statements) == 0 {
			t.Errorf("expected a non-empty statement sequence for op '%s'", op)
		}
	}

	t.Run("comparisons produce unique labels", func(t *testing.T) {
		first, err := translator.TranslateArithmeticOp(vm.ArithmeticOp{Operation: vm.Eq})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		second, err := translator.TranslateArithmeticOp(vm.ArithmeticOp{Operation: vm.Eq})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		firstLabel := labelNames(first)
		secondLabel := labelNames(second)
		for _, l1 := range firstLabel {
			for _, l2 := range secondLabel {
				if l1 == l2 {
					t.Errorf("expected unique labels across comparisons, both produced '%s'", l1)
				}
			}
		}
	})

	t.Run("unrecognized operation", func(t *testing.T) {
		if _, err := translator.TranslateArithmeticOp(vm.ArithmeticOp{Operation: "xor"}); err == nil {
			t.Error("expected error for unrecognized arithmetic operation")
		}
	})
}

func TestTranslateLabelAndGoto(t *testing.T) {
	program := vm.Program{"Main": {
		vm.FuncDecl{Name: "Main.fibonacci", NLocal: 0},
		vm.LabelDecl{Name: "LOOP"},
		vm.GotoOp{Jump: vm.Unconditional, Label: "LOOP"},
		vm.GotoOp{Jump: vm.Conditional, Label: "LOOP"},
	}}

	out, err := vm.NewTranslator(program).Translate()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !containsLabel(out, "Main.fibonacci$LOOP") {
		t.Errorf("expected label scoped to enclosing function, got %#v", out)
	}

	t.Run("empty label is rejected", func(t *testing.T) {
		translator := vm.NewTranslator(vm.Program{})
		if _, err := translator.TranslateLabelDecl(vm.LabelDecl{Name: ""}); err == nil {
			t.Error("expected error for empty label declaration")
		}
		if _, err := translator.TranslateGotoOp(vm.GotoOp{Jump: vm.Unconditional, Label: ""}); err == nil {
			t.Error("expected error for jump to empty label")
		}
	})
}

func TestTranslateFunctionCallAndReturn(t *testing.T) {
	translator := vm.NewTranslator(vm.Program{})

	t.Run("function prologue zero-initializes locals", func(t *testing.T) {
		statements, err := translator.TranslateFuncDecl(vm.FuncDecl{Name: "Math.multiply", NLocal: 2})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if label, ok := statements[0].(asm.LabelDecl); !ok || label.Name != "Math.multiply" {
			t.Errorf("expected function entry label, got %#v", statements[0])
		}
		// One label plus 5 statements per zero-initialized local.
		if len(statements) != 1+2*5 {
			t.Errorf("expected %d statements for 2 locals, got %d", 1+2*5, len(statements))
		}
	})

	t.Run("call pushes frame and jumps", func(t *testing.T) {
		statements, err := translator.TranslateFuncCallOp(vm.FuncCallOp{Name: "Math.multiply", NArgs: 2})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !containsAInst(statements, "Math.multiply") {
			t.Errorf("expected a jump target referencing the callee, got %#v", statements)
		}
		if _, ok := statements[len(statements)-1].(asm.LabelDecl); !ok {
			t.Errorf("expected the final statement to declare the return label, got %#v", statements[len(statements)-1])
		}
	})

	t.Run("two calls to the same function get distinct return labels", func(t *testing.T) {
		first, _ := translator.TranslateFuncCallOp(vm.FuncCallOp{Name: "Math.multiply", NArgs: 2})
		second, _ := translator.TranslateFuncCallOp(vm.FuncCallOp{Name: "Math.multiply", NArgs: 2})

		firstLabel := first[len(first)-1].(asm.LabelDecl).Name
		secondLabel := second[len(second)-1].(asm.LabelDecl).Name
		if firstLabel == secondLabel {
			t.Errorf("expected distinct return labels, both were '%s'", firstLabel)
		}
	})

	t.Run("return restores caller frame", func(t *testing.T) {
		statements, err := translator.TranslateReturnOp(vm.ReturnOp{})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		last, ok := statements[len(statements)-1].(asm.CInstruction)
		if !ok || last.Jump != "JMP" {
			t.Errorf("expected return to end with an unconditional jump, got %#v", statements[len(statements)-1])
		}
	})

	t.Run("empty function name is rejected", func(t *testing.T) {
		if _, err := translator.TranslateFuncDecl(vm.FuncDecl{Name: ""}); err == nil {
			t.Error("expected error for empty function declaration")
		}
		if _, err := translator.TranslateFuncCallOp(vm.FuncCallOp{Name: ""}); err == nil {
			t.Error("expected error for empty function call")
		}
	})
}

func TestBootstrap(t *testing.T) {
	statements, err := vm.Bootstrap()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !containsAInst(statements, "256") {
		t.Errorf("expected bootstrap to set SP to 256, got %#v", statements)
	}
	if !containsAInst(statements, "Sys.init") {
		t.Errorf("expected bootstrap to call 'Sys.init', got %#v", statements)
	}
}

func TestTranslateDeterministicModuleOrder(t *testing.T) {
	program := vm.Program{
		"Zeta":  {vm.LabelDecl{Name: "Z"}},
		"Alpha": {vm.LabelDecl{Name: "A"}},
	}

	first, err := vm.NewTranslator(program).Translate()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	second, err := vm.NewTranslator(program).Translate()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected repeated translation to be stable, got different lengths")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("expected statement %d to match across runs, got %#v vs %#v", i, first[i], second[i])
		}
	}
	// 'Alpha' sorts before 'Zeta', so its label must appear first.
	if !containsLabel(first, "Alpha$A") || !containsLabel(first[:1], "Alpha$A") {
		t.Errorf("expected 'Alpha' module to be translated first, got %#v", first)
	}
}

func containsAInst(statements []asm.Statement, location string) bool {
	for _, s := range statements {
		if inst, ok := s.(asm.AInstruction); ok && inst.Location == location {
			return true
		}
	}
	return false
}

func containsLabel(statements []asm.Statement, name string) bool {
	for _, s := range statements {
		if label, ok := s.(asm.LabelDecl); ok && label.Name == name {
			return true
		}
	}
	return false
}

func labelNames(statements []asm.Statement) []string {
	names := []string{}
	for _, s := range statements {
		if label, ok := s.(asm.LabelDecl); ok {
			names = append(names, label.Name)
		}
	}
	return names
}
