package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hmny-labs/hack-toolchain/pkg/asm"
	"github.com/hmny-labs/hack-toolchain/pkg/vm"
	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs written in the VM language into Hack assembly
code that can be further elaborated. The VM language is a higher-level (bytecode-like)
language tailored for use with the Hack computer architecture. The input may be a single
'.vm' file or a directory containing several of them, one per class/translation unit.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithArg(cli.NewArg("input", "The bytecode (.vm) file, or a directory of them, to be translated")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	input := args[0]

	info, err := os.Stat(input)
	if err != nil {
		fmt.Printf("ERROR: Unable to open input path: %s\n", err)
		return -1
	}

	// Allocates a 'vm.Program' struct to save all the parsed translation units (the
	// .vm files) that will be translated independently and then merged into a single,
	// monolithic compiled '.asm' output.
	var program vm.Program
	if info.IsDir() {
		program, err = loadDirectory(input)
	} else {
		program, err = loadFile(input)
	}
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	// Instantiate a translator to convert the program from Vm to Asm.
	translator := vm.NewTranslator(program)
	// Translates the vm.Program into the in-memory IR of its Asm counterpart.
	statements, err := translator.Translate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'translation' pass: %s\n", err)
		return -1
	}

	// A directory of modules is a whole program with a 'Sys.init' entry point and needs
	// the bootstrap preamble (SP=256; call Sys.init 0) prepended; a single file is a
	// standalone translation unit and is translated as-is.
	if info.IsDir() {
		preamble, err := vm.Bootstrap()
		if err != nil {
			fmt.Printf("ERROR: Unable to generate bootstrap code: %s\n", err)
			return -1
		}
		statements = append(preamble, statements...)
	}

	// Now, instantiate a printer to serialize the Asm (translated) program back to text.
	printer := asm.NewPrinter(statements)
	// Iterates over each statement and spits out its relative textual representation.
	compiled, err := printer.Print()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'printing' pass: %s\n", err)
		return -1
	}

	output, err := os.Create(outputPath(input, info.IsDir()))
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\r\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

// outputPath derives the '.asm' output path from the input path: a single '.vm' file
// keeps its stem ('Foo.vm' -> 'Foo.asm'); a directory writes '<dir>/<dir>.asm'.
func outputPath(input string, isDir bool) string {
	if !isDir {
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".asm"
	}
	base := filepath.Base(filepath.Clean(input))
	return filepath.Join(input, base+".asm")
}

// loadFile parses a single '.vm' file into a one-module 'vm.Program', keyed by the
// file's base name (sans extension) since that name namespaces the 'static' segment.
func loadFile(path string) (vm.Program, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open input file: %w", err)
	}

	module, err := vm.NewParser(bytes.NewReader(content)).Parse()
	if err != nil {
		return nil, fmt.Errorf("unable to complete 'parsing' pass for '%s': %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return vm.Program{name: module}, nil
}

// loadDirectory parses every '*.vm' file found directly inside dir into its own
// 'vm.Module', returning the resulting 'vm.Program'. Entries are visited in sorted
// order so a malformed-input diagnostic always names the same file on repeat runs.
func loadDirectory(dir string) (vm.Program, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read input directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".vm" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no '.vm' files found in directory '%s'", dir)
	}

	program := vm.Program{}
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("unable to open input file '%s': %w", name, err)
		}

		module, err := vm.NewParser(bytes.NewReader(content)).Parse()
		if err != nil {
			return nil, fmt.Errorf("unable to complete 'parsing' pass for '%s': %w", name, err)
		}
		program[strings.TrimSuffix(name, ".vm")] = module
	}

	return program, nil
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
