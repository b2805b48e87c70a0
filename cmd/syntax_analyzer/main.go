package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hmny-labs/hack-toolchain/pkg/jack"
	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The Syntax Analyzer parses programs written in the Jack language and emits their
concrete syntax tree as XML, one element per grammar production. The Jack language is
a higher-level OOP language tailored for use with the Hack computer architecture. This
tool stops at the parse tree: it does not type-check or compile down to VM code.
`, "\n", " ")

var SyntaxAnalyzer = cli.New(Description).
	WithArg(cli.NewArg("input", "The source (.jack) file, or a directory of them, to be parsed")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	input := args[0]

	info, err := os.Stat(input)
	if err != nil {
		fmt.Printf("ERROR: Unable to open input path: %s\n", err)
		return -1
	}

	sources, err := discover(input, info)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	for _, source := range sources {
		if err := analyze(source); err != nil {
			fmt.Printf("ERROR: %s\n", err)
			return -1
		}
	}

	return 0
}

// discover returns the '.jack' files to parse: the input itself if it is one, or
// every '.jack' file found by recursively walking it if it is a directory.
func discover(input string, info fs.FileInfo) ([]string, error) {
	if !info.IsDir() {
		if filepath.Ext(input) != ".jack" {
			return nil, fmt.Errorf("'%s' is not a '.jack' file", input)
		}
		return []string{input}, nil
	}

	sources := []string{}
	err := filepath.Walk(input, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".jack" {
			return nil
		}
		sources = append(sources, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk input directory: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no '.jack' files found in directory '%s'", input)
	}
	return sources, nil
}

// analyze parses a single '.jack' source file and writes its concrete syntax tree
// to a sibling '.xml' file of the same stem.
func analyze(source string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("unable to open input file: %w", err)
	}
	defer in.Close()

	parser, err := jack.NewParser(in)
	if err != nil {
		return fmt.Errorf("unable to complete 'tokenizing' pass for '%s': %w", source, err)
	}

	destination := strings.TrimSuffix(source, filepath.Ext(source)) + ".xml"
	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("unable to open output file: %w", err)
	}
	defer out.Close()

	if err := parser.Parse(out); err != nil {
		return fmt.Errorf("unable to complete 'parsing' pass for '%s': %w", source, err)
	}

	return nil
}

func main() { os.Exit(SyntaxAnalyzer.Run(os.Args, os.Stdout)) }
