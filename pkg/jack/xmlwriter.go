package jack

import (
	"fmt"
	"io"

	"github.com/hmny-labs/hack-toolchain/pkg/utils"
)

// Writer renders a concrete syntax tree as indented XML while the Parser
// walks it, one non-terminal production at a time. Open elements are tracked
// on a Stack so Close can assert the parser left every tag properly balanced.
type Writer struct {
	out  io.Writer
	open utils.Stack[string]
	err  error
}

// NewWriter wraps w for streaming XML output. No XML declaration is emitted,
// matching the bare '<class>...</class>' shape the comparator expects.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// OpenTag starts a new non-terminal element and pushes it onto the balance
// stack; the matching CloseTag call is the Parser's responsibility.
func (w *Writer) OpenTag(name string) {
	if w.err != nil {
		return
	}
	w.writeLine(fmt.Sprintf("<%s>", name))
	w.open.Push(name)
}

// CloseTag ends the innermost still-open element. It fails if called with no
// element open, surfacing a Parser bug as an explicit error rather than
// emitting unbalanced XML.
func (w *Writer) CloseTag() {
	if w.err != nil {
		return
	}
	name, err := w.open.Pop()
	if err != nil {
		w.err = fmt.Errorf("unbalanced XML: close tag with no matching open tag: %w", err)
		return
	}
	w.writeLine(fmt.Sprintf("</%s>", name))
}

// Leaf writes a terminal token as a self-contained '<kind> value </kind>'
// element. Symbol values are XML-escaped per the output escaping rule.
func (w *Writer) Leaf(kind TokenKind, value string) {
	if w.err != nil {
		return
	}
	if kind == Symbol {
		runes := []rune(value)
		if len(runes) == 1 {
			value = EscapeSymbol(runes[0])
		}
	}
	w.writeLine(fmt.Sprintf("<%s> %s </%s>", kind, value, kind))
}

// writeLine indents by the current nesting depth (two spaces per level) and
// writes line, recording the first I/O failure encountered.
func (w *Writer) writeLine(line string) {
	if w.err != nil {
		return
	}
	for i := 0; i < w.open.Count(); i++ {
		if _, err := io.WriteString(w.out, "  "); err != nil {
			w.err = err
			return
		}
	}
	if _, err := fmt.Fprintln(w.out, line); err != nil {
		w.err = err
	}
}

// Close flushes any deferred error and asserts every OpenTag found a CloseTag.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.open.Count() != 0 {
		return fmt.Errorf("unbalanced XML: %d element(s) left open", w.open.Count())
	}
	return nil
}
