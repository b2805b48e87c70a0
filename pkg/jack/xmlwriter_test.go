package jack_test

import (
	"strings"
	"testing"

	"github.com/hmny-labs/hack-toolchain/pkg/jack"
)

func TestWriterBalancedTags(t *testing.T) {
	var out strings.Builder
	w := jack.NewWriter(&out)

	w.OpenTag("class")
	w.Leaf(jack.Keyword, "class")
	w.OpenTag("classVarDec")
	w.CloseTag()
	w.CloseTag()

	if err := w.Close(); err != nil {
		t.Fatalf("unexpected error for balanced tags: %s", err)
	}

	rendered := out.String()
	if !strings.Contains(rendered, "<class>") || !strings.Contains(rendered, "</class>") {
		t.Errorf("expected a <class>...</class> wrapper, got %q", rendered)
	}
	if !strings.Contains(rendered, "<keyword> class </keyword>") {
		t.Errorf("expected a leaf element with spaced content, got %q", rendered)
	}
}

func TestWriterUnbalancedTagsIsAnError(t *testing.T) {
	var out strings.Builder
	w := jack.NewWriter(&out)

	w.OpenTag("class")
	// Deliberately never closed.

	if err := w.Close(); err == nil {
		t.Error("expected an error for an unclosed element")
	}
}

func TestWriterCloseTagWithoutOpenIsAnError(t *testing.T) {
	var out strings.Builder
	w := jack.NewWriter(&out)

	w.CloseTag()
	if err := w.Close(); err == nil {
		t.Error("expected an error closing a tag with nothing open")
	}
}

func TestWriterEscapesSymbolLeaves(t *testing.T) {
	var out strings.Builder
	w := jack.NewWriter(&out)

	w.OpenTag("expression")
	w.Leaf(jack.Symbol, "<")
	w.Leaf(jack.Symbol, ">")
	w.Leaf(jack.Symbol, "&")
	w.CloseTag()

	if err := w.Close(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	rendered := out.String()
	for _, escaped := range []string{"&lt;", "&gt;", "&amp;"} {
		if !strings.Contains(rendered, escaped) {
			t.Errorf("expected %q in rendered XML, got %q", escaped, rendered)
		}
	}
}

func TestWriterIndentsNestedElements(t *testing.T) {
	var out strings.Builder
	w := jack.NewWriter(&out)

	w.OpenTag("class")
	w.OpenTag("classVarDec")
	w.Leaf(jack.Keyword, "static")
	w.CloseTag()
	w.CloseTag()
	_ = w.Close()

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if !strings.HasPrefix(lines[2], "    ") {
		t.Errorf("expected the doubly-nested leaf to be indented by 4 spaces, got %q", lines[2])
	}
}
