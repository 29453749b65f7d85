package diagnostic

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Render writes a fatal compile error to w, coloured unless fatih/color's
// global color.NoColor is set; the package decides that once from whether
// os.Stdout is a terminal and from the NO_COLOR environment variable, and
// w itself is never inspected.
func Render(w io.Writer, filename string, err error) {
	severity := color.New(color.FgRed, color.Bold)
	location := color.New(color.FgYellow)

	switch e := err.(type) {
	case *SyntaxError:
		severity.Fprint(w, "error: ")
		location.Fprintf(w, "%s:%d:%d: ", filename, e.Line, e.Column)
		fmt.Fprintln(w, e.Message)
	case *SemanticError:
		severity.Fprint(w, "error: ")
		location.Fprintf(w, "%s:%d:%d: ", filename, e.Line, e.Column)
		fmt.Fprintln(w, e.Message)
	case *OpcodeError:
		severity.Fprint(w, "error: ")
		location.Fprintf(w, "%s:%d:%d: ", filename, e.Line, e.Column)
		fmt.Fprintln(w, e.Message)
	default:
		severity.Fprint(w, "error: ")
		fmt.Fprintln(w, err.Error())
	}
}

// RenderNotices writes the informational notices from a successful compile.
func RenderNotices(w io.Writer, filename string, n *Notices) {
	info := color.New(color.FgCyan)
	for _, item := range n.All() {
		info.Fprint(w, "note: ")
		fmt.Fprintf(w, "%s:%d:%d: %s\n", filename, item.Line, item.Column, item.Message)
	}
}
