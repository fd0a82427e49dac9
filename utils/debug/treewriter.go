// Package debug produces human readable dumps stored in debug reports.
package debug

import (
	"fmt"
	"strings"
)

// Attr is a named value printed after node name.
type Attr struct {
	Key   string
	Value any
}

// TreeWriter accumulates indented lines, one per tree node.
type TreeWriter struct {
	b      strings.Builder
	indent string
	lines  int
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{indent: "  "}
}

func (tw *TreeWriter) String() string {
	return tw.b.String()
}

// Len returns number of written lines.
func (tw *TreeWriter) Len() int {
	return tw.lines
}

func (tw *TreeWriter) pad(depth int) {
	for range max(depth, 0) {
		tw.b.WriteString(tw.indent)
	}
}

// Line writes formatted line at depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(&tw.b, format, args...)
	tw.b.WriteByte('\n')
	tw.lines++
}

// Node writes node name followed by its attributes as key=value pairs.
// Strings are quoted.
func (tw *TreeWriter) Node(depth int, name string, attrs ...Attr) {
	tw.pad(depth)
	tw.b.WriteString(name)
	for _, a := range attrs {
		tw.b.WriteByte(' ')
		tw.b.WriteString(a.Key)
		tw.b.WriteByte('=')
		if s, ok := a.Value.(string); ok {
			fmt.Fprintf(&tw.b, "%q", s)
		} else {
			fmt.Fprint(&tw.b, a.Value)
		}
	}
	tw.b.WriteByte('\n')
	tw.lines++
}
