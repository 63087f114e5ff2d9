package lqp

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	printNodeColor   = color.New(color.FgCyan)
	printSharedColor = color.New(color.FgYellow)
)

// Print writes an indented rendering of the plan. Shared sub-plans are
// printed once and referenced afterwards.
func Print(root Node, w io.Writer) {
	seen := map[Node]int{}
	next := 0
	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		if n == nil {
			return
		}
		indent := strings.Repeat("  ", depth)

		if id, ok := seen[n]; ok {
			fmt.Fprintf(w, "%s%s\n", indent, printSharedColor.Sprintf("^ see @%d", id))
			return
		}
		seen[n] = next
		fmt.Fprintf(w, "%s%s %s\n", indent, printNodeColor.Sprintf("@%d", next), n.Description())
		next++

		walk(n.LeftInput(), depth+1)
		walk(n.RightInput(), depth+1)
	}
	walk(root, 0)
}
