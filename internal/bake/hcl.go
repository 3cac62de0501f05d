// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"fmt"
	"io"
	"strings"
)

// WriteHCL writes the bake file for g to w.
func WriteHCL(w io.Writer, g *Graph) error {
	_, err := io.WriteString(w, FormatHCL(g))
	return err
}

// FormatHCL renders g in bake HCL syntax. Variables come first, then one
// block per target with its attributes in a fixed order: context, dockerfile,
// dockerfile-inline, tags, inherits, args, depends_on. Empty attributes are
// omitted.
func FormatHCL(g *Graph) string {
	var b strings.Builder

	for _, v := range g.Variables() {
		fmt.Fprintf(&b, "variable %s {\n", quote(v.Name))
		fmt.Fprintf(&b, "  default = %s\n", quote(v.Default))
		b.WriteString("}\n\n")
	}

	for _, t := range g.Targets() {
		fmt.Fprintf(&b, "target %s {\n", quote(t.Name))
		writeAttr(&b, "context", t.Context)
		writeAttr(&b, "dockerfile", t.Dockerfile)
		writeAttr(&b, "dockerfile-inline", t.DockerfileInline)
		writeListAttr(&b, "tags", t.Tags)
		writeListAttr(&b, "inherits", t.Inherits)
		if len(t.Args) > 0 {
			b.WriteString("  args       = {\n")
			for i, arg := range t.Args {
				comma := ","
				if i == len(t.Args)-1 {
					comma = ""
				}
				fmt.Fprintf(&b, "    %s = %s%s\n", arg.Key, quote(arg.Value), comma)
			}
			b.WriteString("  }\n")
		}
		writeListAttr(&b, "depends_on", t.DependsOn)
		b.WriteString("}\n\n")
	}

	return b.String()
}

func writeAttr(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %-12s = %s\n", key, quote(value))
}

func writeListAttr(b *strings.Builder, key string, values []string) {
	if len(values) == 0 {
		return
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	fmt.Fprintf(b, "  %-12s = [%s]\n", key, strings.Join(quoted, ", "))
}

// quote wraps s in double quotes without escaping.
func quote(s string) string {
	return `"` + s + `"`
}
