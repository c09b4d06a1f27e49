// Package template implements the "safe-format" substitution used for
// system prompts: a {name} placeholder is replaced if name is a known key,
// otherwise it collapses to the empty string. Unlike Go's text/template, a
// missing key never raises — this mirrors Python's
// str.format_map(defaultdict(str, ...)) pattern referenced throughout the
// context-builder and search-engine design.
package template

import "strings"

// Render substitutes every {key} occurrence in tpl for which values holds
// key, using an empty string for anything not present in values. Any span
// from '{' to the next '}' counts as a placeholder, even when the text
// between the braces is not an identifier; only a '{' with no later '}' is
// copied through unchanged, together with the rest of tpl.
func Render(tpl string, values map[string]string) string {
	var b strings.Builder
	b.Grow(len(tpl))

	i := 0
	for i < len(tpl) {
		c := tpl[i]
		if c != '{' {
			b.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(tpl[i+1:], '}')
		if end < 0 {
			b.WriteString(tpl[i:])
			break
		}
		key := tpl[i+1 : i+1+end]
		if v, ok := values[key]; ok {
			b.WriteString(v)
		} else {
			// Unknown/malformed placeholder: per safe-format semantics this
			// collapses to empty, not the literal text.
			b.WriteString("")
		}
		i = i + 1 + end + 1
	}
	return b.String()
}

// HasPlaceholder reports whether tpl contains the literal sequence {name}.
// Used by the local engine's Search to log a warning when {context_data} is
// missing from the configured prompt. The warning is logged on every Search
// call that meets such a prompt; SearchStream does not make the check.
func HasPlaceholder(tpl, name string) bool {
	return strings.Contains(tpl, "{"+name+"}")
}
