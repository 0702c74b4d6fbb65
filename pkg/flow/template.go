package flow

import (
	"regexp"
	"strings"
)

// refPattern matches {{path.to.value}} references.
var refPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// ResolveTemplate replaces {{path}} references in template with live state
// values.
//
// Paths are trimmed and resolved with State.GetNested, so nested objects
// ({{user.profile.email}}) and list indices ({{items.0.name}}) work. Missing
// or nil values become the empty string; containers are JSON-encoded. The
// substitution is a single pass: resolved text is never re-scanned, and
// there is no escape for {{.
func ResolveTemplate(template string, st *State) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return refPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		return Stringify(st.GetNested(path, nil))
	})
}

// ExtractTemplateRefs returns the trimmed paths of every {{path}} reference
// in template, in order of appearance.
func ExtractTemplateRefs(template string) []string {
	var refs []string
	for _, m := range refPattern.FindAllStringSubmatch(template, -1) {
		refs = append(refs, strings.TrimSpace(m[1]))
	}
	return refs
}
