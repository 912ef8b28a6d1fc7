package wiki

import "strings"

// namespaceSeparator marks titles outside the article namespace
// ("Category:Sport", "Help:Contents").
const namespaceSeparator = ":"

// FilterLinks drops namespaced titles, self-links and duplicates, keeping
// the first occurrence order. This is the only place links are filtered.
func FilterLinks(self string, links []string) []string {
	out := make([]string, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if l == self || strings.Contains(l, namespaceSeparator) {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
