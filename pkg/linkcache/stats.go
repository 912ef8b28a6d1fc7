package linkcache

import "cmp"

// Ranger is implemented by caches that can enumerate their entries.
// Every backend in this package does.
type Ranger interface {
	Range(fn func(title string, links []string) bool)
}

// Stats summarizes a cache's contents.
type Stats struct {
	Titles int `json:"titles"`
	Links  int `json:"links"`
	// DeadEnds counts titles stored with no links.
	DeadEnds int `json:"dead_ends"`
	// MostLinked is the title with the largest link set; ties go to the
	// alphabetically first title.
	MostLinked      string `json:"most_linked,omitempty"`
	MostLinkedCount int    `json:"most_linked_count,omitempty"`
}

// Summarize walks c when it is a Ranger; otherwise only Titles is filled.
func Summarize(c Cache) Stats {
	r, ok := c.(Ranger)
	if !ok {
		return Stats{Titles: c.Len()}
	}

	var st Stats
	r.Range(func(title string, links []string) bool {
		st.Titles++
		st.Links += len(links)
		if len(links) == 0 {
			st.DeadEnds++
		}
		if n := len(links); n > st.MostLinkedCount ||
			(n == st.MostLinkedCount && n > 0 && cmp.Less(title, st.MostLinked)) {
			st.MostLinked, st.MostLinkedCount = title, n
		}
		return true
	})
	return st
}
