package promotion

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// MinSearchLength is the shortest query Search answers.
const MinSearchLength = 2

// Search returns members whose name, id or rank contains query, ignoring
// case. Results are ordered most senior first.
func Search(members []Member, query string) []Member {
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < MinSearchLength {
		return nil
	}

	var out []Member
	for _, m := range members {
		if strings.Contains(strings.ToLower(m.Name), q) ||
			strings.Contains(strings.ToLower(string(m.ID)), q) ||
			strings.Contains(strings.ToLower(string(m.Rank)), q) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b Member) int {
		switch {
		case moreSenior(a, b):
			return -1
		case moreSenior(b, a):
			return 1
		}
		return 0
	})
	return out
}
