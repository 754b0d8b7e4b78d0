package usertable

import (
	"strings"

	"golang.org/x/text/cases"

	"go-gin-user-dashboard/internal/feature/user"
)

// ApplyFilter sorts a copy of input with cmp and, when filter is non-empty, keeps the
// records whose field contains it under Unicode case folding. input is never modified.
func ApplyFilter(input []user.User, cmp Comparator, filter string, field user.Field) []user.User {
	sorted := SortStable(input, cmp)

	filter = strings.TrimSpace(filter)
	if filter == "" {
		return sorted
	}

	// cases.Caser 不是并发安全的，每次调用新建
	fold := cases.Fold()
	needle := fold.String(filter)

	out := sorted[:0]
	for _, u := range sorted {
		if strings.Contains(fold.String(u.Text(field)), needle) {
			out = append(out, u)
		}
	}
	return out
}
