package usertable

import (
	"slices"
	"strings"

	"go-gin-user-dashboard/internal/feature/user"
)

// Column 表头定义；ID 为空的是末尾操作列
type Column struct {
	ID    user.Field `json:"id"`
	Label string     `json:"label"`
}

var Columns = []Column{
	{ID: user.FieldID, Label: "ID"},
	{ID: user.FieldFirstName, Label: "First name"},
	{ID: user.FieldLastName, Label: "Last name"},
	{ID: user.FieldUsername, Label: "Username"},
	{ID: user.FieldRole, Label: "Role"},
	{ID: "", Label: ""},
}

type Row struct {
	User     user.User `json:"user"`
	Selected bool      `json:"selected"`
}

// View is the projection rendered for one request. It is rebuilt after every mutation.
type View struct {
	State              State    `json:"state"`
	Columns            []Column `json:"columns"`
	Rows               []Row    `json:"rows"`
	EmptyRows          int      `json:"empty_rows"`
	Count              int      `json:"count"`
	RowCount           int      `json:"row_count"`
	PageCount          int      `json:"page_count"`
	From               int      `json:"from"`
	To                 int      `json:"to"`
	HasPrev            bool     `json:"has_prev"`
	HasNext            bool     `json:"has_next"`
	NumSelected        int      `json:"num_selected"`
	AllSelected        bool     `json:"all_selected"`
	SomeSelected       bool     `json:"some_selected"`
	NotFound           bool     `json:"not_found"`
	Empty              bool     `json:"empty"`
	RowsPerPageOptions []int    `json:"rows_per_page_options"`
	FilterField        string   `json:"filter_field"`
}

// Derive filters, sorts and pages records for s. It returns the view and the full
// filtered list.
func Derive(o Options, records []user.User, s State) (View, []user.User) {
	filtered := ApplyFilter(records, GetComparator(s.Order, s.OrderBy), s.Filter, o.FilterField)
	total := len(filtered)

	v := View{
		State:              s,
		Columns:            Columns,
		Rows:               []Row{},
		Count:              total,
		RowCount:           len(records),
		PageCount:          PageCount(s.RowsPerPage, total),
		EmptyRows:          EmptyRows(s.Page, s.RowsPerPage, total),
		NumSelected:        len(s.Selected),
		NotFound:           total == 0 && strings.TrimSpace(s.Filter) != "",
		Empty:              len(records) == 0,
		RowsPerPageOptions: slices.Clone(o.RowsPerPageOptions),
		FilterField:        string(o.FilterField),
	}

	start, end := Bounds(s.Page, s.RowsPerPage, total)
	for _, u := range filtered[start:end] {
		v.Rows = append(v.Rows, Row{User: u, Selected: s.IsSelected(u.ID)})
	}
	if end > start {
		v.From, v.To = start+1, end
	}
	v.HasPrev = s.Page > 0
	v.HasNext = s.Page+1 < v.PageCount

	matched := 0
	for _, u := range filtered {
		if s.IsSelected(u.ID) {
			matched++
		}
	}
	v.AllSelected = total > 0 && matched == total
	v.SomeSelected = matched > 0 && matched < total
	return v, filtered
}
