package usertable

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go-gin-user-dashboard/internal/feature/user"
)

var (
	ErrInvalidAction  = errors.New("invalid table action")
	ErrRowsPerPage    = errors.New("rows per page not allowed")
	ErrPageOutOfRange = errors.New("page out of range")
	ErrUnknownRecord  = errors.New("unknown record")
)

// Options 表格的固定配置
type Options struct {
	RowsPerPageOptions []int
	DefaultRowsPerPage int
	DefaultOrderBy     user.Field
	DefaultOrder       Order
	FilterField        user.Field
}

func DefaultOptions() Options {
	return Options{
		RowsPerPageOptions: []int{5, 10, 25},
		DefaultRowsPerPage: 5,
		DefaultOrderBy:     user.FieldName,
		DefaultOrder:       Asc,
		FilterField:        user.FieldName,
	}
}

func (o Options) Validate() error {
	if len(o.RowsPerPageOptions) == 0 {
		return errors.New("rows per page options are empty")
	}
	for _, n := range o.RowsPerPageOptions {
		if n <= 0 {
			return fmt.Errorf("rows per page option %d must be positive", n)
		}
	}
	if !o.allowed(o.DefaultRowsPerPage) {
		return fmt.Errorf("%w: default %d", ErrRowsPerPage, o.DefaultRowsPerPage)
	}
	if _, err := user.ParseField(string(o.DefaultOrderBy)); err != nil {
		return err
	}
	if _, err := user.ParseField(string(o.FilterField)); err != nil {
		return err
	}
	if _, err := ParseOrder(string(o.DefaultOrder)); err != nil {
		return err
	}
	return nil
}

func (o Options) allowed(n int) bool { return slices.Contains(o.RowsPerPageOptions, n) }

// State is the interactive table state. Selected keeps insertion order.
type State struct {
	Page        int        `json:"page"`
	RowsPerPage int        `json:"rows_per_page"`
	OrderBy     user.Field `json:"order_by"`
	Order       Order      `json:"order"`
	Selected    []int64    `json:"selected"`
	Filter      string     `json:"filter"`
}

func NewState(o Options) State {
	return State{
		RowsPerPage: o.DefaultRowsPerPage,
		OrderBy:     o.DefaultOrderBy,
		Order:       o.DefaultOrder,
		Selected:    []int64{},
	}
}

func (s State) IsSelected(id int64) bool { return slices.Contains(s.Selected, id) }

type ActionType string

const (
	ActionSort        ActionType = "sort"
	ActionPage        ActionType = "page"
	ActionResetPage   ActionType = "reset_page"
	ActionFilter      ActionType = "filter"
	ActionRowsPerPage ActionType = "rows_per_page"
	ActionSelectRow   ActionType = "select_row"
	ActionSelectAll   ActionType = "select_all"
)

// Action 一次状态变更请求，表单和 JSON 共用
type Action struct {
	Type        ActionType `json:"type"                    form:"action"`
	Field       string     `json:"field,omitempty"         form:"field"`
	Page        int        `json:"page,omitempty"          form:"page"`
	RowsPerPage int        `json:"rows_per_page,omitempty" form:"rows_per_page"`
	ID          int64      `json:"id,omitempty"            form:"id"`
	Checked     bool       `json:"checked,omitempty"       form:"checked"`
	Query       string     `json:"query,omitempty"         form:"q"`
}

// Scope is what the reducer needs to know about the current records.
type Scope struct {
	Known    map[int64]struct{}
	Matching []int64 // ids matching the current filter, in display order
}

// Reduce applies a to s. It never mutates s.
func Reduce(o Options, s State, a Action, sc Scope) (State, error) {
	next := s
	next.Selected = slices.Clone(s.Selected)
	if next.Selected == nil {
		next.Selected = []int64{}
	}

	switch a.Type {
	case ActionSort:
		f, err := user.ParseField(a.Field)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrInvalidAction, err)
		}
		if s.OrderBy == f && s.Order == Asc {
			next.Order = Desc
		} else {
			next.Order = Asc
		}
		next.OrderBy = f

	case ActionPage:
		pages := PageCount(s.RowsPerPage, len(sc.Matching))
		if a.Page < 0 || (a.Page > 0 && a.Page >= pages) {
			return s, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, a.Page, pages)
		}
		next.Page = a.Page

	case ActionResetPage:
		next.Page = 0

	case ActionFilter:
		next.Filter = a.Query
		next.Page = 0

	case ActionRowsPerPage:
		if !o.allowed(a.RowsPerPage) {
			return s, fmt.Errorf("%w: %d", ErrRowsPerPage, a.RowsPerPage)
		}
		next.RowsPerPage = a.RowsPerPage
		next.Page = 0

	case ActionSelectRow:
		if _, ok := sc.Known[a.ID]; !ok {
			return s, fmt.Errorf("%w: %d", ErrUnknownRecord, a.ID)
		}
		if i := slices.Index(next.Selected, a.ID); i >= 0 {
			next.Selected = slices.Delete(next.Selected, i, i+1)
		} else {
			next.Selected = append(next.Selected, a.ID)
		}

	case ActionSelectAll:
		if a.Checked {
			next.Selected = slices.Clone(sc.Matching)
			if next.Selected == nil {
				next.Selected = []int64{}
			}
		} else {
			next.Selected = []int64{}
		}

	default:
		return s, fmt.Errorf("%w: type %q", ErrInvalidAction, strings.TrimSpace(string(a.Type)))
	}
	return next, nil
}

// Prune drops selected ids that are no longer known.
func (s State) Prune(known map[int64]struct{}) State {
	next := s
	next.Selected = make([]int64, 0, len(s.Selected))
	for _, id := range s.Selected {
		if _, ok := known[id]; ok {
			next.Selected = append(next.Selected, id)
		}
	}
	return next
}
