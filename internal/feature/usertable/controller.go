package usertable

import (
	"slices"

	"go-gin-user-dashboard/internal/feature/user"
)

// Controller owns the records and state of one table view. Every mutation goes through
// Dispatch or SetRecords, each of which recomputes the derived view.
// A Controller is not safe for concurrent use.
type Controller struct {
	opts     Options
	records  []user.User
	known    map[int64]struct{}
	state    State
	view     View
	filtered []user.User
}

// NewController 用已保存的状态恢复控制器；非法字段回退为默认值
func NewController(o Options, s State, records []user.User) *Controller {
	c := &Controller{opts: o, state: normalize(o, s)}
	c.SetRecords(records)
	return c
}

// SetRecords replaces the record list, prunes the selection and clamps the page.
func (c *Controller) SetRecords(records []user.User) View {
	c.records = slices.Clone(records)
	c.known = make(map[int64]struct{}, len(records))
	for _, u := range records {
		c.known[u.ID] = struct{}{}
	}
	c.state = c.state.Prune(c.known)
	c.recompute()

	if last := c.view.PageCount - 1; c.state.Page > 0 && c.state.Page > last {
		c.state.Page = max(0, last)
		c.recompute()
	}
	return c.view
}

// Dispatch is the single state-update entry point.
func (c *Controller) Dispatch(a Action) (View, error) {
	next, err := Reduce(c.opts, c.state, a, Scope{Known: c.known, Matching: user.IDs(c.filtered)})
	if err != nil {
		return c.view, err
	}
	c.state = next
	c.recompute()
	return c.view, nil
}

func (c *Controller) recompute() {
	c.view, c.filtered = Derive(c.opts, c.records, c.state)
}

func (c *Controller) State() State         { return c.state }
func (c *Controller) View() View           { return c.view }
func (c *Controller) Records() []user.User { return slices.Clone(c.records) }

func normalize(o Options, s State) State {
	def := NewState(o)
	if !o.allowed(s.RowsPerPage) {
		s.RowsPerPage = def.RowsPerPage
	}
	if f, err := user.ParseField(string(s.OrderBy)); err != nil {
		s.OrderBy = def.OrderBy
	} else {
		s.OrderBy = f
	}
	if ord, err := ParseOrder(string(s.Order)); err != nil {
		s.Order = def.Order
	} else {
		s.Order = ord
	}
	if s.Page < 0 {
		s.Page = 0
	}
	if s.Selected == nil {
		s.Selected = []int64{}
	}
	return s
}
