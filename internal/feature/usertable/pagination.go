package usertable

// EmptyRows is the number of filler rows that keep the final page as tall as the others.
// It is zero for every page except a short final page.
func EmptyRows(page, rowsPerPage, total int) int {
	if rowsPerPage <= 0 || page < 0 {
		return 0
	}
	shown := RowsOnPage(page, rowsPerPage, total)
	if shown == 0 {
		return 0
	}
	return rowsPerPage - shown
}

// RowsOnPage 当前页的真实行数
func RowsOnPage(page, rowsPerPage, total int) int {
	if rowsPerPage <= 0 || page < 0 {
		return 0
	}
	left := total - page*rowsPerPage
	return max(0, min(rowsPerPage, left))
}

// PageCount 总页数（空列表为 0）
func PageCount(rowsPerPage, total int) int {
	if rowsPerPage <= 0 || total <= 0 {
		return 0
	}
	return (total + rowsPerPage - 1) / rowsPerPage
}

// Bounds 当前页在列表中的 [start, end)
func Bounds(page, rowsPerPage, total int) (start, end int) {
	n := RowsOnPage(page, rowsPerPage, total)
	if n == 0 {
		return 0, 0
	}
	start = page * rowsPerPage
	return start, start + n
}
