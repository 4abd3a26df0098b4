package pagination

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Direction of the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

const (
	// DefaultLimit applies when the caller does not supply a page size.
	DefaultLimit = 20
	// MaxLimit is the server-side cap regardless of what the caller requests.
	MaxLimit = 50
)

// ClampLimit normalizes a requested page size into [1, MaxLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Sort describes the keyset ordering of a query. Expr is the column or
// expression the rows are ordered by and MUST be the exact expression used in
// the ORDER BY clause — for aggregate sorts the predicate has to be built
// against the aggregate itself, or cursor and ORDER BY disagree and rows get
// skipped or duplicated. Nullable fixes NULLS LAST so the tiebreak predicate
// stays correct across pages.
type Sort struct {
	Expr      string
	Direction Direction
	Nullable  bool
}

// OrderBy returns the ORDER BY expression list with the strict id tiebreak
// that guarantees a total order even when Expr has duplicate values.
func (s Sort) OrderBy(idCol string) string {
	dir := "ASC"
	if s.Direction == Desc {
		dir = "DESC"
	}

	var b strings.Builder
	b.WriteString(s.Expr)
	b.WriteByte(' ')
	b.WriteString(dir)
	if s.Nullable {
		b.WriteString(" NULLS LAST")
	}
	b.WriteString(", ")
	b.WriteString(idCol)
	b.WriteByte(' ')
	b.WriteString(dir)
	return b.String()
}

// Predicate builds the resume condition for a decoded cursor as a SQL fragment
// plus bind args, starting placeholders at argIdx. The comparison is always on
// the (Expr, id) pair, never an offset, so pages stay correct when rows are
// inserted or deleted between requests.
func (s Sort) Predicate(idCol string, c *Cursor, argIdx int) (string, []any) {
	op := ">"
	if s.Direction == Desc {
		op = "<"
	}

	// Cursor sits inside the NULL tail: only null rows remain, ordered by id.
	if s.Nullable && c.SortValue == nil {
		frag := fmt.Sprintf("(%s IS NULL AND %s %s $%d)", s.Expr, idCol, op, argIdx)
		return frag, []any{c.ID}
	}

	frag := fmt.Sprintf("(%s %s $%d OR (%s = $%d AND %s %s $%d)",
		s.Expr, op, argIdx, s.Expr, argIdx, idCol, op, argIdx+1)
	if s.Nullable {
		// Null rows sort last, so they are still ahead of any non-null cursor.
		frag += fmt.Sprintf(" OR %s IS NULL", s.Expr)
	}
	frag += ")"

	return frag, []any{c.SortValue, c.ID}
}

// Page is one page of a keyset-paginated result set.
type Page[T any] struct {
	Data       []T     `json:"data"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// Paginate post-processes a limit+1 fetch into a page. key extracts the id and
// sort value of a row for the next cursor; the sort value may be nil when the
// row's sort column was NULL. limit is clamped the same way the fetch side
// clamps it, so an unclamped value cannot index past the rows.
func Paginate[T any](rows []T, limit int, key func(T) (uuid.UUID, any)) Page[T] {
	limit = ClampLimit(limit)
	page := Page[T]{Data: rows, HasMore: len(rows) > limit}

	if page.HasMore {
		page.Data = rows[:limit]
		id, sortValue := key(page.Data[limit-1])
		token := Encode(id, sortValue)
		page.NextCursor = &token
	}

	if page.Data == nil {
		page.Data = []T{}
	}

	return page
}
