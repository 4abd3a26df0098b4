package pagination_test

import (
	"bytes"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moim/moim-api/internal/pkg/pagination"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, pagination.DefaultLimit, pagination.ClampLimit(0))
	assert.Equal(t, pagination.DefaultLimit, pagination.ClampLimit(-3))
	assert.Equal(t, 1, pagination.ClampLimit(1))
	assert.Equal(t, 30, pagination.ClampLimit(30))
	assert.Equal(t, pagination.MaxLimit, pagination.ClampLimit(pagination.MaxLimit))
	assert.Equal(t, pagination.MaxLimit, pagination.ClampLimit(9999))
}

func TestSortOrderBy(t *testing.T) {
	desc := pagination.Sort{Expr: "created_at", Direction: pagination.Desc}
	assert.Equal(t, "created_at DESC, id DESC", desc.OrderBy("id"))

	asc := pagination.Sort{Expr: "price_points", Direction: pagination.Asc}
	assert.Equal(t, "price_points ASC, id ASC", asc.OrderBy("id"))

	nullable := pagination.Sort{Expr: "last_seen_at", Direction: pagination.Desc, Nullable: true}
	assert.Equal(t, "last_seen_at DESC NULLS LAST, id DESC", nullable.OrderBy("id"))
}

func TestSortPredicate(t *testing.T) {
	id := uuid.New()

	t.Run("descending", func(t *testing.T) {
		s := pagination.Sort{Expr: "created_at", Direction: pagination.Desc}
		c := &pagination.Cursor{ID: id, SortValue: "2025-03-14T09:26:53Z"}

		frag, args := s.Predicate("id", c, 2)
		assert.Equal(t, "(created_at < $2 OR (created_at = $2 AND id < $3))", frag)
		assert.Equal(t, []any{c.SortValue, id}, args)
	})

	t.Run("ascending", func(t *testing.T) {
		s := pagination.Sort{Expr: "price_points", Direction: pagination.Asc}
		c := &pagination.Cursor{ID: id, SortValue: float64(3000)}

		frag, args := s.Predicate("id", c, 1)
		assert.Equal(t, "(price_points > $1 OR (price_points = $1 AND id > $2))", frag)
		assert.Equal(t, []any{c.SortValue, id}, args)
	})

	t.Run("nullable with non-null cursor keeps the null tail reachable", func(t *testing.T) {
		s := pagination.Sort{Expr: "last_seen_at", Direction: pagination.Desc, Nullable: true}
		c := &pagination.Cursor{ID: id, SortValue: "2025-03-14T09:26:53Z"}

		frag, args := s.Predicate("id", c, 1)
		assert.Equal(t, "(last_seen_at < $1 OR (last_seen_at = $1 AND id < $2) OR last_seen_at IS NULL)", frag)
		assert.Equal(t, []any{c.SortValue, id}, args)
	})

	t.Run("cursor inside the null tail", func(t *testing.T) {
		s := pagination.Sort{Expr: "last_seen_at", Direction: pagination.Desc, Nullable: true}
		c := &pagination.Cursor{ID: id, SortValue: nil}

		frag, args := s.Predicate("id", c, 1)
		assert.Equal(t, "(last_seen_at IS NULL AND id < $1)", frag)
		assert.Equal(t, []any{id}, args)
	})
}

func TestPaginate(t *testing.T) {
	type row struct {
		ID    uuid.UUID
		Score int
	}
	key := func(r row) (uuid.UUID, any) { return r.ID, r.Score }

	t.Run("empty result", func(t *testing.T) {
		page := pagination.Paginate(nil, 10, key)
		assert.NotNil(t, page.Data)
		assert.Empty(t, page.Data)
		assert.False(t, page.HasMore)
		assert.Nil(t, page.NextCursor)
	})

	t.Run("last page keeps all rows", func(t *testing.T) {
		rows := []row{{ID: uuid.New(), Score: 1}, {ID: uuid.New(), Score: 2}}

		page := pagination.Paginate(rows, 10, key)
		assert.Len(t, page.Data, 2)
		assert.False(t, page.HasMore)
		assert.Nil(t, page.NextCursor)
	})

	t.Run("unclamped limit falls back to the default", func(t *testing.T) {
		rows := []row{{ID: uuid.New(), Score: 1}, {ID: uuid.New(), Score: 2}, {ID: uuid.New(), Score: 3}}

		page := pagination.Paginate(rows, 0, key)
		assert.Len(t, page.Data, 3)
		assert.False(t, page.HasMore)
		assert.Nil(t, page.NextCursor)
	})

	t.Run("overfetched row is trimmed and becomes the cursor", func(t *testing.T) {
		rows := make([]row, 11)
		for i := range rows {
			rows[i] = row{ID: uuid.New(), Score: 100 - i}
		}

		page := pagination.Paginate(rows, 10, key)
		assert.Len(t, page.Data, 10)
		assert.True(t, page.HasMore)
		require.NotNil(t, page.NextCursor)

		c, err := pagination.Decode(*page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, rows[9].ID, c.ID)
		assert.Equal(t, float64(rows[9].Score), c.SortValue)
	})
}

// TestPaginateWalk pages through an in-memory data set exactly the way a
// repository would: sorted by (score, id) descending, limit+1 fetch resuming
// after the cursor. Every row must come back exactly once even though scores
// repeat heavily.
func TestPaginateWalk(t *testing.T) {
	type row struct {
		ID    uuid.UUID
		Score int
	}

	const total = 25
	const limit = 10

	rows := make([]row, total)
	for i := range rows {
		// Only five distinct scores, so the id tiebreak does real work.
		rows[i] = row{ID: uuid.New(), Score: i % 5}
	}

	idLess := func(a, b uuid.UUID) bool { return bytes.Compare(a[:], b[:]) < 0 }
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return idLess(rows[j].ID, rows[i].ID)
	})

	// fetch mirrors the SQL resume predicate for a descending sort.
	fetch := func(c *pagination.Cursor, limit int) []row {
		out := make([]row, 0, limit+1)
		for _, r := range rows {
			if c != nil {
				score := int(c.SortValue.(float64))
				if !(r.Score < score || (r.Score == score && idLess(r.ID, c.ID))) {
					continue
				}
			}
			out = append(out, r)
			if len(out) == limit+1 {
				break
			}
		}
		return out
	}

	key := func(r row) (uuid.UUID, any) { return r.ID, r.Score }

	seen := make(map[uuid.UUID]int)
	var pageSizes []int
	var cursor *pagination.Cursor

	for pages := 0; ; pages++ {
		require.Less(t, pages, total, "pagination did not terminate")

		page := pagination.Paginate(fetch(cursor, limit), limit, key)
		pageSizes = append(pageSizes, len(page.Data))
		for _, r := range page.Data {
			seen[r.ID]++
		}

		if !page.HasMore {
			assert.Nil(t, page.NextCursor)
			break
		}

		require.NotNil(t, page.NextCursor)
		var err error
		cursor, err = pagination.Decode(*page.NextCursor)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{10, 10, 5}, pageSizes)
	assert.Len(t, seen, total, "every row exactly once")
	for id, n := range seen {
		assert.Equalf(t, 1, n, "row %s returned %d times", id, n)
	}
}
