package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrMalformedCursor is returned when a cursor token was not produced by Encode.
var ErrMalformedCursor = errors.New("malformed cursor")

// Cursor is the decoded resume point of a keyset-paginated query: the id of the
// last row of the previous page plus the sort value it was ordered by. SortValue
// is nil when the row's sort column was NULL.
type Cursor struct {
	ID        uuid.UUID `json:"id"`
	SortValue any       `json:"v,omitempty"`
}

// Encode serializes (id, sortValue) into an opaque token. Clients must treat the
// token as a black box; its layout is not part of the API.
func Encode(id uuid.UUID, sortValue any) string {
	data, _ := json.Marshal(Cursor{ID: id, SortValue: sortValue})
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses a token produced by Encode. Anything else fails with
// ErrMalformedCursor; a bad cursor is never silently ignored.
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, ErrMalformedCursor
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrMalformedCursor
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, ErrMalformedCursor
	}
	if c.ID == uuid.Nil {
		return nil, ErrMalformedCursor
	}

	return &c, nil
}
