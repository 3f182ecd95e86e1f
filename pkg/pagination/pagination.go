// Package pagination implements keyset paging over (created_at, id).
package pagination

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	// 8 bytes of unix nanoseconds followed by the 16 byte id
	cursorLen = 8 + 16
)

var errMalformedCursor = errors.New("malformed page cursor")

// Params is what a list endpoint receives from its caller.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the sort key of the last row a caller has seen.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit when unset.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer asks for one extra row so Trim can tell whether a next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim drops the lookahead row fetched via LimitWithBuffer. The returned
// cursor points at the last kept row and is empty on the final page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[limit-1]))
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	var raw [cursorLen]byte
	binary.BigEndian.PutUint64(raw[:8], uint64(c.CreatedAt.UnixNano()))
	copy(raw[8:], c.ID[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// ParseCursor reverses EncodeCursor. A blank value means the first page and
// yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) != cursorLen {
		return nil, errMalformedCursor
	}
	id, err := uuid.FromBytes(raw[8:])
	if err != nil {
		return nil, errMalformedCursor
	}
	nanos := int64(binary.BigEndian.Uint64(raw[:8]))
	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}

// NewestFirst orders by (created_at, id) descending and, given a cursor,
// keeps only rows strictly before it.
func NewestFirst(c *Cursor) func(*gorm.DB) *gorm.DB {
	return keyset(c, "<", "DESC")
}

// OldestFirst orders ascending and keeps only rows strictly after c.
func OldestFirst(c *Cursor) func(*gorm.DB) *gorm.DB {
	return keyset(c, ">", "ASC")
}

func keyset(c *Cursor, cmp, dir string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if c != nil {
			db = db.Where("(created_at "+cmp+" ?) OR (created_at = ? AND id "+cmp+" ?)", c.CreatedAt, c.CreatedAt, c.ID)
		}
		return db.Order("created_at " + dir).Order("id " + dir)
	}
}
