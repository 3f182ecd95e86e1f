package pagination

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/db/dbtest"
)

type row struct {
	at time.Time
	id uuid.UUID
}

func rowCursor(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC), ID: uuid.New()}

	encoded := EncodeCursor(want)
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
	assert.NotContains(t, encoded, "=")

	got, err := ParseCursor(encoded)
	require.NoError(t, err)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)
}

func TestParseCursorEmpty(t *testing.T) {
	got, err := ParseCursor("   ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	_, err := ParseCursor("%%%")
	assert.Error(t, err)

	_, err = ParseCursor("bm8tc2VwYXJhdG9y")
	assert.Error(t, err)

	_, err = ParseCursor(base64.RawURLEncoding.EncodeToString(make([]byte, 25)))
	assert.Error(t, err)
}

func TestTrimWithoutNextPage(t *testing.T) {
	rows := []row{{at: time.Now(), id: uuid.New()}}

	kept, next := Trim(rows, 5, rowCursor)
	assert.Len(t, kept, 1)
	assert.Empty(t, next)
}

func TestTrimReturnsCursorOfLastKeptRow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]row, 0, 3)
	for i := 0; i < 3; i++ {
		rows = append(rows, row{at: base.Add(-time.Duration(i) * time.Minute), id: uuid.New()})
	}

	kept, next := Trim(rows, 2, rowCursor)
	require.Len(t, kept, 2)
	require.NotEmpty(t, next)

	cursor, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, cursor.ID)
	assert.True(t, rows[1].at.Equal(cursor.CreatedAt))
}

type pagedRow struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func TestKeysetScopesWalkEveryRowOnce(t *testing.T) {
	conn := dbtest.Open(t).DB()
	require.NoError(t, conn.AutoMigrate(&pagedRow{}))

	// pairs share a timestamp so the id tiebreak is exercised
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var seeded []pagedRow
	for i := range 6 {
		seeded = append(seeded, pagedRow{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i/2) * time.Minute)})
	}
	require.NoError(t, conn.Create(&seeded).Error)

	walk := func(scope func(*Cursor) func(*gorm.DB) *gorm.DB) []uuid.UUID {
		var seen []uuid.UUID
		var cursor *Cursor
		for {
			var rows []pagedRow
			require.NoError(t, conn.WithContext(context.Background()).Scopes(scope(cursor)).Limit(LimitWithBuffer(4)).Find(&rows).Error)
			page, next := Trim(rows, 4, func(r pagedRow) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} })
			for _, r := range page {
				seen = append(seen, r.ID)
			}
			if next == "" {
				return seen
			}
			var err error
			cursor, err = ParseCursor(next)
			require.NoError(t, err)
		}
	}

	newest := walk(NewestFirst)
	oldest := walk(OldestFirst)
	require.Len(t, newest, len(seeded))
	require.Len(t, oldest, len(seeded))
	for i := range newest {
		assert.Equal(t, newest[i], oldest[len(oldest)-1-i])
	}
	assert.ElementsMatch(t, newest, []uuid.UUID{seeded[0].ID, seeded[1].ID, seeded[2].ID, seeded[3].ID, seeded[4].ID, seeded[5].ID})
}
