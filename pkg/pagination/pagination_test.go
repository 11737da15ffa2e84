package pagination

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -5: DefaultLimit, 10: 10, MaxLimit: MaxLimit, 500: MaxLimit}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLimit(in), "limit %d", in)
	}
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTripNormalizesToUTC(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 123, time.FixedZone("CST", -6*3600))
	id := uuid.New()

	parsed, err := ParseCursor(EncodeCursor(Cursor{CreatedAt: at, ID: id}))
	require.NoError(t, err)
	assert.True(t, parsed.CreatedAt.Equal(at))
	assert.Equal(t, time.UTC, parsed.CreatedAt.Location())
	assert.Equal(t, id, parsed.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	c, err := ParseCursor("  ")
	assert.NoError(t, err)
	assert.Nil(t, c)

	for name, value := range map[string]string{
		"not base64": "%%%",
		"not json":   base64.RawURLEncoding.EncodeToString([]byte("2026-01-01|abc")),
		"no id":      base64.RawURLEncoding.EncodeToString([]byte(`{"t":"2026-01-01T00:00:00Z"}`)),
	} {
		_, err := ParseCursor(value)
		assert.True(t, errors.Is(err, ErrInvalidCursor), "%s: %v", name, err)
	}
}

func TestBuildPage(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := BuildPage(rows, 2, key)
	require.Len(t, page.Items, 2)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, next.ID)

	last := BuildPage(rows[:1], 2, key)
	assert.Len(t, last.Items, 1)
	assert.Empty(t, last.NextCursor)

	empty := BuildPage[row](nil, 2, key)
	assert.NotNil(t, empty.Items)
}

type listing struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	CreatedAt time.Time
}

func TestScopeWalksPagesNewestFirst(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&listing{}))

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tied := base.Add(time.Hour)
	seeded := []listing{
		{ID: uuid.New(), CreatedAt: base},
		{ID: uuid.New(), CreatedAt: tied},
		{ID: uuid.New(), CreatedAt: tied},
		{ID: uuid.New(), CreatedAt: base.Add(2 * time.Hour)},
		{ID: uuid.New(), CreatedAt: base.Add(3 * time.Hour)},
	}
	require.NoError(t, db.Create(&seeded).Error)

	key := func(l listing) Cursor { return Cursor{CreatedAt: l.CreatedAt, ID: l.ID} }
	seen := map[uuid.UUID]bool{}
	params := Params{Limit: 2}
	var prev *listing
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "pagination did not terminate")
		var rows []listing
		require.NoError(t, db.Scopes(Scope(params, "")).Find(&rows).Error)
		page := BuildPage(rows, params.Limit, key)
		for i := range page.Items {
			item := page.Items[i]
			assert.False(t, seen[item.ID], "row %s returned twice", item.ID)
			seen[item.ID] = true
			if prev != nil {
				assert.False(t, item.CreatedAt.After(prev.CreatedAt), "rows out of order")
			}
			prev = &item
		}
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}
	assert.Len(t, seen, len(seeded))
}

func TestScopeSurfacesBadCursor(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&listing{}))

	var rows []listing
	err = db.Scopes(Scope(Params{Cursor: "%%%"}, "")).Find(&rows).Error
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
