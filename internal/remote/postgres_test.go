package remote

import (
	"database/sql"
	"testing"
	"time"

	"github.com/betterbench/betterbench/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRow struct {
	values []any
}

func (r stubRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch out := d.(type) {
		case *string:
			*out = r.values[i].(string)
		case *[]byte:
			*out = r.values[i].([]byte)
		case *sql.NullTime:
			*out = r.values[i].(sql.NullTime)
		}
	}
	return nil
}

func TestScanEntry(t *testing.T) {
	visited := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)

	row := stubRow{values: []any{
		"b1",
		"Riverside Bench",
		[]byte(`{"latitude":56.95,"longitude":24.11,"displayName":"park"}`),
		[]byte(`{"design":7,"comfort":"springy","scenery":9,"bonus":0,"overall":"8"}`),
		[]byte(`["https://cdn.example.com/a.jpg"]`),
		"notes",
		sql.NullTime{Time: visited, Valid: true},
		sql.NullTime{},
		sql.NullTime{},
	}}

	e, err := scanEntry(row)
	require.NoError(t, err)

	assert.Equal(t, "b1", e.ID)
	assert.Equal(t, "Riverside Bench", e.Name)
	assert.Equal(t, 56.95, e.Location.Latitude)
	assert.Equal(t, models.NumericRating(7), e.Ratings.Design)
	assert.Equal(t, models.TextRating("springy"), e.Ratings.Comfort)
	// A numeric string still sorts as a number.
	assert.Equal(t, float64(8), e.Ratings.Overall.Score())
	assert.Equal(t, []models.ImageRef{"https://cdn.example.com/a.jpg"}, e.Images)
	assert.True(t, e.DateVisited.Time.Equal(visited))
	// NULL timestamps are defensively replaced with the current time.
	assert.False(t, e.CreatedAt.IsZero())
	assert.False(t, e.UpdatedAt.IsZero())
}

func TestMarshalEntry(t *testing.T) {
	doc, err := marshalEntry(models.Entry{Name: "bare"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(doc.images), "nil image sequence persists as an empty list")
	assert.JSONEq(t, `{"design":0,"comfort":0,"scenery":0,"bonus":0,"overall":0}`, string(doc.ratings))
}
