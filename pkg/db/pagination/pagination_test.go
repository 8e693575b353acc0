package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "123", CreatedAt: "2024-03-01T00:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "123", cursor.ID)
	assert.Equal(t, "2024-03-01T00:00:00Z", cursor.CreatedAt)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)

	cursor, err := DecodeCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestPageSizeAndTrim(t *testing.T) {
	assert.Equal(t, DefaultPageSize, PageSize(0))
	assert.Equal(t, MaxPageSize, PageSize(1000))
	assert.Equal(t, 5, PageSize(5))

	items, more := Trim([]int{1, 2, 3}, 2)
	assert.Equal(t, []int{1, 2}, items)
	assert.True(t, more)

	items, more = Trim([]int{1, 2}, 2)
	assert.Len(t, items, 2)
	assert.False(t, more)
}
