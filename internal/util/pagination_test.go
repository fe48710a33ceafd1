package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page, size int
		offset     int
		limit      int
	}{
		{name: "first page", page: 1, size: 20, offset: 0, limit: 20},
		{name: "third page", page: 3, size: 5, offset: 10, limit: 5},
		{name: "page below one", page: 0, size: 5, offset: 0, limit: 5},
		{name: "zero size", page: 2, size: 0, offset: DefaultPageSize, limit: DefaultPageSize},
		{name: "size over max", page: 1, size: 1000, offset: 0, limit: DefaultPageSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			offset, limit := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.offset, offset)
			assert.Equal(t, tt.limit, limit)
		})
	}
}

func TestMeta(t *testing.T) {
	t.Parallel()

	m := Meta(2, 10, 25)
	assert.Equal(t, 2, m.Page)
	assert.EqualValues(t, 3, m.TotalPages)
	assert.True(t, m.HasPrev)
	assert.True(t, m.HasNext)

	m = Meta(3, 10, 25)
	assert.False(t, m.HasNext)

	m = Meta(1, 10, 0)
	assert.Zero(t, m.TotalPages)
	assert.False(t, m.HasPrev)
	assert.False(t, m.HasNext)
}

func TestParseIntDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("x", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
}
