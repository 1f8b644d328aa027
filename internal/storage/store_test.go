package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationNormalize(t *testing.T) {
	tests := []struct {
		name       string
		p          Pagination
		defLimit   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", Pagination{}, 20, 20, 0},
		{"explicit", Pagination{Page: 3, Limit: 10}, 20, 10, 20},
		{"zero page", Pagination{Page: 0, Limit: 10}, 20, 10, 0},
		{"negative page", Pagination{Page: -2, Limit: 10}, 20, 10, 0},
		{"negative limit falls back", Pagination{Page: 1, Limit: -5}, 20, 20, 0},
		{"limit clamped to 100", Pagination{Page: 2, Limit: 500}, 20, 100, 100},
		{"task default limit", Pagination{}, 50, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := tt.p.Normalize(tt.defLimit)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}
