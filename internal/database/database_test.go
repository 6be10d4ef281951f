package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"压缩空白", "SELECT *\n\t\tFROM lines\n  WHERE line_id = $1", "SELECT * FROM lines WHERE line_id = $1"},
		{"短语句不变", "SELECT 1", "SELECT 1"},
		{"长语句截断", strings.Repeat("a", 250), strings.Repeat("a", maxQueryLog) + "..."},
		{"按字符截断", strings.Repeat("线", 201), strings.Repeat("线", maxQueryLog) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateQuery(tt.query))
		})
	}
}
