package shared

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 100, 0},
		{"explicit", "limit=25&offset=50", 25, 50},
		{"capped at max", "limit=9999", 500, 0},
		{"garbage ignored", "limit=abc&offset=-3", 100, 0},
		{"zero limit ignored", "limit=0&offset=10", 100, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ledger/entries?"+tt.query, nil)
			page := ParsePagination(r, 100, 500)
			if page.Limit != tt.wantLimit || page.Offset != tt.wantOffset {
				t.Fatalf("got limit %d offset %d, want %d %d", page.Limit, page.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}
