package attendance

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidUnits(t *testing.T) {
	ok := []string{"0", "0.5", "1", "1.0", "0.50"}
	for _, v := range ok {
		if !validUnits(decimal.RequireFromString(v)) {
			t.Errorf("validUnits(%s) = false, want true", v)
		}
	}

	bad := []string{"0.25", "2", "-0.5", "1.5", "0.75"}
	for _, v := range bad {
		if validUnits(decimal.RequireFromString(v)) {
			t.Errorf("validUnits(%s) = true, want false", v)
		}
	}
}
