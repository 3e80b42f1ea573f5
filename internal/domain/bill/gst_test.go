package bill

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeGST(t *testing.T) {
	cases := []struct {
		name    string
		taxable string
		rate    string
		gst     string
		total   string
	}{
		{"standard 18 percent", "10000", "18", "1800", "11800"},
		{"five percent", "2400", "5", "120", "2520"},
		{"rounding half up", "999.99", "18", "180", "1179.99"},
		{"fractional rate", "1000", "12.5", "125", "1125"},
		{"zero rate", "5000", "0", "0", "5000"},
		{"paise precision", "100.55", "18", "18.1", "118.65"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			taxable, _ := decimal.NewFromString(tc.taxable)
			rate, _ := decimal.NewFromString(tc.rate)
			gst, total := ComputeGST(taxable, rate)
			if !gst.Equal(decimal.RequireFromString(tc.gst)) {
				t.Errorf("gst = %s, want %s", gst, tc.gst)
			}
			if !total.Equal(decimal.RequireFromString(tc.total)) {
				t.Errorf("total = %s, want %s", total, tc.total)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusDraft, StatusCredited},
		{StatusDraft, StatusPaid},
		{StatusCredited, StatusPaid},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Errorf("CanTransition(%s, %s) = false, want true", pair[0], pair[1])
		}
	}

	denied := [][2]string{
		{StatusCredited, StatusDraft},
		{StatusPaid, StatusCredited},
		{StatusPaid, StatusDraft},
		{StatusDraft, StatusDraft},
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Errorf("CanTransition(%s, %s) = true, want false", pair[0], pair[1])
		}
	}
}

func TestCountedStatuses(t *testing.T) {
	if Counted(StatusDraft) {
		t.Error("draft bills must not count against balances")
	}
	if !Counted(StatusCredited) || !Counted(StatusPaid) {
		t.Error("credited and paid bills must count against balances")
	}
}
