package settlement

import (
	"testing"

	"github.com/shopspring/decimal"

	"siteledger/internal/domain/ledger"
)

func d(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	dec, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", v, err)
	}
	return dec
}

func credits(t *testing.T, category string, amounts ...string) []ledger.Entry {
	t.Helper()
	entries := make([]ledger.Entry, 0, len(amounts))
	for i, a := range amounts {
		entries = append(entries, ledger.Entry{
			ID:       string(rune('a'+i)) + "-" + category,
			Type:     ledger.TypeCredit,
			Category: category,
			Amount:   d(t, a),
		})
	}
	return entries
}

func TestBuildPlanNetsAdvancesAgainstGross(t *testing.T) {
	pending := credits(t, ledger.CategoryPendingSalary, "5000", "5000", "5000")
	advances := credits(t, ledger.CategoryAdvance, "4000")

	plan := BuildPlan("w1", pending, advances)

	if !plan.Gross.Equal(d(t, "15000")) {
		t.Fatalf("gross = %s, want 15000", plan.Gross)
	}
	if !plan.Advance.Equal(d(t, "4000")) {
		t.Fatalf("advance total = %s, want 4000", plan.Advance)
	}
	if !plan.Net.Equal(d(t, "11000")) {
		t.Fatalf("net = %s, want 11000", plan.Net)
	}
	if !plan.Payout.Equal(d(t, "11000")) {
		t.Fatalf("payout = %s, want 11000", plan.Payout)
	}
	if got := plan.EntryIDs(); len(got) != 3 {
		t.Fatalf("entry ids = %v, want 3", got)
	}
}

func TestBuildPlanFloorsPayoutAtZero(t *testing.T) {
	pending := credits(t, ledger.CategoryPendingSalary, "2000")
	advances := credits(t, ledger.CategoryAdvance, "1500", "1500")

	plan := BuildPlan("w1", pending, advances)

	if !plan.Net.Equal(d(t, "-1000")) {
		t.Fatalf("net = %s, want -1000", plan.Net)
	}
	if !plan.Payout.IsZero() {
		t.Fatalf("payout = %s, want 0", plan.Payout)
	}
}

func TestBuildPlanWithoutAdvances(t *testing.T) {
	plan := BuildPlan("w1", credits(t, ledger.CategoryPendingSalary, "800", "200"), nil)

	if !plan.Payout.Equal(d(t, "1000")) {
		t.Fatalf("payout = %s, want 1000", plan.Payout)
	}
	if plan.Advance.Sign() != 0 {
		t.Fatalf("advance total = %s, want 0", plan.Advance)
	}
}

func TestTotalPayoutIgnoresNegativeNets(t *testing.T) {
	plans := []Plan{
		BuildPlan("w1", credits(t, ledger.CategoryPendingSalary, "5000"), nil),
		BuildPlan("w2", credits(t, ledger.CategoryPendingSalary, "4000"), credits(t, ledger.CategoryAdvance, "1000")),
		BuildPlan("w3", credits(t, ledger.CategoryPendingSalary, "1000"), credits(t, ledger.CategoryAdvance, "2500")),
	}

	if total := TotalPayout(plans); !total.Equal(d(t, "8000")) {
		t.Fatalf("total payout = %s, want 8000", total)
	}
}
