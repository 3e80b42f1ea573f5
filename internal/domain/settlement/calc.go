package settlement

import (
	"github.com/shopspring/decimal"

	"siteledger/internal/domain/ledger"
)

// Plan is the arithmetic of one worker's settlement, computed before any
// row changes. Net may go negative when advances exceed the accrued
// salary; the payout floors at zero and the surplus advances are still
// recovered in full.
type Plan struct {
	WorkerID string
	Pending  []ledger.Entry
	Advances []ledger.Entry
	Gross    decimal.Decimal
	Advance  decimal.Decimal
	Net      decimal.Decimal
	Payout   decimal.Decimal
}

func BuildPlan(workerID string, pending, advances []ledger.Entry) Plan {
	p := Plan{
		WorkerID: workerID,
		Pending:  pending,
		Advances: advances,
		Gross:    decimal.Zero,
		Advance:  decimal.Zero,
	}
	for _, e := range pending {
		p.Gross = p.Gross.Add(e.Amount)
	}
	for _, a := range advances {
		p.Advance = p.Advance.Add(a.Amount)
	}
	p.Net = p.Gross.Sub(p.Advance)
	p.Payout = p.Net
	if p.Payout.IsNegative() {
		p.Payout = decimal.Zero
	}
	return p
}

func (p Plan) EntryIDs() []string {
	ids := make([]string, 0, len(p.Pending))
	for _, e := range p.Pending {
		ids = append(ids, e.ID)
	}
	return ids
}

// TotalPayout sums what a set of plans will draw from the allocation. Only
// positive nets draw money, so the bulk gate runs against this, not the
// summed nets.
func TotalPayout(plans []Plan) decimal.Decimal {
	total := decimal.Zero
	for _, p := range plans {
		total = total.Add(p.Payout)
	}
	return total
}
