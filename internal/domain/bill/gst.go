package bill

import "github.com/shopspring/decimal"

// ComputeGST derives tax and total from a taxable amount and a percentage
// rate, rounding the tax to two decimals before totalling so the stored
// figures always add up exactly.
func ComputeGST(taxable, rate decimal.Decimal) (gst, total decimal.Decimal) {
	gst = taxable.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	total = taxable.Add(gst)
	return gst, total
}
