package wallet

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestPositionMath(t *testing.T) {
	pos := Position{
		Allocated: d(20000),
		Expenses:  d(3000),
		Bills:     d(2000),
		Ledger:    d(4000),
	}
	if got := pos.Utilized(); !got.Equal(d(9000)) {
		t.Fatalf("expected utilized 9000, got %s", got)
	}
	if got := pos.Remaining(); !got.Equal(d(11000)) {
		t.Fatalf("expected remaining 11000, got %s", got)
	}
}

func TestPositionRemainingCanGoNegative(t *testing.T) {
	pos := Position{Allocated: d(100), Ledger: d(150)}
	if got := pos.Remaining(); !got.Equal(d(-50)) {
		t.Fatalf("expected remaining -50, got %s", got)
	}
}

func TestAvailabilityFailsClosed(t *testing.T) {
	tests := []struct {
		name      string
		pos       Position
		err       error
		amount    decimal.Decimal
		available bool
		message   string
	}{
		{
			name:    "missing allocation",
			err:     ErrAllocationNotFound,
			amount:  d(100),
			message: MsgAllocationNotFound,
		},
		{
			name:    "pending allocation",
			pos:     Position{Status: "pending", Allocated: d(1000)},
			amount:  d(100),
			message: MsgNotDisbursed,
		},
		{
			name:    "approved but not disbursed",
			pos:     Position{Status: "approved", Allocated: d(1000)},
			amount:  d(100),
			message: MsgNotDisbursed,
		},
		{
			name:    "insufficient remaining",
			pos:     Position{Status: "disbursed", Allocated: d(5000), Ledger: d(4500)},
			amount:  d(1000),
			message: MsgInsufficientFunds,
		},
		{
			name:      "exactly enough",
			pos:       Position{Status: "disbursed", Allocated: d(5000), Ledger: d(4000)},
			amount:    d(1000),
			available: true,
			message:   MsgAvailable,
		},
		{
			name:      "zero amount against disbursed allocation",
			pos:       Position{Status: "disbursed", Allocated: d(5000), Ledger: d(5000)},
			amount:    decimal.Zero,
			available: true,
			message:   MsgAvailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			avail, err := availabilityFrom(tc.pos, tc.err, tc.amount)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if avail.Available != tc.available {
				t.Fatalf("expected available=%v, got %v", tc.available, avail.Available)
			}
			if avail.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, avail.Message)
			}
		})
	}
}
