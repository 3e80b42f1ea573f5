package allocation

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusPending, StatusApproved},
		{StatusPending, StatusRejected},
		{StatusPending, StatusDisbursed},
		{StatusApproved, StatusDisbursed},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to string }{
		{StatusApproved, StatusRejected},
		{StatusApproved, StatusPending},
		{StatusRejected, StatusApproved},
		{StatusRejected, StatusDisbursed},
		{StatusDisbursed, StatusApproved},
		{StatusDisbursed, StatusRejected},
		{StatusDisbursed, StatusPending},
		{StatusPending, StatusPending},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be refused", tc.from, tc.to)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusPending, StatusApproved, StatusRejected, StatusDisbursed} {
		if !ValidStatus(status) {
			t.Errorf("expected %q to be valid", status)
		}
	}
	if ValidStatus("paid") || ValidStatus("") {
		t.Error("unexpected status accepted")
	}
}
