package allocation

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusDisbursed = "disbursed"
)

// CanTransition encodes the allocation lifecycle. Rejected and disbursed are
// terminal. The developer shortcut pending→disbursed is a legal edge here;
// the service decides who may take it.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected || to == StatusDisbursed
	case StatusApproved:
		return to == StatusDisbursed
	default:
		return false
	}
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusDisbursed:
		return true
	}
	return false
}
