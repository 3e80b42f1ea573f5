package bill

const (
	StatusDraft    = "draft"
	StatusCredited = "credited"
	StatusPaid     = "paid"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusCredited, StatusPaid:
		return true
	}
	return false
}

// CanTransition permits draft→credited, draft→paid, credited→paid.
// Paid is terminal and nothing moves backwards out of the wallet math.
func CanTransition(from, to string) bool {
	switch from {
	case StatusDraft:
		return to == StatusCredited || to == StatusPaid
	case StatusCredited:
		return to == StatusPaid
	}
	return false
}

// Counted reports whether a bill in this status consumes wallet and
// allocation balance.
func Counted(status string) bool {
	return status == StatusCredited || status == StatusPaid
}
