package ledger

const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

const (
	CategorySalary          = "salary"
	CategoryPendingSalary   = "pending_salary"
	CategoryAdvance         = "advance"
	CategoryDeduction       = "deduction"
	CategoryBonus           = "bonus"
	CategoryContractPayment = "contract_payment"
	CategoryReimbursement   = "reimbursement"
	CategoryOther           = "other"
)

func ValidCategory(category string) bool {
	switch category {
	case CategorySalary, CategoryPendingSalary, CategoryAdvance, CategoryDeduction,
		CategoryBonus, CategoryContractPayment, CategoryReimbursement, CategoryOther:
		return true
	}
	return false
}

// ManualCategory lists what may be written through the ledger API directly.
// pending_salary accrues from attendance, deductions are settlement
// artifacts, and contract payments go through the contract service.
func ManualCategory(category string) bool {
	switch category {
	case CategorySalary, CategoryAdvance, CategoryBonus, CategoryReimbursement, CategoryOther:
		return true
	}
	return false
}
