package notifications

const (
	TypeAllocationPending   = "allocation_pending"
	TypeAllocationApproved  = "allocation_approved"
	TypeAllocationRejected  = "allocation_rejected"
	TypeAllocationDisbursed = "allocation_disbursed"
	TypeSalaryPaid          = "salary_paid"
	TypeAdvanceRecorded     = "advance_recorded"
	TypeBillCredited        = "bill_credited"
	TypeContractClosed      = "contract_closed"
)
