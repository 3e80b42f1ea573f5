package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type walletBalance struct {
	UserID       string          `json:"userId"`
	Received     decimal.Decimal `json:"received"`
	Expenses     decimal.Decimal `json:"expenses"`
	Bills        decimal.Decimal `json:"bills"`
	LedgerOut    decimal.Decimal `json:"ledgerOut"`
	SubAllocated decimal.Decimal `json:"subAllocated"`
	Spent        decimal.Decimal `json:"spent"`
	Balance      decimal.Decimal `json:"balance"`
}

func getWalletBalance(t *testing.T, client *http.Client, baseURL, token, userID string) walletBalance {
	t.Helper()
	status, env := doJSON(t, client, http.MethodGet, baseURL+"/api/v1/wallet/"+userID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("wallet balance failed: status %d, error %+v", status, env.Error)
	}
	var balance walletBalance
	if err := json.Unmarshal(env.Data, &balance); err != nil {
		t.Fatalf("decode wallet balance: %v", err)
	}
	return balance
}

// Every rupee a wallet reports must trace back to source rows: disbursed
// inflows on one side, expenses, credited bills, ledger outflows, and
// sub-allocations on the other. Pending salary accruals and allocations a
// user makes to themselves move nothing.
func TestWalletBalanceReconciliation(t *testing.T) {
	ts, client, token := startApp(t)

	stamp := time.Now().UnixNano()
	supEmail := fmt.Sprintf("sup-wallet-%d@test.local", stamp)
	supervisorID := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Supervisor", "email": supEmail,
		"password": "Password1!", "role": 3,
	})
	workerID := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Worker", "email": fmt.Sprintf("wrk-wallet-%d@test.local", stamp),
		"password": "Password1!", "role": 4, "parentId": supervisorID, "dailyWage": "1000",
	})
	siteID := createSite(t, client, ts.URL, token, fmt.Sprintf("Wallet Site %d", stamp))

	allocationID := createPoolAllocation(t, client, ts.URL, token, supervisorID, "10000")
	supToken := login(t, client, ts.URL, supEmail, "Password1!")

	mustPost(t, client, ts.URL+"/api/v1/expenses", supToken, map[string]any{
		"siteId": siteID, "allocationId": allocationID, "category": "material",
		"amount": "1500", "expenseDate": "2026-08-01",
	})

	// Taxable 1000 at the default 18% rate: the credited total is 1180.
	billID := createResource(t, client, ts.URL+"/api/v1/bills", supToken, map[string]any{
		"siteId": siteID, "allocationId": allocationID, "vendorName": "Steel Traders",
		"billNumber": fmt.Sprintf("B-%d", stamp), "billDate": "2026-08-02", "taxableAmount": "1000",
	})
	mustPost(t, client, ts.URL+"/api/v1/bills/"+billID+"/credit", supToken, nil)

	mustPost(t, client, ts.URL+"/api/v1/ledger/advances", supToken, map[string]any{
		"workerId": workerID, "amount": "400", "allocationId": allocationID, "entryDate": "2026-08-03",
	})

	// Accrued wages stay out of the wallet until settlement pays them.
	for _, day := range []string{"2026-08-01", "2026-08-02"} {
		mustPost(t, client, ts.URL+"/api/v1/attendance", token, map[string]any{
			"workerId": workerID, "siteId": siteID, "date": day, "dayUnits": 1,
		})
	}

	subAllocationID := createResource(t, client, ts.URL+"/api/v1/allocations", supToken, map[string]any{
		"toUserId": workerID, "amount": "2000", "purpose": "daily spends",
	})
	mustPost(t, client, ts.URL+"/api/v1/allocations/"+subAllocationID+"/disburse", token, nil)

	balance := getWalletBalance(t, client, ts.URL, token, supervisorID)
	if !balance.Received.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected received 10000, got %s", balance.Received)
	}
	if !balance.Expenses.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected expenses 1500, got %s", balance.Expenses)
	}
	if !balance.Bills.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("expected bills 1180, got %s", balance.Bills)
	}
	if !balance.LedgerOut.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected ledger outflow 400, got %s", balance.LedgerOut)
	}
	if !balance.SubAllocated.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected sub-allocated 2000, got %s", balance.SubAllocated)
	}
	if !balance.Spent.Equal(decimal.NewFromInt(5080)) {
		t.Fatalf("expected spent 5080, got %s", balance.Spent)
	}
	if !balance.Balance.Equal(decimal.NewFromInt(4900)) {
		t.Fatalf("expected balance 4900, got %s", balance.Balance)
	}

	// A disbursed allocation from the supervisor to themselves is neither
	// an inflow nor an outflow.
	selfAllocationID := createResource(t, client, ts.URL+"/api/v1/allocations", supToken, map[string]any{
		"toUserId": supervisorID, "amount": "3000", "purpose": "rotating float",
	})
	mustPost(t, client, ts.URL+"/api/v1/allocations/"+selfAllocationID+"/disburse", token, nil)

	after := getWalletBalance(t, client, ts.URL, token, supervisorID)
	if !after.Received.Equal(balance.Received) {
		t.Fatalf("self-allocation moved received: %s -> %s", balance.Received, after.Received)
	}
	if !after.SubAllocated.Equal(balance.SubAllocated) {
		t.Fatalf("self-allocation moved sub-allocated: %s -> %s", balance.SubAllocated, after.SubAllocated)
	}
	if !after.Balance.Equal(balance.Balance) {
		t.Fatalf("self-allocation moved the balance: %s -> %s", balance.Balance, after.Balance)
	}
}

// Deleting a refund debit can leave an allocation overdrawn. A settlement
// whose net payout floors at zero still has to refuse that allocation
// rather than settle against negative funds.
func TestSettlementRefusedWhenAllocationOverdrawn(t *testing.T) {
	ts, client, token := startApp(t)

	stamp := time.Now().UnixNano()
	supervisorID := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Supervisor", "email": fmt.Sprintf("sup-over-%d@test.local", stamp),
		"password": "Password1!", "role": 3,
	})
	workerID := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Worker", "email": fmt.Sprintf("wrk-over-%d@test.local", stamp),
		"password": "Password1!", "role": 4, "parentId": supervisorID, "dailyWage": "1000",
	})
	siteID := createSite(t, client, ts.URL, token, fmt.Sprintf("Over Site %d", stamp))
	allocationID := createPoolAllocation(t, client, ts.URL, token, supervisorID, "1000")

	debitID := createResource(t, client, ts.URL+"/api/v1/ledger/entries", token, map[string]any{
		"workerId": workerID, "type": "debit", "category": "other", "amount": "500",
		"allocationId": allocationID, "entryDate": "2026-08-01", "description": "material returned",
	})
	mustPost(t, client, ts.URL+"/api/v1/ledger/advances", token, map[string]any{
		"workerId": workerID, "amount": "1400", "allocationId": allocationID, "entryDate": "2026-08-02",
	})

	// With the refund gone the allocation has paid out 1400 against 1000.
	status, env := doJSON(t, client, http.MethodDelete, ts.URL+"/api/v1/ledger/entries/"+debitID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete debit failed: status %d, error %+v", status, env.Error)
	}
	remaining := getAllocationBalance(t, client, ts.URL, token, allocationID)
	if !remaining.Remaining.Equal(decimal.NewFromInt(-400)) {
		t.Fatalf("expected allocation remaining -400, got %s", remaining.Remaining)
	}

	mustPost(t, client, ts.URL+"/api/v1/attendance", token, map[string]any{
		"workerId": workerID, "siteId": siteID, "date": "2026-08-03", "dayUnits": 1,
	})

	// Gross 1000 against a 1400 advance: nothing to pay out, but the
	// overdrawn allocation still refuses the settlement.
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/settlements/pay", token, map[string]any{
		"workerId": workerID, "allocationId": allocationID,
	})
	if status != http.StatusUnprocessableEntity || env.Error == nil || env.Error.Code != "insufficient_funds" {
		t.Fatalf("expected insufficient_funds, got status %d error %+v", status, env.Error)
	}
	var details struct {
		Available string `json:"available"`
		Requested string `json:"requested"`
	}
	if err := json.Unmarshal(env.Error.Details, &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if details.Available != "-400.00" || details.Requested != "0.00" {
		t.Fatalf("unexpected amounts in details: %+v", details)
	}

	if pending := listEntries(t, client, ts.URL, token, "/api/v1/ledger/workers/"+workerID+"/pending-salary"); len(pending) != 1 {
		t.Fatalf("expected pending entry untouched after refused settlement, got %d", len(pending))
	}
	if adv := listEntries(t, client, ts.URL, token, "/api/v1/ledger/workers/"+workerID+"/advances"); len(adv) != 1 {
		t.Fatalf("expected advance still unpaid after refused settlement, got %d", len(adv))
	}
}
