package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"siteledger/internal/app/server"
	"siteledger/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type settlementSummary struct {
	WorkerID         string          `json:"workerId"`
	Gross            decimal.Decimal `json:"gross"`
	Advances         decimal.Decimal `json:"advances"`
	NetPaid          decimal.Decimal `json:"netPaid"`
	EntriesPaid      int             `json:"entriesPaid"`
	AdvancesDeducted int             `json:"advancesDeducted"`
	SalaryEntryID    *string         `json:"salaryEntryId"`
}

type bulkSummary struct {
	Settled     []settlementSummary `json:"settled"`
	Skipped     []struct {
		WorkerID string `json:"workerId"`
		Reason   string `json:"reason"`
	} `json:"skipped"`
	WorkersPaid int             `json:"workersPaid"`
	TotalGross  decimal.Decimal `json:"totalGross"`
	TotalNet    decimal.Decimal `json:"totalNet"`
}

func startApp(t *testing.T) (*httptest.Server, *http.Client, string) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		DatabaseURL:       dbURL,
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		Environment:       "test",
		SeedOrgName:       "Test Org",
		SeedOwnerName:     "Owner",
		SeedOwnerEmail:    "owner@test.local",
		SeedOwnerPassword: "ChangeMe123!",
		EmailFrom:         "no-reply@test.local",
		RunMigrations:     true,
		RunSeed:           true,
		MigrationsDir:     "../../../../migrations",
		MaxBodyBytes:      1048576,
		RateLimitPerMin:   1000,
		DefaultGSTRate:    "18",
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)

	token := login(t, ts.Client(), ts.URL, cfg.SeedOwnerEmail, cfg.SeedOwnerPassword)
	return ts, ts.Client(), token
}

func TestSalarySettlementJourney(t *testing.T) {
	ts, client, token := startApp(t)

	stamp := time.Now().UnixNano()
	supervisorID := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Supervisor", "email": fmt.Sprintf("sup-%d@test.local", stamp),
		"password": "Password1!", "role": 3,
	})
	workerID := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Worker", "email": fmt.Sprintf("wrk-%d@test.local", stamp),
		"password": "Password1!", "role": 4, "parentId": supervisorID, "dailyWage": "1000",
	})
	siteID := createSite(t, client, ts.URL, token, fmt.Sprintf("Site %d", stamp))

	mustPost(t, client, ts.URL+"/api/v1/capital/contributions", token, map[string]any{
		"partnerName": "Partner A", "amount": "100000", "receivedOn": "2026-08-01",
	})

	allocationID := createPoolAllocation(t, client, ts.URL, token, supervisorID, "20000")

	for _, day := range []string{"2026-08-01", "2026-08-02", "2026-08-03"} {
		mustPost(t, client, ts.URL+"/api/v1/attendance", token, map[string]any{
			"workerId": workerID, "siteId": siteID, "date": day, "dayUnits": 1,
		})
	}

	pending := listEntries(t, client, ts.URL, token, "/api/v1/ledger/workers/"+workerID+"/pending-salary")
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending salary entries, got %d", len(pending))
	}

	mustPost(t, client, ts.URL+"/api/v1/ledger/advances", token, map[string]any{
		"workerId": workerID, "amount": "400", "allocationId": allocationID, "entryDate": "2026-08-02",
	})

	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/settlements/pay", token, map[string]any{
		"workerId": workerID, "allocationId": allocationID,
	})
	if status != http.StatusOK {
		t.Fatalf("pay salary failed: status %d, error %+v", status, env.Error)
	}
	var summary settlementSummary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if !summary.Gross.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected gross 3000, got %s", summary.Gross)
	}
	if !summary.Advances.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected advances 400, got %s", summary.Advances)
	}
	if !summary.NetPaid.Equal(decimal.NewFromInt(2600)) {
		t.Fatalf("expected net 2600, got %s", summary.NetPaid)
	}
	if summary.EntriesPaid != 3 || summary.AdvancesDeducted != 1 || summary.SalaryEntryID == nil {
		t.Fatalf("unexpected summary shape: %+v", summary)
	}

	if left := listEntries(t, client, ts.URL, token, "/api/v1/ledger/workers/"+workerID+"/pending-salary"); len(left) != 0 {
		t.Fatalf("expected no pending entries after settlement, got %d", len(left))
	}
	if adv := listEntries(t, client, ts.URL, token, "/api/v1/ledger/workers/"+workerID+"/advances"); len(adv) != 0 {
		t.Fatalf("expected advance to be settled, got %d unpaid", len(adv))
	}

	// Paying again with nothing pending must refuse, not double-pay.
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/settlements/pay", token, map[string]any{
		"workerId": workerID, "allocationId": allocationID,
	})
	if status != http.StatusUnprocessableEntity || env.Error == nil || env.Error.Code != "no_pending_entries" {
		t.Fatalf("expected no_pending_entries, got status %d error %+v", status, env.Error)
	}

	// The allocation paid out 400 advance + 2600 salary.
	balance := getAllocationBalance(t, client, ts.URL, token, allocationID)
	if !balance.Remaining.Equal(decimal.NewFromInt(17000)) {
		t.Fatalf("expected allocation remaining 17000, got %s", balance.Remaining)
	}
}

func TestSettlementInsufficientFundsLeavesLedgerUntouched(t *testing.T) {
	ts, client, token := startApp(t)

	stamp := time.Now().UnixNano()
	supervisorID := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Supervisor", "email": fmt.Sprintf("sup2-%d@test.local", stamp),
		"password": "Password1!", "role": 3,
	})
	workerID := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Worker", "email": fmt.Sprintf("wrk2-%d@test.local", stamp),
		"password": "Password1!", "role": 4, "parentId": supervisorID, "dailyWage": "1000",
	})
	siteID := createSite(t, client, ts.URL, token, fmt.Sprintf("Site2 %d", stamp))
	allocationID := createPoolAllocation(t, client, ts.URL, token, supervisorID, "500")

	for _, day := range []string{"2026-08-01", "2026-08-02"} {
		mustPost(t, client, ts.URL+"/api/v1/attendance", token, map[string]any{
			"workerId": workerID, "siteId": siteID, "date": day, "dayUnits": 1,
		})
	}

	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/settlements/pay", token, map[string]any{
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
	if details.Available != "500.00" || details.Requested != "2000.00" {
		t.Fatalf("unexpected amounts in details: %+v", details)
	}

	if pending := listEntries(t, client, ts.URL, token, "/api/v1/ledger/workers/"+workerID+"/pending-salary"); len(pending) != 2 {
		t.Fatalf("expected pending entries untouched after failed settlement, got %d", len(pending))
	}
}

func TestBulkSettlementAllOrNothing(t *testing.T) {
	ts, client, token := startApp(t)

	stamp := time.Now().UnixNano()
	supervisorID := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Supervisor", "email": fmt.Sprintf("sup3-%d@test.local", stamp),
		"password": "Password1!", "role": 3,
	})
	workerA := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Worker A", "email": fmt.Sprintf("wrka-%d@test.local", stamp),
		"password": "Password1!", "role": 4, "parentId": supervisorID, "dailyWage": "1000",
	})
	workerB := createUser(t, client, ts.URL, token, map[string]any{
		"name": "Worker B", "email": fmt.Sprintf("wrkb-%d@test.local", stamp),
		"password": "Password1!", "role": 4, "parentId": supervisorID, "dailyWage": "1000",
	})
	siteID := createSite(t, client, ts.URL, token, fmt.Sprintf("Site3 %d", stamp))

	for _, day := range []string{"2026-08-01", "2026-08-02"} {
		mustPost(t, client, ts.URL+"/api/v1/attendance", token, map[string]any{
			"workerId": workerA, "siteId": siteID, "date": day, "dayUnits": 1,
		})
	}
	mustPost(t, client, ts.URL+"/api/v1/attendance", token, map[string]any{
		"workerId": workerB, "siteId": siteID, "date": "2026-08-01", "dayUnits": 1,
	})

	// 2000 + 1000 due against 2500 available: nobody gets paid.
	smallAllocation := createPoolAllocation(t, client, ts.URL, token, supervisorID, "2500")
	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/settlements/bulk-pay", token, map[string]any{
		"workerIds": []string{workerA, workerB}, "allocationId": smallAllocation,
	})
	if status != http.StatusUnprocessableEntity || env.Error == nil || env.Error.Code != "insufficient_funds" {
		t.Fatalf("expected bulk insufficient_funds, got status %d error %+v", status, env.Error)
	}
	if pending := listEntries(t, client, ts.URL, token, "/api/v1/ledger/workers/"+workerA+"/pending-salary"); len(pending) != 2 {
		t.Fatalf("worker A pending entries must survive the rollback, got %d", len(pending))
	}
	if pending := listEntries(t, client, ts.URL, token, "/api/v1/ledger/workers/"+workerB+"/pending-salary"); len(pending) != 1 {
		t.Fatalf("worker B pending entries must survive the rollback, got %d", len(pending))
	}

	bigAllocation := createPoolAllocation(t, client, ts.URL, token, supervisorID, "10000")
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/settlements/bulk-pay", token, map[string]any{
		"workerIds": []string{workerA, workerB, supervisorID, "00000000-0000-0000-0000-000000000000"},
		"allocationId": bigAllocation,
	})
	if status != http.StatusOK {
		t.Fatalf("bulk pay failed: status %d, error %+v", status, env.Error)
	}
	var result bulkSummary
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode bulk summary: %v", err)
	}
	if result.WorkersPaid != 2 {
		t.Fatalf("expected 2 workers paid, got %d", result.WorkersPaid)
	}
	if !result.TotalNet.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected total net 3000, got %s", result.TotalNet)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("expected supervisor and unknown id to be skipped, got %+v", result.Skipped)
	}
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	status, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email": email, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login failed: status %d, error %+v", status, env.Error)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("no token in login response: %v", err)
	}
	return data.Token
}

func createUser(t *testing.T, client *http.Client, baseURL, token string, payload map[string]any) string {
	t.Helper()
	return createResource(t, client, baseURL+"/api/v1/users", token, payload)
}

func createSite(t *testing.T, client *http.Client, baseURL, token, name string) string {
	t.Helper()
	return createResource(t, client, baseURL+"/api/v1/sites", token, map[string]any{"name": name})
}

func createPoolAllocation(t *testing.T, client *http.Client, baseURL, token, toUserID, amount string) string {
	t.Helper()
	return createResource(t, client, baseURL+"/api/v1/allocations", token, map[string]any{
		"toUserId": toUserID, "amount": amount, "purpose": "site works", "fromPool": true,
	})
}

func createResource(t *testing.T, client *http.Client, url, token string, payload map[string]any) string {
	t.Helper()
	status, env := doJSON(t, client, http.MethodPost, url, token, payload)
	if status != http.StatusCreated && status != http.StatusOK {
		t.Fatalf("create %s failed: status %d, error %+v", url, status, env.Error)
	}
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.ID == "" {
		t.Fatalf("no id in create response from %s: %v", url, err)
	}
	return data.ID
}

func listEntries(t *testing.T, client *http.Client, baseURL, token, path string) []json.RawMessage {
	t.Helper()
	status, env := doJSON(t, client, http.MethodGet, baseURL+path, token, nil)
	if status != http.StatusOK {
		t.Fatalf("list %s failed: status %d, error %+v", path, status, env.Error)
	}
	var entries []json.RawMessage
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &entries); err != nil {
			t.Fatalf("decode list %s: %v", path, err)
		}
	}
	return entries
}

type allocationBalance struct {
	Allocated decimal.Decimal `json:"allocated"`
	Utilized  decimal.Decimal `json:"utilized"`
	Remaining decimal.Decimal `json:"remaining"`
}

func getAllocationBalance(t *testing.T, client *http.Client, baseURL, token, allocationID string) allocationBalance {
	t.Helper()
	status, env := doJSON(t, client, http.MethodGet, baseURL+"/api/v1/allocations/"+allocationID+"/balance", token, nil)
	if status != http.StatusOK {
		t.Fatalf("allocation balance failed: status %d, error %+v", status, env.Error)
	}
	var balance allocationBalance
	if err := json.Unmarshal(env.Data, &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	return balance
}

func mustPost(t *testing.T, client *http.Client, url, token string, payload map[string]any) {
	t.Helper()
	status, env := doJSON(t, client, http.MethodPost, url, token, payload)
	if status < 200 || status >= 300 {
		t.Fatalf("request failed: status %d, error %+v", status, env.Error)
	}
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, payload map[string]any) (int, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope from %s: %v (body %s)", url, err, raw)
		}
	}
	return resp.StatusCode, env
}
