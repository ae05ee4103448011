package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestTransferFlow_SuccessfulTransfer(t *testing.T) {
	app := setupApp(t)
	token, _ := newUser(t)

	fromID := app.createAccount(t, token, "Account A", "200.00")
	toID := app.createAccount(t, token, "Account B", "50.00")

	// Move 75 from A to B
	rec := app.request("POST", "/api/v1/transactions/transfer",
		fmt.Sprintf(`{"from_account_id":%q,"to_account_id":%q,"amount":"75.00","notes":"rent share"}`,
			fromID, toID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	transfer := parseJSON(t, rec)["transfer"].(map[string]interface{})
	debitID := transfer["debit_transaction_id"].(string)
	creditID := transfer["credit_transaction_id"].(string)

	if balance := app.accountBalance(t, token, fromID); balance != "125" {
		t.Errorf("expected source balance 125, got %s", balance)
	}
	if balance := app.accountBalance(t, token, toID); balance != "125" {
		t.Errorf("expected destination balance 125, got %s", balance)
	}

	// Deleting one leg removes the pair and restores both balances
	rec = app.request("DELETE", "/api/v1/transactions/"+debitID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/transactions/"+creditID, "", token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected counterpart leg gone, got %d", rec.Code)
	}

	if balance := app.accountBalance(t, token, fromID); balance != "200" {
		t.Errorf("expected source balance 200 after delete, got %s", balance)
	}
	if balance := app.accountBalance(t, token, toID); balance != "50" {
		t.Errorf("expected destination balance 50 after delete, got %s", balance)
	}
}

func TestTransferFlow_SameAccountRejected(t *testing.T) {
	app := setupApp(t)
	token, _ := newUser(t)

	accountID := app.createAccount(t, token, "Only Account", "100.00")

	rec := app.request("POST", "/api/v1/transactions/transfer",
		fmt.Sprintf(`{"from_account_id":%q,"to_account_id":%q,"amount":"10.00"}`,
			accountID, accountID), token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "SELF_TRANSFER" {
		t.Errorf("expected SELF_TRANSFER, got %v", errObj["code"])
	}
}

func TestTransferFlow_InsufficientFunds(t *testing.T) {
	app := setupApp(t)
	token, _ := newUser(t)

	fromID := app.createAccount(t, token, "Poor", "20.00")
	toID := app.createAccount(t, token, "Rich", "0.00")

	rec := app.request("POST", "/api/v1/transactions/transfer",
		fmt.Sprintf(`{"from_account_id":%q,"to_account_id":%q,"amount":"50.00"}`,
			fromID, toID), token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "INSUFFICIENT_FUNDS" {
		t.Errorf("expected INSUFFICIENT_FUNDS, got %v", errObj["code"])
	}

	// Nothing moved
	if balance := app.accountBalance(t, token, fromID); balance != "20" {
		t.Errorf("expected source untouched at 20, got %s", balance)
	}
	if balance := app.accountBalance(t, token, toID); balance != "0" {
		t.Errorf("expected destination untouched at 0, got %s", balance)
	}
}
