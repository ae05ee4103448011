package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestBudgetFlow_SpentTracksLedger(t *testing.T) {
	app := setupApp(t)
	token, _ := newUser(t)

	accountID := app.createAccount(t, token, "Checking", "1000.00")
	categoryID := app.createCategory(t, token, "Groceries", "expense")

	// Month budget of 500 for the category
	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"name":"Groceries","amount":"500.00","period":"month","category_id":%q}`, categoryID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	budget := parseJSON(t, rec)["budget"].(map[string]interface{})
	budgetID := budget["id"].(string)

	// An expense inside the window raises spent
	rec = app.request("POST", "/api/v1/transactions",
		fmt.Sprintf(`{"account_id":%q,"category_id":%q,"type":"expense","amount":"350.00"}`,
			accountID, categoryID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	txID := parseJSON(t, rec)["transaction"].(map[string]interface{})["id"].(string)

	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/progress", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	progress := parseJSON(t, rec)["progress"].(map[string]interface{})
	if progress["spent"] != "350" {
		t.Errorf("expected spent 350, got %v", progress["spent"])
	}
	if progress["remaining"] != "150" {
		t.Errorf("expected remaining 150, got %v", progress["remaining"])
	}

	// Shrinking the expense lowers spent by the difference
	rec = app.request("PUT", "/api/v1/transactions/"+txID, `{"amount":"250.00"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/progress", "", token)
	progress = parseJSON(t, rec)["progress"].(map[string]interface{})
	if progress["spent"] != "250" {
		t.Errorf("expected spent 250 after edit, got %v", progress["spent"])
	}

	// A full recompute from the ledger lands on the same value
	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/recompute", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	recomputed := parseJSON(t, rec)["budget"].(map[string]interface{})
	if recomputed["spent"] != "250" {
		t.Errorf("expected recomputed spent 250, got %v", recomputed["spent"])
	}
}

func TestBudgetFlow_AlertOnThreshold(t *testing.T) {
	app := setupApp(t)
	token, _ := newUser(t)

	accountID := app.createAccount(t, token, "Checking", "1000.00")
	categoryID := app.createCategory(t, token, "Dining", "expense")

	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"name":"Dining","amount":"100.00","period":"month","category_id":%q}`, categoryID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	budgetID := parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)

	// 85% of the ceiling crosses the default 80% threshold
	rec = app.request("POST", "/api/v1/transactions",
		fmt.Sprintf(`{"account_id":%q,"category_id":%q,"type":"expense","amount":"85.00"}`,
			accountID, categoryID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/alerts", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	alerts := result["data"].([]interface{})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	alert := alerts[0].(map[string]interface{})
	if alert["alert_type"] != "threshold" {
		t.Errorf("expected threshold alert, got %v", alert["alert_type"])
	}
}

func TestBudgetFlow_Rollover(t *testing.T) {
	app := setupApp(t)
	token, _ := newUser(t)

	accountID := app.createAccount(t, token, "Checking", "1000.00")
	categoryID := app.createCategory(t, token, "Groceries", "expense")

	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"name":"Rolling","amount":"500.00","period":"month","category_id":%q,"rollover_enabled":true}`,
			categoryID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	budgetID := parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)

	rec = app.request("POST", "/api/v1/transactions",
		fmt.Sprintf(`{"account_id":%q,"category_id":%q,"type":"expense","amount":"300.00"}`,
			accountID, categoryID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/rollover", "", token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	successor := parseJSON(t, rec)["budget"].(map[string]interface{})
	if successor["amount"] != "700" {
		t.Errorf("expected successor ceiling 700, got %v", successor["amount"])
	}

	// The predecessor is completed and cannot roll again
	rec = app.request("GET", "/api/v1/budgets/"+budgetID, "", token)
	original := parseJSON(t, rec)["budget"].(map[string]interface{})
	if original["status"] != "completed" {
		t.Errorf("expected predecessor completed, got %v", original["status"])
	}

	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/rollover", "", token)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on second rollover, got %d", rec.Code)
	}
}
