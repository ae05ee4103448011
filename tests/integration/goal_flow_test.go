package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestGoalFlow_ContributionLifecycle(t *testing.T) {
	app := setupApp(t)
	token, _ := newUser(t)

	accountID := app.createAccount(t, token, "Savings", "1000.00")

	rec := app.request("POST", "/api/v1/goals",
		`{"name":"Emergency fund","target_amount":"300.00"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	goal := parseJSON(t, rec)["goal"].(map[string]interface{})
	goalID := goal["id"].(string)
	if goal["status"] != "not_started" {
		t.Errorf("expected not_started, got %v", goal["status"])
	}

	// First contribution moves the goal into progress
	rec = app.request("POST", "/api/v1/goals/"+goalID+"/contributions",
		fmt.Sprintf(`{"source_account_id":%q,"amount":"100.00"}`, accountID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/goals/"+goalID, "", token)
	goal = parseJSON(t, rec)["goal"].(map[string]interface{})
	if goal["status"] != "in_progress" {
		t.Errorf("expected in_progress, got %v", goal["status"])
	}
	if goal["current_amount"] != "100" {
		t.Errorf("expected current 100, got %v", goal["current_amount"])
	}

	if balance := app.accountBalance(t, token, accountID); balance != "900" {
		t.Errorf("expected balance 900, got %s", balance)
	}

	// Reaching the target completes the goal
	rec = app.request("POST", "/api/v1/goals/"+goalID+"/contributions",
		fmt.Sprintf(`{"source_account_id":%q,"amount":"200.00"}`, accountID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	contribution := parseJSON(t, rec)["contribution"].(map[string]interface{})
	contributionID := contribution["contribution_id"].(string)

	rec = app.request("GET", "/api/v1/goals/"+goalID, "", token)
	goal = parseJSON(t, rec)["goal"].(map[string]interface{})
	if goal["status"] != "completed" {
		t.Errorf("expected completed, got %v", goal["status"])
	}
	if goal["completed_at"] == nil {
		t.Error("expected completed_at set")
	}

	// Removing the completing contribution re-derives the status
	rec = app.request("DELETE", "/api/v1/contributions/"+contributionID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/goals/"+goalID, "", token)
	goal = parseJSON(t, rec)["goal"].(map[string]interface{})
	if goal["status"] != "in_progress" {
		t.Errorf("expected in_progress after removal, got %v", goal["status"])
	}
	if goal["current_amount"] != "100" {
		t.Errorf("expected current 100 after removal, got %v", goal["current_amount"])
	}
	if balance := app.accountBalance(t, token, accountID); balance != "900" {
		t.Errorf("expected balance 900 after refund, got %s", balance)
	}
}

func TestGoalFlow_PausedGoalRejectsFunds(t *testing.T) {
	app := setupApp(t)
	token, _ := newUser(t)

	accountID := app.createAccount(t, token, "Savings", "500.00")

	rec := app.request("POST", "/api/v1/goals",
		`{"name":"Holiday","target_amount":"1000.00"}`, token)
	goalID := parseJSON(t, rec)["goal"].(map[string]interface{})["id"].(string)

	rec = app.request("PUT", "/api/v1/goals/"+goalID, `{"status":"paused"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/goals/"+goalID+"/contributions",
		fmt.Sprintf(`{"source_account_id":%q,"amount":"50.00"}`, accountID), token)
	if rec.Code == http.StatusCreated {
		t.Fatal("expected contribution to paused goal to fail")
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "GOAL_NOT_ACCEPTING_FUNDS" {
		t.Errorf("expected GOAL_NOT_ACCEPTING_FUNDS, got %v", errObj["code"])
	}

	if balance := app.accountBalance(t, token, accountID); balance != "500" {
		t.Errorf("expected balance untouched at 500, got %s", balance)
	}
}

func TestGoalFlow_DeleteGoalRefunds(t *testing.T) {
	app := setupApp(t)
	token, _ := newUser(t)

	accountID := app.createAccount(t, token, "Savings", "400.00")

	rec := app.request("POST", "/api/v1/goals",
		`{"name":"Bike","target_amount":"600.00"}`, token)
	goalID := parseJSON(t, rec)["goal"].(map[string]interface{})["id"].(string)

	rec = app.request("POST", "/api/v1/goals/"+goalID+"/contributions",
		fmt.Sprintf(`{"source_account_id":%q,"amount":"150.00"}`, accountID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("DELETE", "/api/v1/goals/"+goalID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if balance := app.accountBalance(t, token, accountID); balance != "400" {
		t.Errorf("expected balance refunded to 400, got %s", balance)
	}

	rec = app.request("GET", "/api/v1/goals/"+goalID, "", token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for deleted goal, got %d", rec.Code)
	}
}
