package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Kennong09/budgetme-sub006/internal/errors"
	"github.com/Kennong09/budgetme-sub006/internal/models"
	"github.com/Kennong09/budgetme-sub006/internal/pagination"
	"github.com/Kennong09/budgetme-sub006/internal/services"
)

// --- mock goal service ---

type mockGoalService struct {
	createGoalFn           func(userID string, spec services.GoalSpec) (*models.Goal, error)
	getUserGoalsFn         func(userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.Goal], error)
	getGoalByIDFn          func(callerID, goalID string) (*models.Goal, error)
	updateGoalFn           func(userID, goalID string, fields services.GoalUpdateFields) (*models.Goal, error)
	deleteGoalFn           func(userID, goalID string) error
	contributeToGoalFn     func(callerID, goalID string, spec services.ContributionSpec) (*services.ContributionResult, error)
	removeContributionFn   func(callerID, contributionID string) error
	getGoalContributionsFn func(callerID, goalID string, page pagination.PageRequest) (*pagination.PageResponse[models.GoalContribution], error)
}

func (m *mockGoalService) CreateGoal(userID string, spec services.GoalSpec) (*models.Goal, error) {
	if m.createGoalFn != nil {
		return m.createGoalFn(userID, spec)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) GetUserGoals(userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.Goal], error) {
	if m.getUserGoalsFn != nil {
		return m.getUserGoalsFn(userID, page, status)
	}
	resp := pagination.NewPageResponse([]models.Goal{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockGoalService) GetGoalByID(callerID, goalID string) (*models.Goal, error) {
	if m.getGoalByIDFn != nil {
		return m.getGoalByIDFn(callerID, goalID)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) UpdateGoal(userID, goalID string, fields services.GoalUpdateFields) (*models.Goal, error) {
	if m.updateGoalFn != nil {
		return m.updateGoalFn(userID, goalID, fields)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) DeleteGoal(userID, goalID string) error {
	if m.deleteGoalFn != nil {
		return m.deleteGoalFn(userID, goalID)
	}
	return nil
}

func (m *mockGoalService) ContributeToGoal(callerID, goalID string, spec services.ContributionSpec) (*services.ContributionResult, error) {
	if m.contributeToGoalFn != nil {
		return m.contributeToGoalFn(callerID, goalID, spec)
	}
	return &services.ContributionResult{}, nil
}

func (m *mockGoalService) RemoveContribution(callerID, contributionID string) error {
	if m.removeContributionFn != nil {
		return m.removeContributionFn(callerID, contributionID)
	}
	return nil
}

func (m *mockGoalService) GetGoalContributions(callerID, goalID string, page pagination.PageRequest) (*pagination.PageResponse[models.GoalContribution], error) {
	if m.getGoalContributionsFn != nil {
		return m.getGoalContributionsFn(callerID, goalID, page)
	}
	resp := pagination.NewPageResponse([]models.GoalContribution{}, 1, 20, 0)
	return &resp, nil
}

// verify interface compliance
var _ services.GoalServicer = (*mockGoalService)(nil)

func setupGoalRouter(handler *GoalHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/goals", handler.CreateGoal)
	auth.GET("/goals", handler.GetGoals)
	auth.GET("/goals/:id", handler.GetGoal)
	auth.PUT("/goals/:id", handler.UpdateGoal)
	auth.DELETE("/goals/:id", handler.DeleteGoal)
	auth.POST("/goals/:id/contributions", handler.ContributeToGoal)
	auth.GET("/goals/:id/contributions", handler.GetGoalContributions)
	auth.DELETE("/contributions/:id", handler.RemoveContribution)
	return r
}

// --- tests ---

func TestGoalHandler_CreateGoal(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		goalSvc := &mockGoalService{
			createGoalFn: func(userID string, spec services.GoalSpec) (*models.Goal, error) {
				return &models.Goal{
					UserID:       userID,
					Name:         spec.Name,
					TargetAmount: spec.TargetAmount,
					Status:       models.GoalStatusNotStarted,
				}, nil
			},
		}
		handler := NewGoalHandler(goalSvc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals", `{"name":"Emergency fund","target_amount":"5000.00"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		goal := result["goal"].(map[string]interface{})
		if goal["status"] != "not_started" {
			t.Errorf("expected not_started, got %v", goal["status"])
		}
	})

	t.Run("returns 400 on missing target", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{}, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals", `{"name":"Emergency fund"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on malformed family id", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{}, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals",
			`{"name":"Family trip","target_amount":"2000.00","is_family_goal":true,"family_id":"not-a-uuid"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGoalHandler_ContributeToGoal(t *testing.T) {
	t.Run("returns 201 with contribution ids", func(t *testing.T) {
		goalSvc := &mockGoalService{
			contributeToGoalFn: func(_, _ string, spec services.ContributionSpec) (*services.ContributionResult, error) {
				return &services.ContributionResult{
					ContributionID: "contribution-id",
					TransactionID:  "transaction-id",
				}, nil
			},
		}
		handler := NewGoalHandler(goalSvc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testCategoryID+"/contributions",
			`{"source_account_id":"`+testAccountID+`","amount":"100.00"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		contribution := result["contribution"].(map[string]interface{})
		if contribution["contribution_id"] != "contribution-id" {
			t.Errorf("expected contribution id, got %v", contribution["contribution_id"])
		}
	})

	t.Run("returns 409 when goal not accepting funds", func(t *testing.T) {
		goalSvc := &mockGoalService{
			contributeToGoalFn: func(string, string, services.ContributionSpec) (*services.ContributionResult, error) {
				return nil, apperrors.ErrGoalNotAcceptingFunds
			},
		}
		handler := NewGoalHandler(goalSvc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testCategoryID+"/contributions",
			`{"source_account_id":"`+testAccountID+`","amount":"100.00"}`)

		if rec.Code != apperrors.ErrGoalNotAcceptingFunds.StatusCode {
			t.Fatalf("expected %d, got %d", apperrors.ErrGoalNotAcceptingFunds.StatusCode, rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "GOAL_NOT_ACCEPTING_FUNDS")
	})

	t.Run("returns 403 when share not permitted", func(t *testing.T) {
		goalSvc := &mockGoalService{
			contributeToGoalFn: func(string, string, services.ContributionSpec) (*services.ContributionResult, error) {
				return nil, apperrors.ErrForbidden
			},
		}
		handler := NewGoalHandler(goalSvc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testCategoryID+"/contributions",
			`{"source_account_id":"`+testAccountID+`","amount":"100.00"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on missing source account", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{}, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testCategoryID+"/contributions", `{"amount":"100.00"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGoalHandler_UpdateGoal(t *testing.T) {
	t.Run("passes status through", func(t *testing.T) {
		var captured services.GoalUpdateFields
		goalSvc := &mockGoalService{
			updateGoalFn: func(_, _ string, fields services.GoalUpdateFields) (*models.Goal, error) {
				captured = fields
				return &models.Goal{Status: models.GoalStatusPaused}, nil
			},
		}
		handler := NewGoalHandler(goalSvc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "PUT", "/goals/"+testCategoryID, `{"status":"paused"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.Status == nil || *captured.Status != models.GoalStatusPaused {
			t.Error("expected paused status in update fields")
		}
	})

	t.Run("returns 400 on unknown status", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{}, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "PUT", "/goals/"+testCategoryID, `{"status":"abandoned"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGoalHandler_RemoveContribution(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{}, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "DELETE", "/contributions/"+testCategoryID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when hidden", func(t *testing.T) {
		goalSvc := &mockGoalService{
			removeContributionFn: func(string, string) error {
				return apperrors.ErrContributionNotFound
			},
		}
		handler := NewGoalHandler(goalSvc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "DELETE", "/contributions/"+testCategoryID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CONTRIBUTION_NOT_FOUND")
	})
}
