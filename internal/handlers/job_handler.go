package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"monbudget/internal/services"
)

// JobHandler lets an external scheduler trigger the batch engines over HTTP.
type JobHandler struct {
	executor     services.RecurrenceExecutor
	evaluator    services.BudgetAlertEvaluator
	auditService services.AuditServicer
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(executor services.RecurrenceExecutor, evaluator services.BudgetAlertEvaluator, auditService services.AuditServicer) *JobHandler {
	return &JobHandler{executor: executor, evaluator: evaluator, auditService: auditService}
}

// ExecuteRecurrences books every due recurrence
// @Summary     Execute due recurrences
// @Description Book one occurrence of every active recurrence due today or earlier
// @Tags        jobs
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} services.ExecutionResult "Run report"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /jobs/recurrences/execute [post]
func (h *JobHandler) ExecuteRecurrences(c *gin.Context) {
	result, err := h.executor.ExecuteAllPendingRecurrences(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogJob("execute_recurrences", "RUN", "job", "", map[string]interface{}{
		"checked":  result.TotalChecked,
		"executed": result.TotalExecuted,
		"skipped":  result.TotalSkipped,
		"errors":   len(result.Errors),
	})

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// CheckBudgetAlerts evaluates every current budget against alert thresholds
// @Summary     Check budget alerts
// @Description Evaluate budgets of every user with alerts enabled and record new notifications
// @Tags        jobs
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} services.BudgetCheckResult "Run report"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /jobs/budget-alerts/check [post]
func (h *JobHandler) CheckBudgetAlerts(c *gin.Context) {
	result, err := h.evaluator.CheckAllBudgets(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogJob("check_budget_alerts", "RUN", "job", "", map[string]interface{}{
		"users":   result.UsersChecked,
		"budgets": result.BudgetsChecked,
		"alerts":  result.AlertsTriggered,
		"errors":  len(result.Errors),
	})

	c.JSON(http.StatusOK, gin.H{"result": result})
}
