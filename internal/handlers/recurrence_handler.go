package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "monbudget/internal/errors"
	"monbudget/internal/models"
	"monbudget/internal/pagination"
	"monbudget/internal/services"
)

// RecurrenceHandler handles recurring transaction definitions.
type RecurrenceHandler struct {
	recurrenceService services.RecurrenceServicer
	executor          services.RecurrenceExecutor
	auditService      services.AuditServicer
}

// NewRecurrenceHandler creates a new RecurrenceHandler.
func NewRecurrenceHandler(
	recurrenceService services.RecurrenceServicer,
	executor services.RecurrenceExecutor,
	auditService services.AuditServicer,
) *RecurrenceHandler {
	return &RecurrenceHandler{
		recurrenceService: recurrenceService,
		executor:          executor,
		auditService:      auditService,
	}
}

// CreateRecurrenceRequest represents the request payload for creating a recurrence.
type CreateRecurrenceRequest struct {
	AccountID     string                 `json:"account_id" binding:"required,uuid"`
	CategoryID    *string                `json:"category_id"`
	Label         string                 `json:"label" binding:"required,min=1,max=255"`
	Amount        int64                  `json:"amount" binding:"required,gt=0"`
	Type          models.TransactionType `json:"type" binding:"required,transaction_type"`
	Frequency     models.Frequency       `json:"frequency" binding:"required,frequency"`
	Interval      int                    `json:"interval" binding:"omitempty,min=1"`
	AnchorDay     int                    `json:"anchor_day" binding:"omitempty,min=1,max=31"`
	WeekendPolicy models.WeekendPolicy   `json:"weekend_policy" binding:"omitempty,weekend_policy"`
	StartDate     string                 `json:"start_date" binding:"required"`
	EndDate       *string                `json:"end_date"`
	MaxExecutions *int                   `json:"max_executions" binding:"omitempty,min=1"`
	AutoValidate  bool                   `json:"auto_validate"`
}

func (r *CreateRecurrenceRequest) toInput() (services.RecurrenceInput, error) {
	in := services.RecurrenceInput{
		AccountID:     r.AccountID,
		Label:         r.Label,
		Amount:        r.Amount,
		Type:          r.Type,
		Frequency:     r.Frequency,
		Interval:      r.Interval,
		AnchorDay:     r.AnchorDay,
		WeekendPolicy: r.WeekendPolicy,
		MaxExecutions: r.MaxExecutions,
		AutoValidate:  r.AutoValidate,
	}

	categoryID, err := parseOptionalID(r.CategoryID, "category_id")
	if err != nil {
		return in, err
	}
	in.CategoryID = categoryID

	in.StartDate, err = parseFlexibleTime(r.StartDate)
	if err != nil {
		return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "start_date: "+err.Error())
	}
	if r.EndDate != nil && *r.EndDate != "" {
		end, err := parseFlexibleTime(*r.EndDate)
		if err != nil {
			return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_date: "+err.Error())
		}
		in.EndDate = &end
	}
	return in, nil
}

// CreateRecurrence handles the creation of a recurring transaction
// @Summary     Create a recurrence
// @Description Define a transaction that is booked automatically on a schedule
// @Tags        recurrences
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRecurrenceRequest true "Recurrence details"
// @Success     201 {object} models.Recurrence "Recurrence created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurrences [post]
func (h *RecurrenceHandler) CreateRecurrence(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	in, err := req.toInput()
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurrence, err := h.recurrenceService.CreateRecurrence(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_RECURRENCE", "recurrence", recurrence.ID, c.ClientIP(),
		map[string]interface{}{"label": req.Label, "amount": req.Amount, "frequency": req.Frequency})

	c.JSON(http.StatusCreated, gin.H{"recurrence": recurrence})
}

// GetRecurrences lists the user's recurrences by next due date
// @Summary     Get recurrences
// @Description Get a paginated list of recurrences, soonest due first
// @Tags        recurrences
// @Produce     json
// @Security    BearerAuth
// @Param       is_active query bool false "Filter by active status"
// @Param       page      query int  false "Page number (default 1)"
// @Param       page_size query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Recurrence] "Paginated recurrences"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurrences [get]
func (h *RecurrenceHandler) GetRecurrences(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	isActive, err := parseBoolQuery(c, "is_active")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurrenceService.GetUserRecurrences(userID, page, isActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecurrence returns one recurrence
// @Summary     Get recurrence by ID
// @Tags        recurrences
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurrence ID"
// @Success     200 {object} models.Recurrence "Recurrence details"
// @Failure     400 {object} ErrorResponse "Invalid recurrence ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurrence not found"
// @Router      /recurrences/{id} [get]
func (h *RecurrenceHandler) GetRecurrence(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurrenceID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurrence, err := h.recurrenceService.GetRecurrenceByID(userID, recurrenceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurrence": recurrence})
}

// DeactivateRecurrence stops a recurrence. Booked transactions are kept.
// @Summary     Deactivate recurrence
// @Tags        recurrences
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurrence ID"
// @Success     200 {object} models.Recurrence "Deactivated recurrence"
// @Failure     400 {object} ErrorResponse "Invalid recurrence ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurrence not found"
// @Router      /recurrences/{id}/deactivate [post]
func (h *RecurrenceHandler) DeactivateRecurrence(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurrenceID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurrence, err := h.recurrenceService.DeactivateRecurrence(userID, recurrenceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DEACTIVATE_RECURRENCE", "recurrence", recurrenceID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"recurrence": recurrence})
}

// ExecuteRecurrence books the recurrence's current occurrence now
// @Summary     Execute recurrence now
// @Description Book the current occurrence immediately, whether or not it is due yet
// @Tags        recurrences
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurrence ID"
// @Success     200 {object} services.RecurrenceOutcome "Execution outcome"
// @Failure     400 {object} ErrorResponse "Invalid recurrence ID or inactive recurrence"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurrence not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurrences/{id}/execute [post]
func (h *RecurrenceHandler) ExecuteRecurrence(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurrenceID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	outcome, err := h.executor.ExecuteRecurrence(c.Request.Context(), userID, recurrenceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}
