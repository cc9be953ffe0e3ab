package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/service"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
	"github.com/matsl08/ems-api/pkg/response"
)

// PaymentHandler serves the accounting surface.
type PaymentHandler struct {
	service *service.PaymentService
}

// NewPaymentHandler creates a new handler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// ListByTerm godoc
// @Summary List payments for a term
// @Tags Payments
// @Produce json
// @Param school_year query string true "School year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /admin/accounting/payments [get]
func (h *PaymentHandler) ListByTerm(c *gin.Context) {
	semester, _ := strconv.Atoi(c.Query("semester"))
	payments, err := h.service.ListByTerm(c.Request.Context(), c.Query("school_year"), semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// ListByStudent godoc
// @Summary List one student's payments
// @Tags Payments
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /admin/accounting/payments/{studentId} [get]
func (h *PaymentHandler) ListByStudent(c *gin.Context) {
	payments, err := h.service.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// UpdateStatus godoc
// @Summary Update one payment period
// @Description Settles a midterm or final payment and rewrites the student's grade access flags
// @Tags Payments
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body models.UpdatePaymentStatusRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/accounting/payments/{studentId} [patch]
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	claims := claimsFromContext(c)
	actor := ""
	if claims != nil {
		actor = claims.UserID
	}

	payment, err := h.service.UpdateStatus(c.Request.Context(), c.Param("studentId"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}
