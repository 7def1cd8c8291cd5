package handler

import (
	appinstallment "github.com/backoffice/installments/internal/application/installment"
	"github.com/backoffice/installments/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// InstallmentHandler handles obligation and payment HTTP requests
type InstallmentHandler struct {
	BaseHandler
	service *appinstallment.Service
}

// NewInstallmentHandler creates a new InstallmentHandler
func NewInstallmentHandler(service *appinstallment.Service) *InstallmentHandler {
	return &InstallmentHandler{service: service}
}

// List godoc
// @ID           listObligations
// @Summary      List obligations
// @Description  List installment obligations with their derived status for today
// @Tags         obligations
// @Produce      json
// @Param        document_id query string false "Credit document ID" format(uuid)
// @Param        document_kind query string false "Document kind" Enums(SALE, PURCHASE)
// @Param        currency query string false "ISO currency code"
// @Param        status query string false "Stored status" Enums(PENDIENTE, VENCIDO, PAGADO)
// @Param        only_open query bool false "Only obligations with a pending balance"
// @Param        due_from query string false "Due on or after (YYYY-MM-DD)"
// @Param        due_to query string false "Due on or before (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        order_by query string false "Sort field" Enums(due_date, sequence_number, pending_amount, created_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} Envelope[[]appinstallment.ObligationResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /obligations [get]
func (h *InstallmentHandler) List(c *gin.Context) {
	var filter appinstallment.ObligationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindError(c, err)
		return
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	h.SuccessWithMeta(c, items, total, page, filter.PageSize)
}

// GetByID godoc
// @ID           getObligation
// @Summary      Get an obligation
// @Description  Get one obligation with its payments and status report
// @Tags         obligations
// @Produce      json
// @Param        id path string true "Obligation ID" format(uuid)
// @Success      200 {object} Envelope[appinstallment.ObligationResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /obligations/{id} [get]
func (h *InstallmentHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id", "obligation")
	if !ok {
		return
	}

	obligation, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, obligation)
}

// ListByDocument godoc
// @ID           listDocumentObligations
// @Summary      List the installments of a document
// @Description  List every installment of a credit document in sequence order, with payments
// @Tags         obligations
// @Produce      json
// @Param        documentId path string true "Credit document ID" format(uuid)
// @Success      200 {object} Envelope[[]appinstallment.ObligationResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /documents/{documentId}/obligations [get]
func (h *InstallmentHandler) ListByDocument(c *gin.Context) {
	documentID, ok := h.ParseUUIDParam(c, "documentId", "document")
	if !ok {
		return
	}

	items, err := h.service.ListByDocument(c.Request.Context(), documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, items)
}

// Create godoc
// @ID           createObligation
// @Summary      Create an obligation
// @Description  Create one installment of a credit document
// @Tags         obligations
// @Accept       json
// @Produce      json
// @Param        request body appinstallment.CreateObligationRequest true "Obligation"
// @Success      201 {object} Envelope[appinstallment.ObligationResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /obligations [post]
func (h *InstallmentHandler) Create(c *gin.Context) {
	var req appinstallment.CreateObligationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	obligation, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, obligation)
}

// ListPayments godoc
// @ID           listObligationPayments
// @Summary      List payments
// @Description  List the payments of an obligation in registration order
// @Tags         payments
// @Produce      json
// @Param        id path string true "Obligation ID" format(uuid)
// @Success      200 {object} Envelope[[]appinstallment.PaymentResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /obligations/{id}/payments [get]
func (h *InstallmentHandler) ListPayments(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id", "obligation")
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// ValidatePayment godoc
// @ID           validateObligationPayment
// @Summary      Validate a payment split
// @Description  Check a payment split against the pending amount without storing it
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Obligation ID" format(uuid)
// @Param        request body appinstallment.ValidatePaymentRequest true "Payment split"
// @Success      200 {object} Envelope[appinstallment.ValidationResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /obligations/{id}/payments/validate [post]
func (h *InstallmentHandler) ValidatePayment(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id", "obligation")
	if !ok {
		return
	}

	var req appinstallment.ValidatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	result, err := h.service.ValidatePayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RegisterPayment godoc
// @ID           registerObligationPayment
// @Summary      Register a payment
// @Description  Register a multi-method payment against an obligation.
// @Description  A repeated Idempotency-Key answers 409 ERR_DUPLICATE_REQUEST.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Obligation ID" format(uuid)
// @Param        Idempotency-Key header string false "Client submission key"
// @Param        request body appinstallment.RegisterPaymentRequest true "Payment"
// @Success      201 {object} Envelope[appinstallment.PaymentResultResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /obligations/{id}/payments [post]
func (h *InstallmentHandler) RegisterPayment(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id", "obligation")
	if !ok {
		return
	}

	var req appinstallment.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	result, err := h.service.RegisterPayment(c.Request.Context(), id, req, middleware.GetIdempotencyKey(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// DeletePayment godoc
// @ID           deleteObligationPayment
// @Summary      Delete a payment
// @Description  Remove a payment and restore its amount to the pending balance
// @Tags         payments
// @Produce      json
// @Param        id path string true "Obligation ID" format(uuid)
// @Param        paymentId path string true "Payment ID" format(uuid)
// @Success      200 {object} Envelope[appinstallment.ObligationResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /obligations/{id}/payments/{paymentId} [delete]
func (h *InstallmentHandler) DeletePayment(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id", "obligation")
	if !ok {
		return
	}
	paymentID, ok := h.ParseUUIDParam(c, "paymentId", "payment")
	if !ok {
		return
	}

	obligation, err := h.service.DeletePayment(c.Request.Context(), id, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, obligation)
}

// Summary godoc
// @ID           getObligationSummary
// @Summary      Portfolio summary
// @Description  Pending, overdue and due-soon totals of the open portfolio, per currency
// @Tags         obligations
// @Produce      json
// @Param        horizon_days query int false "Due-soon horizon in days" minimum(0) maximum(365)
// @Param        document_kind query string false "Document kind" Enums(SALE, PURCHASE)
// @Param        currency query string false "ISO currency code"
// @Success      200 {object} Envelope[appinstallment.SummaryResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      500 {object} ErrorEnvelope
// @Router       /obligations/summary [get]
func (h *InstallmentHandler) Summary(c *gin.Context) {
	var filter appinstallment.SummaryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindError(c, err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}
