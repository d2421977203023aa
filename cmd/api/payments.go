package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ittr/internal/billing"
	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/params"

	"github.com/go-chi/chi/v5"
)

type generatePaymentPayload struct {
	StudentID   string `json:"studentid"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	PaymentType string `json:"payment_type"`
}

type generatePaymentResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url"`
	Token       string `json:"token"`
	OrderID     string `json:"orderid"`
	Reused      bool   `json:"reused"`
}

// generatePaymentHandler godoc
//
//	@Summary		Start a payment
//	@Description	Returns the student's open checkout if one exists, otherwise creates a gateway transaction.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		generatePaymentPayload	true	"Payment details"
//	@Success		200		{object}	generatePaymentResponse
//	@Failure		400		{object}	errorEnvelope
//	@Failure		403		{object}	errorEnvelope
//	@Failure		409		{object}	errorEnvelope
//	@Failure		502		{object}	errorEnvelope
//	@Security		ApiKeyAuth
//	@Router			/payments/generate [post]
func (app *application) generatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload generatePaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// without a payer there is nothing to check ownership against
	if strings.TrimSpace(payload.StudentID) == "" {
		app.serviceError(w, r, &billing.ValidationError{Field: "studentid", Message: "is required"})
		return
	}

	claims := getClaimsFromContext(r)
	if !claims.IsAdmin() && strings.TrimSpace(payload.StudentID) != claims.Subject {
		app.forbiddenResponse(w, r, fmt.Errorf("user %s cannot pay for student %s", claims.Subject, payload.StudentID))
		return
	}

	res, err := app.billing.Generate(r.Context(), billing.GenerateInput{
		StudentID:   payload.StudentID,
		Name:        payload.Name,
		Email:       payload.Email,
		Amount:      payload.Amount,
		PaymentType: payload.PaymentType,
	})
	if err != nil {
		app.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generatePaymentResponse{
		Success:     true,
		RedirectURL: res.RedirectURL,
		Token:       res.Token,
		OrderID:     res.OrderID,
		Reused:      res.Reused,
	})
}

// paymentWebhookHandler godoc
//
//	@Summary		Gateway notification
//	@Description	Applies a signed payment notification. Unknown orders are acknowledged and ignored.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	webhookResponse
//	@Failure		400	{object}	errorEnvelope
//	@Failure		403	{object}	errorEnvelope
//	@Failure		500	{object}	errorEnvelope
//	@Router			/payments/webhook [post]
func (app *application) paymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	n := getNotificationFromContext(r)
	if n == nil {
		app.internalServerError(w, r, errors.New("notification missing from context"))
		return
	}

	status, err := app.billing.Webhook(r.Context(), *n)
	if err != nil {
		// 5xx makes the gateway redeliver; replays are safe.
		app.logger.Errorw("webhook processing failed", "order_id", n.OrderID, "error", err.Error())
		writeJSONError(w, http.StatusInternalServerError, "failed to process notification", "")
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Success: true, Status: status})
}

type webhookResponse struct {
	Success bool                `json:"success"`
	Status  paymentsrepo.Status `json:"status"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// listPaymentsHandler godoc
//
//	@Summary		List all payments
//	@Tags			payments
//	@Produce		json
//	@Param			page	query		int		false	"Page"
//	@Param			limit	query		int		false	"Page size"
//	@Param			status	query		string	false	"pending, success or failed"
//	@Success		200		{object}	paymentListResponse
//	@Failure		400		{object}	errorEnvelope
//	@Security		ApiKeyAuth
//	@Router			/payments/history [get]
func (app *application) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := params.ParsePagination(q)
	status := paymentsrepo.Status(strings.ToLower(strings.TrimSpace(q.Get("status"))))

	list, total, err := app.billing.HistoryAll(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	page.ComputeMeta(total)

	if list == nil {
		list = []*paymentsrepo.Payment{}
	}
	writeJSON(w, http.StatusOK, paymentListResponse{Success: true, Data: list, Pagination: page})
}

type paymentListResponse struct {
	Success    bool                    `json:"success"`
	Data       []*paymentsrepo.Payment `json:"data"`
	Pagination params.Pagination       `json:"pagination"`
}

// studentPaymentHistoryHandler godoc
//
//	@Summary		Payment history of a student
//	@Description	Admins may read any student; students only their own history.
//	@Tags			payments
//	@Produce		json
//	@Param			studentID	path		string	true	"Student ID"
//	@Success		200			{object}	[]paymentsrepo.Payment
//	@Failure		403			{object}	errorEnvelope
//	@Security		ApiKeyAuth
//	@Router			/payments/history/{studentID} [get]
func (app *application) studentPaymentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	claims := getClaimsFromContext(r)
	if !claims.IsAdmin() && claims.Subject != studentID {
		app.forbiddenResponse(w, r, fmt.Errorf("user %s cannot read student %s", claims.Subject, studentID))
		return
	}

	list, err := app.billing.History(r.Context(), studentID)
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	if list == nil {
		list = []*paymentsrepo.Payment{}
	}

	app.jsonResponse(w, http.StatusOK, list)
}

// paymentDetailHandler godoc
//
//	@Summary		Payment with its audit log
//	@Tags			payments
//	@Produce		json
//	@Param			orderID	path		string	true	"Gateway order ID"
//	@Success		200		{object}	billing.Detail
//	@Failure		404		{object}	errorEnvelope
//	@Security		ApiKeyAuth
//	@Router			/payments/orders/{orderID} [get]
func (app *application) paymentDetailHandler(w http.ResponseWriter, r *http.Request) {
	d, err := app.billing.Detail(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	if d.Logs == nil {
		d.Logs = []*paymentsrepo.PaymentLog{}
	}
	app.jsonResponse(w, http.StatusOK, d)
}

type refreshOrderPayload struct {
	OrderID string `json:"order_id" validate:"required,max=64"`
}

type refreshResponse struct {
	Success      bool                   `json:"success"`
	Message      string                 `json:"message"`
	LatestStatus paymentsrepo.Status    `json:"latest_status,omitempty"`
	Result       *billing.RefreshResult `json:"result,omitempty"`
}

// refreshOrderPaymentHandler godoc
//
//	@Summary		Reconcile one order with the gateway
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		refreshOrderPayload	true	"Order"
//	@Success		200		{object}	refreshResponse
//	@Failure		404		{object}	errorEnvelope
//	@Failure		502		{object}	errorEnvelope
//	@Security		ApiKeyAuth
//	@Router			/payments/refresh [put]
func (app *application) refreshOrderPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload refreshOrderPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	payload.OrderID = strings.TrimSpace(payload.OrderID)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	res, err := app.billing.RefreshByOrder(ctx, payload.OrderID)
	if errors.Is(err, billing.ErrNoPending) {
		writeJSON(w, http.StatusOK, refreshResponse{Success: true, Message: "no pending payment found"})
		return
	}
	if err != nil {
		app.serviceError(w, r, err)
		return
	}

	out := refreshResponse{Success: true, Result: res}
	switch res.Outcome {
	case billing.OutcomeUpdated:
		out.Message = fmt.Sprintf("payment %s updated from %s to %s", res.OrderID, res.PreviousStatus, res.Status)
	case billing.OutcomeNotPending:
		out.Message = fmt.Sprintf("payment %s is already %s", res.OrderID, res.Status)
		out.LatestStatus = res.Status
	default:
		out.Message = "no change"
		out.LatestStatus = res.Status
	}
	writeJSON(w, http.StatusOK, out)
}

type batchRefreshResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Results []billing.RefreshResult `json:"results"`
}

// refreshStudentPaymentsHandler godoc
//
//	@Summary		Reconcile every pending payment of a student
//	@Description	Each order is reconciled independently; the response lists every outcome.
//	@Tags			payments
//	@Produce		json
//	@Param			studentID	path		string	true	"Student ID"
//	@Success		200			{object}	batchRefreshResponse
//	@Failure		502			{object}	batchRefreshResponse
//	@Security		ApiKeyAuth
//	@Router			/payments/refresh/{studentID} [put]
func (app *application) refreshStudentPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	ctx, cancel := context.WithTimeout(r.Context(), 50*time.Second)
	defer cancel()

	batch, err := app.billing.RefreshByStudent(ctx, studentID)
	if errors.Is(err, billing.ErrNoPending) {
		writeJSON(w, http.StatusOK, batchRefreshResponse{Success: true, Message: "no pending payments found", Results: []billing.RefreshResult{}})
		return
	}
	if err != nil {
		app.serviceError(w, r, err)
		return
	}

	msg := fmt.Sprintf("%d pending payments checked: %d updated, %d unchanged, %d failed",
		len(batch.Results), batch.Updated, batch.Unchanged, batch.Failed)

	if batch.Failed > 0 {
		app.logger.Warnw("student refresh had failures", "student_id", studentID, "failed", batch.Failed)
		writeJSON(w, http.StatusBadGateway, batchRefreshResponse{Success: false, Message: msg, Results: batch.Results})
		return
	}
	writeJSON(w, http.StatusOK, batchRefreshResponse{Success: true, Message: msg, Results: batch.Results})
}
