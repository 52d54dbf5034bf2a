/**
 * @description
 * This file contains the HTTP handlers for the payment-review-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and mapping domain
 * errors onto HTTP status codes. They act as the bridge between the web layer
 * and the settlement logic.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/studyglobal/payment-review-service/internal/app"
	"github.com/studyglobal/payment-review-service/internal/domain"
	"github.com/studyglobal/payment-review-service/internal/store"
)

// PaymentHandlers holds the application service that handlers will use.
type PaymentHandlers struct {
	service      *app.Service
	limiter      *app.RedisReviewRateLimiter
	reviewPerMin int
}

// NewPaymentHandlers creates the handler set. limiter may be nil when Redis is
// not configured; rate limiting then degrades to a no-op.
func NewPaymentHandlers(service *app.Service, limiter *app.RedisReviewRateLimiter, reviewPerMin int) *PaymentHandlers {
	return &PaymentHandlers{
		service:      service,
		limiter:      limiter,
		reviewPerMin: reviewPerMin,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// partialSuccessResponse is returned when the approval committed but a
// downstream settlement step failed. The admin sees both the committed state
// and what went wrong.
type partialSuccessResponse struct {
	Result *domain.ReviewResult `json:"result"`
	Error  string               `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, message, hint string) {
	writeJSON(w, status, errorResponse{Error: message, Hint: hint})
}

func (h *PaymentHandlers) reviewerFromContext(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	adminID, ok := GetAdminID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "admin identity missing", "")
		return uuid.Nil, false
	}
	reviewerID, err := uuid.Parse(adminID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "admin identity is not a valid id", "")
		return uuid.Nil, false
	}
	return reviewerID, true
}

func paymentIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment id", "")
		return uuid.Nil, false
	}
	return paymentID, true
}

// ReviewPaymentHandler applies an approve/reject decision to a pending payment.
func (h *PaymentHandlers) ReviewPaymentHandler(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := h.reviewerFromContext(w, r)
	if !ok {
		return
	}
	paymentID, ok := paymentIDFromURL(w, r)
	if !ok {
		return
	}

	if h.limiter != nil && h.reviewPerMin > 0 {
		count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "payment_review", reviewerID.String(), h.reviewPerMin, time.Minute)
		if err != nil {
			log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" err=%v", err)
		} else if count > h.reviewPerMin {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "review rate limit exceeded", "")
			return
		}
	}

	var payload domain.ReviewRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	decision := domain.ReviewDecision(payload.Decision)
	if decision != domain.DecisionApprove && decision != domain.DecisionReject {
		writeError(w, http.StatusBadRequest, "decision must be approve or reject", "")
		return
	}

	result, err := h.service.Review(r.Context(), domain.ReviewCommand{
		PaymentID:  paymentID,
		ReviewerID: reviewerID,
		Decision:   decision,
		Reason:     payload.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrPaymentNotFound),
			errors.Is(err, store.ErrStudentNotFound),
			errors.Is(err, store.ErrApplicationNotFound):
			writeError(w, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, store.ErrAlreadyReviewed):
			writeError(w, http.StatusConflict, "payment has already been reviewed", "")
		case errors.Is(err, app.ErrAmbiguousAttribution):
			writeError(w, http.StatusUnprocessableEntity, err.Error(),
				"attach the correct application via PATCH /payments/{id}/attribution, then retry the approval")
		case errors.Is(err, app.ErrReasonRequired):
			writeError(w, http.StatusBadRequest, err.Error(), "")
		default:
			if result != nil {
				// The approval committed; only a downstream step failed.
				writeJSON(w, http.StatusInternalServerError, partialSuccessResponse{Result: result, Error: err.Error()})
				return
			}
			log.Printf("level=error component=api msg=\"review failed\" payment_id=%s err=%v", paymentID, err)
			writeError(w, http.StatusInternalServerError, "failed to review payment", "")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// AttachAttributionHandler records an explicit scholarship-application id on a
// still-pending payment.
func (h *PaymentHandlers) AttachAttributionHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.reviewerFromContext(w, r); !ok {
		return
	}
	paymentID, ok := paymentIDFromURL(w, r)
	if !ok {
		return
	}

	var payload domain.AttributionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ApplicationID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "application_id is required", "")
		return
	}

	err := h.service.AttachAttribution(r.Context(), paymentID, payload.ApplicationID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrPaymentNotFound), errors.Is(err, store.ErrApplicationNotFound):
			writeError(w, http.StatusNotFound, err.Error(), "")
		case errors.Is(err, store.ErrAlreadyReviewed):
			writeError(w, http.StatusConflict, "payment has already been reviewed", "")
		default:
			log.Printf("level=error component=api msg=\"attribution update failed\" payment_id=%s err=%v", paymentID, err)
			writeError(w, http.StatusInternalServerError, "failed to attach attribution", "")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"payment_id":     paymentID.String(),
		"application_id": payload.ApplicationID.String(),
		"message":        "attribution attached",
	})
}

// GetPaymentHandler returns one manual payment.
func (h *PaymentHandlers) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := paymentIDFromURL(w, r)
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			writeError(w, http.StatusNotFound, "payment not found", "")
			return
		}
		log.Printf("level=error component=api msg=\"payment lookup failed\" payment_id=%s err=%v", paymentID, err)
		writeError(w, http.StatusInternalServerError, "failed to load payment", "")
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// ListPaymentsHandler returns the review queue with optional filters.
func (h *PaymentHandlers) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	payments, err := h.service.ListPayments(r.Context(), domain.PaymentListOptions{
		Status:      q.Get("status"),
		FeeCategory: q.Get("fee_category"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		log.Printf("level=error component=api msg=\"payment list failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "failed to list payments", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}

// SettlementGapsHandler lists approved payments missing their ledger entry.
// This is an internal endpoint used by operators and monitoring.
func (h *PaymentHandlers) SettlementGapsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	gaps, err := h.service.ListSettlementGaps(r.Context(), limit)
	if err != nil {
		log.Printf("level=error component=api msg=\"settlement gap query failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "failed to list settlement gaps", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gaps":  gaps,
		"count": len(gaps),
	})
}
