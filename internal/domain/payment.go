/**
 * @description
 * This file defines the core domain models for the payment-review-service.
 * These structs represent manually-attested payments submitted by students and
 * the result of an admin review, as used by the business logic, database and
 * API layers.
 *
 * @notes
 * - Fee amounts are stored as `int64` in cents to avoid floating-point
 *   inaccuracies with financial data.
 * - Fee categories are a closed enum. Every settlement branch switches
 *   exhaustively over these values; an unknown category is rejected before any
 *   state is mutated.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeeCategory identifies the purpose of a manually-attested payment.
type FeeCategory string

const (
	FeeSelectionProcess FeeCategory = "selection_process"
	FeeI20Control       FeeCategory = "i20_control"
	FeeApplication      FeeCategory = "application"
	FeeScholarship      FeeCategory = "scholarship"
)

// Valid reports whether c is one of the known fee categories.
func (c FeeCategory) Valid() bool {
	switch c {
	case FeeSelectionProcess, FeeI20Control, FeeApplication, FeeScholarship:
		return true
	}
	return false
}

// ApplicationScoped reports whether payments in this category settle against a
// single scholarship application rather than the student's fee account.
func (c FeeCategory) ApplicationScoped() bool {
	return c == FeeApplication || c == FeeScholarship
}

// PostsToLedger reports whether an approval in this category is recognized as
// revenue in the settlement ledger. Application fees are collected on behalf of
// universities and are deliberately not posted.
func (c FeeCategory) PostsToLedger() bool {
	return c != FeeApplication
}

// Review lifecycle states for a manual payment. The status is terminal once it
// leaves pending_verification.
const (
	PaymentStatusPending  = "pending_verification"
	PaymentStatusApproved = "approved"
	PaymentStatusRejected = "rejected"
)

// ReviewDecision is the admin's verdict on a manual payment.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// ManualPayment represents a student-submitted payment proof awaiting (or past)
// admin verification. It maps to the `manual_payments` table.
type ManualPayment struct {
	ID            uuid.UUID   `json:"id"`
	StudentID     uuid.UUID   `json:"student_id"`
	FeeCategory   FeeCategory `json:"fee_category"`
	Amount        int64       `json:"amount"` // in cents
	ApplicationID *uuid.UUID  `json:"application_id,omitempty"`
	ProofURL      string      `json:"proof_url"`
	Status        string      `json:"status"`
	ReviewerID    *uuid.UUID  `json:"reviewer_id,omitempty"`
	ReviewedAt    *time.Time  `json:"reviewed_at,omitempty"`
	AdminNotes    *string     `json:"admin_notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ReviewCommand carries an admin decision into the settlement orchestrator.
type ReviewCommand struct {
	PaymentID  uuid.UUID
	ReviewerID uuid.UUID
	Decision   ReviewDecision
	Reason     string // required for reject
}

// ReviewResult is returned to the admin after a review call. Warnings collect
// non-fatal downstream failures (notifications, reward crediting) so the admin
// can see that the approval itself committed even when fan-out did not.
type ReviewResult struct {
	PaymentID     uuid.UUID   `json:"payment_id"`
	Status        string      `json:"status"`
	FeeCategory   FeeCategory `json:"fee_category"`
	SettledAmount int64       `json:"settled_amount,omitempty"`
	ApplicationID *uuid.UUID  `json:"application_id,omitempty"`
	LedgerCreated bool        `json:"ledger_created"`
	RewardedTo    *uuid.UUID  `json:"rewarded_to,omitempty"`
	Warnings      []string    `json:"warnings,omitempty"`
}

// PaymentListOptions controls filtering and pagination of the review queue.
type PaymentListOptions struct {
	Status      string
	FeeCategory string
	Limit       int
	Offset      int
}

// ReviewRequestPayload is the DTO for the review endpoint.
type ReviewRequestPayload struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// AttributionPayload is the DTO for attaching an explicit scholarship
// application to a still-pending payment.
type AttributionPayload struct {
	ApplicationID uuid.UUID `json:"application_id"`
}

// SettlementGap is an approved payment in a ledger-posting category that has no
// matching settlement ledger entry. Gaps are the detectable footprint of a
// partial failure after the status transition committed.
type SettlementGap struct {
	PaymentID   uuid.UUID   `json:"payment_id"`
	StudentID   uuid.UUID   `json:"student_id"`
	FeeCategory FeeCategory `json:"fee_category"`
	Amount      int64       `json:"amount"`
	ReviewedAt  *time.Time  `json:"reviewed_at,omitempty"`
}
