/**
 * @description
 * This file defines the student-side aggregates the settlement orchestrator
 * mutates: the per-student fee account, scholarship applications, the
 * settlement ledger, and the referral reward ledger.
 *
 * @notes
 * - Fee-paid flags are monotonic: the orchestrator only ever flips them from
 *   false to true. Nothing in this service resets a paid flag.
 * - A student may hold several concurrent scholarship applications; each one
 *   carries its own independent fee flags.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeeAccount is the per-student aggregate of fee-paid flags plus the
// pricing-relevant attributes. It maps to the `fee_accounts` table.
type FeeAccount struct {
	StudentID                uuid.UUID  `json:"student_id"`
	HasPaidSelectionProcess  bool       `json:"has_paid_selection_process_fee"`
	HasPaidI20Control        bool       `json:"has_paid_i20_control_fee"`
	IsApplicationFeePaid     bool       `json:"is_application_fee_paid"`
	DependentCount           int        `json:"dependent_count"`
	PackageID                *uuid.UUID `json:"package_id,omitempty"`
	SelectionProcessOverride *int64     `json:"selection_process_fee_override,omitempty"` // in cents
	I20ControlOverride       *int64     `json:"i20_control_fee_override,omitempty"`
	ScholarshipOverride      *int64     `json:"scholarship_fee_override,omitempty"`
	SellerID                 *uuid.UUID `json:"seller_id,omitempty"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// PricingPackage holds package-level fee amounts a student may be enrolled in.
type PricingPackage struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	SelectionProcessFee *int64    `json:"selection_process_fee,omitempty"` // in cents
	I20ControlFee       *int64    `json:"i20_control_fee,omitempty"`
	ScholarshipFee      *int64    `json:"scholarship_fee,omitempty"`
}

// ScholarshipApplication is one (student, scholarship) pair with its own fee
// flags. It maps to the `scholarship_applications` table.
type ScholarshipApplication struct {
	ID                    uuid.UUID `json:"id"`
	StudentID             uuid.UUID `json:"student_id"`
	ScholarshipID         uuid.UUID `json:"scholarship_id"`
	UniversityName        string    `json:"university_name"`
	Status                string    `json:"status"`
	IsApplicationFeePaid  bool      `json:"is_application_fee_paid"`
	IsScholarshipFeePaid  bool      `json:"is_scholarship_fee_paid"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// SettlementEntry is one recognized manual payment in the append-only
// settlement ledger. The payment id is the idempotency key: at most one entry
// exists per payment.
type SettlementEntry struct {
	PaymentID   uuid.UUID   `json:"payment_id"`
	StudentID   uuid.UUID   `json:"student_id"`
	FeeCategory FeeCategory `json:"fee_category"`
	Amount      int64       `json:"amount"` // in cents
	Source      string      `json:"source"` // always "manual" for this service
	RecordedAt  time.Time   `json:"recorded_at"`
}

// ReferralUsage records which referral code a student used at signup.
type ReferralUsage struct {
	StudentID  uuid.UUID `json:"student_id"`
	Code       string    `json:"code"`
	OwnerID    uuid.UUID `json:"owner_id"`
	CodeActive bool      `json:"code_active"`
}

// RewardCredit is the outcome of a referral reward attempt.
type RewardCredit struct {
	Credited   bool       `json:"credited"`
	ReferrerID *uuid.UUID `json:"referrer_id,omitempty"`
	Amount     int64      `json:"amount,omitempty"` // in cents
}
