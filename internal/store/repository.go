/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the payment-review-service. By defining
 * an interface, we decouple the settlement logic from the specific database
 * implementation (e.g., PostgreSQL), making the code more modular and easier to
 * test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/studyglobal/payment-review-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Manual payment methods
	FindManualPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.ManualPayment, error)
	ListManualPayments(ctx context.Context, opts domain.PaymentListOptions) ([]domain.ManualPayment, error)
	// MarkPaymentReviewed performs the guarded status transition. The UPDATE is
	// conditional on the current status being pending_verification; if zero rows
	// match it returns ErrAlreadyReviewed and the payment is untouched.
	MarkPaymentReviewed(ctx context.Context, paymentID uuid.UUID, params ReviewUpdateParams) error
	// AttachPaymentAttribution records an explicit scholarship-application id on
	// a still-pending payment. Returns ErrAlreadyReviewed when the payment has
	// left pending_verification.
	AttachPaymentAttribution(ctx context.Context, paymentID uuid.UUID, applicationID uuid.UUID) error

	// Fee account methods. Flag setters are monotonic (false -> true only).
	FindFeeAccountByStudentID(ctx context.Context, studentID uuid.UUID) (*domain.FeeAccount, error)
	FindPricingPackageByID(ctx context.Context, packageID uuid.UUID) (*domain.PricingPackage, error)
	SetSelectionProcessFeePaid(ctx context.Context, studentID uuid.UUID) error
	SetI20ControlFeePaid(ctx context.Context, studentID uuid.UUID) error
	SetStudentApplicationFeePaid(ctx context.Context, studentID uuid.UUID) error

	// Scholarship application methods
	FindScholarshipApplicationByID(ctx context.Context, applicationID uuid.UUID) (*domain.ScholarshipApplication, error)
	ListScholarshipApplicationsByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.ScholarshipApplication, error)
	SetApplicationFeePaid(ctx context.Context, applicationID uuid.UUID) error
	SetScholarshipFeePaid(ctx context.Context, applicationID uuid.UUID) error

	// Settlement ledger methods
	// RecordSettlement appends one ledger entry keyed by payment id. A repeat
	// call with the same payment id is a no-op returning created=false.
	RecordSettlement(ctx context.Context, entry domain.SettlementEntry) (created bool, err error)
	ListSettlementGaps(ctx context.Context, limit int) ([]domain.SettlementGap, error)

	// Referral reward methods
	FindReferralUsageByStudent(ctx context.Context, studentID uuid.UUID) (*domain.ReferralUsage, error)
	// CreditReferralReward inserts a reward ledger entry and credits the
	// referrer balance in one transaction. Deduped on
	// (referrer_id, referred_student_id, reason); a duplicate attempt returns
	// created=false without touching the balance.
	CreditReferralReward(ctx context.Context, referrerID, referredStudentID uuid.UUID, amount int64, reason string) (created bool, err error)
}

// ReviewUpdateParams carries the fields written by the guarded review
// transition.
type ReviewUpdateParams struct {
	Status     string
	ReviewerID uuid.UUID
	ReviewedAt time.Time
	AdminNotes *string
}
