/**
 * @description
 * This file contains the core business logic for the payment-review-service.
 * The `Service` struct orchestrates the review of manually-attested payments:
 * the guarded status transition, per-category settlement (fee flags, settlement
 * ledger, referral reward) and the notification fan-out.
 *
 * Key features:
 * - Optimistic-concurrency review transition: exactly one of two concurrent
 *   reviewers wins; the loser gets store.ErrAlreadyReviewed with no side
 *   effects.
 * - Application-scoped categories resolve their target application before the
 *   transition, so an AmbiguousAttribution outcome leaves the payment pending
 *   and retryable after operator correction.
 * - Post-transition steps are ordered fee flags -> ledger -> reward ->
 *   notifications; the least critical steps run last and never block the rest.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/studyglobal/payment-review-service/internal/domain"
	"github.com/studyglobal/payment-review-service/internal/store"
)

// settlementSource marks every ledger entry written by this service. The
// automated card path writes its own source tag.
const settlementSource = "manual"

// ErrReasonRequired is returned when a rejection arrives without a reason.
var ErrReasonRequired = errors.New("a reason is required to reject a payment")

// Notifier is the port the orchestrator schedules notifications through.
// Implementations must be best-effort: delivery failures come back as warning
// strings, never as errors.
type Notifier interface {
	DispatchReviewed(ctx context.Context, event domain.PaymentReviewedEvent) []string
}

// Service provides the core business logic for manual payment review.
type Service struct {
	repo         store.Repository
	notifier     Notifier
	defaults     DefaultFees
	rewardAmount int64
}

// NewService creates a new payment review service instance.
func NewService(repo store.Repository, notifier Notifier, defaults DefaultFees, rewardAmount int64) *Service {
	return &Service{
		repo:         repo,
		notifier:     notifier,
		defaults:     defaults,
		rewardAmount: rewardAmount,
	}
}

// GetPayment retrieves one manual payment for display.
func (s *Service) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.ManualPayment, error) {
	return s.repo.FindManualPaymentByID(ctx, paymentID)
}

// ListPayments returns the admin review queue.
func (s *Service) ListPayments(ctx context.Context, opts domain.PaymentListOptions) ([]domain.ManualPayment, error) {
	return s.repo.ListManualPayments(ctx, opts)
}

// AttachAttribution records an explicit application id on a pending payment so
// an ambiguous approval can be corrected and retried. The application must
// belong to the paying student.
func (s *Service) AttachAttribution(ctx context.Context, paymentID, applicationID uuid.UUID) error {
	payment, err := s.repo.FindManualPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}
	application, err := s.repo.FindScholarshipApplicationByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if application.StudentID != payment.StudentID {
		return fmt.Errorf("application %s does not belong to student %s: %w", applicationID, payment.StudentID, store.ErrApplicationNotFound)
	}
	return s.repo.AttachPaymentAttribution(ctx, paymentID, applicationID)
}

// ListSettlementGaps exposes approved payments missing their ledger entry.
func (s *Service) ListSettlementGaps(ctx context.Context, limit int) ([]domain.SettlementGap, error) {
	return s.repo.ListSettlementGaps(ctx, limit)
}

// Review applies an admin decision to a pending manual payment.
//
// On reject the payment is marked rejected with the reason and the payer is
// notified; nothing else changes. On approve the payment is settled per its
// fee category. If a step after the status transition fails, the returned
// error is accompanied by the partial ReviewResult: the approval itself stays
// committed and the gap audit will surface the missing downstream state.
func (s *Service) Review(ctx context.Context, cmd domain.ReviewCommand) (*domain.ReviewResult, error) {
	payment, err := s.repo.FindManualPaymentByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if !payment.FeeCategory.Valid() {
		return nil, fmt.Errorf("payment %s has unknown fee category %q", payment.ID, payment.FeeCategory)
	}

	switch cmd.Decision {
	case domain.DecisionReject:
		if cmd.Reason == "" {
			return nil, ErrReasonRequired
		}
		return s.reject(ctx, payment, cmd)
	case domain.DecisionApprove:
		return s.approve(ctx, payment, cmd)
	}
	return nil, fmt.Errorf("unknown review decision %q", cmd.Decision)
}

func (s *Service) reject(ctx context.Context, payment *domain.ManualPayment, cmd domain.ReviewCommand) (*domain.ReviewResult, error) {
	now := time.Now().UTC()
	err := s.repo.MarkPaymentReviewed(ctx, payment.ID, store.ReviewUpdateParams{
		Status:     domain.PaymentStatusRejected,
		ReviewerID: cmd.ReviewerID,
		ReviewedAt: now,
		AdminNotes: &cmd.Reason,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service flow=payment_review msg=\"payment rejected\" payment_id=%s reviewer_id=%s", payment.ID, cmd.ReviewerID)

	result := &domain.ReviewResult{
		PaymentID:   payment.ID,
		Status:      domain.PaymentStatusRejected,
		FeeCategory: payment.FeeCategory,
	}
	result.Warnings = s.notifier.DispatchReviewed(ctx, domain.PaymentReviewedEvent{
		PaymentID:   payment.ID,
		StudentID:   payment.StudentID,
		FeeCategory: payment.FeeCategory,
		Status:      domain.PaymentStatusRejected,
		Amount:      payment.Amount,
		Reason:      cmd.Reason,
		ReviewedAt:  now,
	})
	return result, nil
}

func (s *Service) approve(ctx context.Context, payment *domain.ManualPayment, cmd domain.ReviewCommand) (*domain.ReviewResult, error) {
	account, err := s.repo.FindFeeAccountByStudentID(ctx, payment.StudentID)
	if err != nil {
		return nil, err
	}

	// Application-scoped categories must know their single target application
	// before the terminal status transition: an ambiguous payment stays
	// pending so the operator can attach the right application and retry.
	var application *domain.ScholarshipApplication
	if payment.FeeCategory.ApplicationScoped() {
		application, err = s.resolveApplication(ctx, payment.StudentID, payment.ApplicationID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	var notes *string
	if cmd.Reason != "" {
		notes = &cmd.Reason
	}
	if err := s.repo.MarkPaymentReviewed(ctx, payment.ID, store.ReviewUpdateParams{
		Status:     domain.PaymentStatusApproved,
		ReviewerID: cmd.ReviewerID,
		ReviewedAt: now,
		AdminNotes: notes,
	}); err != nil {
		return nil, err
	}
	log.Printf("level=info component=service flow=payment_review msg=\"payment approved\" payment_id=%s fee_category=%s reviewer_id=%s", payment.ID, payment.FeeCategory, cmd.ReviewerID)

	result := &domain.ReviewResult{
		PaymentID:   payment.ID,
		Status:      domain.PaymentStatusApproved,
		FeeCategory: payment.FeeCategory,
	}
	if application != nil {
		appID := application.ID
		result.ApplicationID = &appID
	}

	// Status is committed from here on. A failure below leaves the payment
	// approved; the partial result is returned alongside the error and the
	// settlement-gap audit keeps the state detectable.
	if err := s.settle(ctx, payment, account, application, result); err != nil {
		log.Printf("level=error component=service flow=payment_review msg=\"settlement failed after approval committed\" payment_id=%s err=%v", payment.ID, err)
		return result, fmt.Errorf("settlement failed after approval committed: %w", err)
	}

	event := domain.PaymentReviewedEvent{
		PaymentID:   payment.ID,
		StudentID:   payment.StudentID,
		FeeCategory: payment.FeeCategory,
		Status:      domain.PaymentStatusApproved,
		Amount:      result.SettledAmount,
		SellerID:    account.SellerID,
		ReferrerID:  result.RewardedTo,
		ReviewedAt:  now,
	}
	if application != nil {
		appID := application.ID
		event.ApplicationID = &appID
		event.UniversityName = application.UniversityName
	}
	result.Warnings = append(result.Warnings, s.notifier.DispatchReviewed(ctx, event)...)

	return result, nil
}

// settle runs the per-category state mutations: fee flags, settlement ledger
// and referral reward. Fee flag and ledger failures are fatal; reward
// crediting is best-effort and only ever adds a warning.
func (s *Service) settle(
	ctx context.Context,
	payment *domain.ManualPayment,
	account *domain.FeeAccount,
	application *domain.ScholarshipApplication,
	result *domain.ReviewResult,
) error {
	pricing := s.buildPricingContext(ctx, account)

	switch payment.FeeCategory {
	case domain.FeeSelectionProcess:
		if err := s.repo.SetSelectionProcessFeePaid(ctx, payment.StudentID); err != nil {
			return fmt.Errorf("failed to set selection-process fee flag: %w", err)
		}
		result.SettledAmount = pricing.AmountOwed(domain.FeeSelectionProcess)
		created, err := s.repo.RecordSettlement(ctx, domain.SettlementEntry{
			PaymentID:   payment.ID,
			StudentID:   payment.StudentID,
			FeeCategory: payment.FeeCategory,
			Amount:      result.SettledAmount,
			Source:      settlementSource,
		})
		if err != nil {
			return fmt.Errorf("failed to record settlement: %w", err)
		}
		result.LedgerCreated = created

		credit, rewardErr := s.CreditReferralReward(ctx, payment.StudentID)
		if rewardErr != nil {
			log.Printf("level=error component=service flow=payment_review msg=\"referral reward crediting failed\" payment_id=%s student_id=%s err=%v", payment.ID, payment.StudentID, rewardErr)
			result.Warnings = append(result.Warnings, fmt.Sprintf("referral reward crediting failed: %v", rewardErr))
		} else if credit.Credited {
			result.RewardedTo = credit.ReferrerID
		}

	case domain.FeeI20Control:
		if err := s.repo.SetI20ControlFeePaid(ctx, payment.StudentID); err != nil {
			return fmt.Errorf("failed to set i20-control fee flag: %w", err)
		}
		result.SettledAmount = pricing.AmountOwed(domain.FeeI20Control)
		created, err := s.repo.RecordSettlement(ctx, domain.SettlementEntry{
			PaymentID:   payment.ID,
			StudentID:   payment.StudentID,
			FeeCategory: payment.FeeCategory,
			Amount:      result.SettledAmount,
			Source:      settlementSource,
		})
		if err != nil {
			return fmt.Errorf("failed to record settlement: %w", err)
		}
		result.LedgerCreated = created

	case domain.FeeApplication:
		if err := s.repo.SetApplicationFeePaid(ctx, application.ID); err != nil {
			return fmt.Errorf("failed to set application fee flag: %w", err)
		}
		if err := s.repo.SetStudentApplicationFeePaid(ctx, payment.StudentID); err != nil {
			return fmt.Errorf("failed to set student application fee flag: %w", err)
		}
		// Application fees are collected on behalf of universities and are not
		// revenue-recognized, so nothing is posted to the settlement ledger.
		result.SettledAmount = payment.Amount

	case domain.FeeScholarship:
		if err := s.repo.SetScholarshipFeePaid(ctx, application.ID); err != nil {
			return fmt.Errorf("failed to set scholarship fee flag: %w", err)
		}
		result.SettledAmount = pricing.AmountOwed(domain.FeeScholarship)
		created, err := s.repo.RecordSettlement(ctx, domain.SettlementEntry{
			PaymentID:   payment.ID,
			StudentID:   payment.StudentID,
			FeeCategory: payment.FeeCategory,
			Amount:      result.SettledAmount,
			Source:      settlementSource,
		})
		if err != nil {
			return fmt.Errorf("failed to record settlement: %w", err)
		}
		result.LedgerCreated = created
	}

	return nil
}
