package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/studyglobal/payment-review-service/internal/domain"
	"github.com/studyglobal/payment-review-service/internal/store"
)

func TestReview_SecondCallGetsAlreadyReviewed(t *testing.T) {
	studentID := uuid.New()
	repo := newReviewRepoFake()
	repo.payment = pendingPayment(domain.FeeI20Control, studentID, 90000)
	repo.account = &domain.FeeAccount{StudentID: studentID}
	notifier := &notifierStub{}
	svc := newTestService(repo, notifier)

	cmd := domain.ReviewCommand{
		PaymentID:  repo.payment.ID,
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionApprove,
	}

	if _, err := svc.Review(context.Background(), cmd); err != nil {
		t.Fatalf("first review failed: %v", err)
	}
	ledgerBefore := len(repo.ledger)

	_, err := svc.Review(context.Background(), cmd)
	if !errors.Is(err, store.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
	if len(repo.ledger) != ledgerBefore {
		t.Fatalf("second review must not add ledger entries, got %d -> %d", ledgerBefore, len(repo.ledger))
	}
}

func TestReview_RejectAfterApproveKeepsApproved(t *testing.T) {
	// Scenario D: a reject racing in after an approval loses and changes nothing.
	studentID := uuid.New()
	repo := newReviewRepoFake()
	repo.payment = pendingPayment(domain.FeeSelectionProcess, studentID, 40000)
	repo.account = &domain.FeeAccount{StudentID: studentID}
	notifier := &notifierStub{}
	svc := newTestService(repo, notifier)

	if _, err := svc.Review(context.Background(), domain.ReviewCommand{
		PaymentID:  repo.payment.ID,
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionApprove,
	}); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	_, err := svc.Review(context.Background(), domain.ReviewCommand{
		PaymentID:  repo.payment.ID,
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionReject,
		Reason:     "proof illegible",
	})
	if !errors.Is(err, store.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
	if repo.payment.Status != domain.PaymentStatusApproved {
		t.Fatalf("expected status to remain approved, got %q", repo.payment.Status)
	}
}

func TestReview_RejectRequiresReason(t *testing.T) {
	studentID := uuid.New()
	repo := newReviewRepoFake()
	repo.payment = pendingPayment(domain.FeeSelectionProcess, studentID, 40000)
	svc := newTestService(repo, &notifierStub{})

	_, err := svc.Review(context.Background(), domain.ReviewCommand{
		PaymentID:  repo.payment.ID,
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionReject,
	})
	if !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if repo.payment.Status != domain.PaymentStatusPending {
		t.Fatalf("payment must stay pending, got %q", repo.payment.Status)
	}
}

func TestReview_RejectStoresReasonAndNotifiesPayer(t *testing.T) {
	studentID := uuid.New()
	repo := newReviewRepoFake()
	repo.payment = pendingPayment(domain.FeeScholarship, studentID, 60000)
	notifier := &notifierStub{}
	svc := newTestService(repo, notifier)

	result, err := svc.Review(context.Background(), domain.ReviewCommand{
		PaymentID:  repo.payment.ID,
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionReject,
		Reason:     "amount does not match receipt",
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if result.Status != domain.PaymentStatusRejected {
		t.Fatalf("expected rejected result, got %q", result.Status)
	}
	if repo.payment.AdminNotes == nil || *repo.payment.AdminNotes != "amount does not match receipt" {
		t.Fatal("expected rejection reason stored on payment")
	}
	if len(repo.ledger) != 0 || repo.selectionPaid || repo.i20Paid {
		t.Fatal("reject must not mutate ledgers or fee flags")
	}
	if len(notifier.events) != 1 || notifier.events[0].Reason != "amount does not match receipt" {
		t.Fatalf("expected one payer notification carrying the reason, got %+v", notifier.events)
	}
}

func TestReview_UnknownPaymentIsNotFound(t *testing.T) {
	repo := newReviewRepoFake()
	svc := newTestService(repo, &notifierStub{})

	_, err := svc.Review(context.Background(), domain.ReviewCommand{
		PaymentID:  uuid.New(),
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionApprove,
	})
	if !errors.Is(err, store.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}
