package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studyglobal/payment-review-service/internal/domain"
)

func scholarshipApplication(studentID uuid.UUID) domain.ScholarshipApplication {
	return domain.ScholarshipApplication{
		ID:             uuid.New(),
		StudentID:      studentID,
		ScholarshipID:  uuid.New(),
		UniversityName: "Coastal State University",
		Status:         "enrolled",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestReview_ScholarshipFeeWithSingleApplication(t *testing.T) {
	// Scenario A: one application, scholarship fee approved.
	studentID := uuid.New()
	repo := newReviewRepoFake()
	repo.payment = pendingPayment(domain.FeeScholarship, studentID, 90000)
	override := int64(90000)
	repo.account = &domain.FeeAccount{StudentID: studentID, ScholarshipOverride: &override}
	app1 := scholarshipApplication(studentID)
	repo.applications = []domain.ScholarshipApplication{app1}
	notifier := &notifierStub{}
	svc := newTestService(repo, notifier)

	result, err := svc.Review(context.Background(), domain.ReviewCommand{
		PaymentID:  repo.payment.ID,
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionApprove,
	})
	if err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	if !repo.applications[0].IsScholarshipFeePaid {
		t.Fatal("expected scholarship fee flag set on the single application")
	}
	if result.ApplicationID == nil || *result.ApplicationID != app1.ID {
		t.Fatalf("expected resolved application %s in result, got %v", app1.ID, result.ApplicationID)
	}
	entry, ok := repo.ledger[repo.payment.ID]
	if !ok {
		t.Fatal("expected a settlement ledger entry")
	}
	if entry.Amount != 90000 {
		t.Fatalf("expected ledger amount 90000, got %d", entry.Amount)
	}
	if len(repo.rewards) != 0 {
		t.Fatal("scholarship fee must not trigger a referral reward")
	}
}

func TestReview_ApplicationFeeAmbiguousAttributionFailsClosed(t *testing.T) {
	// Scenario B: two applications, no explicit attribution.
	studentID := uuid.New()
	repo := newReviewRepoFake()
	repo.payment = pendingPayment(domain.FeeApplication, studentID, 15000)
	repo.account = &domain.FeeAccount{StudentID: studentID}
	repo.applications = []domain.ScholarshipApplication{
		scholarshipApplication(studentID),
		scholarshipApplication(studentID),
	}
	svc := newTestService(repo, &notifierStub{})

	_, err := svc.Review(context.Background(), domain.ReviewCommand{
		PaymentID:  repo.payment.ID,
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionApprove,
	})
	if !errors.Is(err, ErrAmbiguousAttribution) {
		t.Fatalf("expected ErrAmbiguousAttribution, got %v", err)
	}
	for i, a := range repo.applications {
		if a.IsApplicationFeePaid || a.IsScholarshipFeePaid {
			t.Fatalf("application %d must not be mutated on ambiguous attribution", i)
		}
	}
	if repo.payment.Status != domain.PaymentStatusPending {
		t.Fatalf("payment must stay pending for operator correction, got %q", repo.payment.Status)
	}
}

func TestReview_ExplicitAttributionPicksThatApplication(t *testing.T) {
	studentID := uuid.New()
	repo := newReviewRepoFake()
	app1 := scholarshipApplication(studentID)
	app2 := scholarshipApplication(studentID)
	repo.applications = []domain.ScholarshipApplication{app1, app2}
	repo.payment = pendingPayment(domain.FeeApplication, studentID, 15000)
	repo.payment.ApplicationID = &app2.ID
	repo.account = &domain.FeeAccount{StudentID: studentID}
	svc := newTestService(repo, &notifierStub{})

	result, err := svc.Review(context.Background(), domain.ReviewCommand{
		PaymentID:  repo.payment.ID,
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionApprove,
	})
	if err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	if repo.applications[0].IsApplicationFeePaid {
		t.Fatal("only the attributed application may be mutated")
	}
	if !repo.applications[1].IsApplicationFeePaid {
		t.Fatal("expected application fee flag on the attributed application")
	}
	if !repo.studentAppPaid {
		t.Fatal("expected student-level application fee convenience flag set")
	}
	if result.ApplicationID == nil || *result.ApplicationID != app2.ID {
		t.Fatalf("expected result to carry application %s, got %v", app2.ID, result.ApplicationID)
	}
	if len(repo.ledger) != 0 {
		t.Fatal("application fees must not post to the settlement ledger")
	}
}

func TestAttachAttribution_RejectsForeignApplication(t *testing.T) {
	studentID := uuid.New()
	otherStudent := uuid.New()
	repo := newReviewRepoFake()
	repo.payment = pendingPayment(domain.FeeApplication, studentID, 15000)
	foreign := scholarshipApplication(otherStudent)
	repo.applications = []domain.ScholarshipApplication{foreign}
	svc := newTestService(repo, &notifierStub{})

	err := svc.AttachAttribution(context.Background(), repo.payment.ID, foreign.ID)
	if err == nil {
		t.Fatal("expected error attaching another student's application")
	}
	if repo.attributionSet != nil {
		t.Fatal("attribution must not be stored")
	}
}

func TestAttachAttribution_ThenApproveSucceeds(t *testing.T) {
	studentID := uuid.New()
	repo := newReviewRepoFake()
	app1 := scholarshipApplication(studentID)
	app2 := scholarshipApplication(studentID)
	repo.applications = []domain.ScholarshipApplication{app1, app2}
	repo.payment = pendingPayment(domain.FeeScholarship, studentID, 60000)
	repo.account = &domain.FeeAccount{StudentID: studentID}
	svc := newTestService(repo, &notifierStub{})

	cmd := domain.ReviewCommand{
		PaymentID:  repo.payment.ID,
		ReviewerID: uuid.New(),
		Decision:   domain.DecisionApprove,
	}
	if _, err := svc.Review(context.Background(), cmd); !errors.Is(err, ErrAmbiguousAttribution) {
		t.Fatalf("expected ambiguous attribution first, got %v", err)
	}

	if err := svc.AttachAttribution(context.Background(), repo.payment.ID, app1.ID); err != nil {
		t.Fatalf("attach attribution failed: %v", err)
	}
	result, err := svc.Review(context.Background(), cmd)
	if err != nil {
		t.Fatalf("retry after correction failed: %v", err)
	}
	if result.ApplicationID == nil || *result.ApplicationID != app1.ID {
		t.Fatalf("expected settlement against corrected application %s", app1.ID)
	}
	if !repo.applications[0].IsScholarshipFeePaid || repo.applications[1].IsScholarshipFeePaid {
		t.Fatal("only the corrected application may be settled")
	}
}
