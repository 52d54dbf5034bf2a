package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/studyglobal/payment-review-service/internal/domain"
	"github.com/studyglobal/payment-review-service/internal/store"
)

// reviewRepoFake is an in-memory Repository used across the service tests. It
// embeds the interface so unimplemented methods panic loudly if a test ever
// reaches them.
type reviewRepoFake struct {
	store.Repository

	payment      *domain.ManualPayment
	account      *domain.FeeAccount
	pricingPkg   *domain.PricingPackage
	applications []domain.ScholarshipApplication
	referral     *domain.ReferralUsage
	gaps         []domain.SettlementGap

	ledger  map[uuid.UUID]domain.SettlementEntry
	rewards map[string]int64

	reviewedParams *store.ReviewUpdateParams
	flagErr        error
	recordErr      error
	rewardErr      error
	selectionPaid  bool
	i20Paid        bool
	studentAppPaid bool
	appFeeSet      []uuid.UUID
	scholarshipSet []uuid.UUID
	attributionSet *uuid.UUID
}

func newReviewRepoFake() *reviewRepoFake {
	return &reviewRepoFake{
		ledger:  map[uuid.UUID]domain.SettlementEntry{},
		rewards: map[string]int64{},
	}
}

func (f *reviewRepoFake) FindManualPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.ManualPayment, error) {
	if f.payment == nil || f.payment.ID != paymentID {
		return nil, store.ErrPaymentNotFound
	}
	cp := *f.payment
	return &cp, nil
}

func (f *reviewRepoFake) MarkPaymentReviewed(ctx context.Context, paymentID uuid.UUID, params store.ReviewUpdateParams) error {
	if f.payment == nil || f.payment.ID != paymentID {
		return store.ErrPaymentNotFound
	}
	if f.payment.Status != domain.PaymentStatusPending {
		return store.ErrAlreadyReviewed
	}
	f.payment.Status = params.Status
	f.payment.ReviewerID = &params.ReviewerID
	reviewedAt := params.ReviewedAt
	f.payment.ReviewedAt = &reviewedAt
	f.payment.AdminNotes = params.AdminNotes
	f.reviewedParams = &params
	return nil
}

func (f *reviewRepoFake) AttachPaymentAttribution(ctx context.Context, paymentID uuid.UUID, applicationID uuid.UUID) error {
	if f.payment == nil || f.payment.ID != paymentID {
		return store.ErrPaymentNotFound
	}
	if f.payment.Status != domain.PaymentStatusPending {
		return store.ErrAlreadyReviewed
	}
	f.payment.ApplicationID = &applicationID
	f.attributionSet = &applicationID
	return nil
}

func (f *reviewRepoFake) FindFeeAccountByStudentID(ctx context.Context, studentID uuid.UUID) (*domain.FeeAccount, error) {
	if f.account == nil || f.account.StudentID != studentID {
		return nil, store.ErrStudentNotFound
	}
	cp := *f.account
	return &cp, nil
}

func (f *reviewRepoFake) FindPricingPackageByID(ctx context.Context, packageID uuid.UUID) (*domain.PricingPackage, error) {
	if f.pricingPkg == nil || f.pricingPkg.ID != packageID {
		return nil, store.ErrPackageNotFound
	}
	cp := *f.pricingPkg
	return &cp, nil
}

func (f *reviewRepoFake) SetSelectionProcessFeePaid(ctx context.Context, studentID uuid.UUID) error {
	if f.flagErr != nil {
		return f.flagErr
	}
	f.selectionPaid = true
	return nil
}

func (f *reviewRepoFake) SetI20ControlFeePaid(ctx context.Context, studentID uuid.UUID) error {
	if f.flagErr != nil {
		return f.flagErr
	}
	f.i20Paid = true
	return nil
}

func (f *reviewRepoFake) SetStudentApplicationFeePaid(ctx context.Context, studentID uuid.UUID) error {
	if f.flagErr != nil {
		return f.flagErr
	}
	f.studentAppPaid = true
	return nil
}

func (f *reviewRepoFake) FindScholarshipApplicationByID(ctx context.Context, applicationID uuid.UUID) (*domain.ScholarshipApplication, error) {
	for i := range f.applications {
		if f.applications[i].ID == applicationID {
			cp := f.applications[i]
			return &cp, nil
		}
	}
	return nil, store.ErrApplicationNotFound
}

func (f *reviewRepoFake) ListScholarshipApplicationsByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.ScholarshipApplication, error) {
	apps := []domain.ScholarshipApplication{}
	for _, a := range f.applications {
		if a.StudentID == studentID {
			apps = append(apps, a)
		}
	}
	return apps, nil
}

func (f *reviewRepoFake) SetApplicationFeePaid(ctx context.Context, applicationID uuid.UUID) error {
	if f.flagErr != nil {
		return f.flagErr
	}
	for i := range f.applications {
		if f.applications[i].ID == applicationID {
			f.applications[i].IsApplicationFeePaid = true
			f.appFeeSet = append(f.appFeeSet, applicationID)
			return nil
		}
	}
	return store.ErrApplicationNotFound
}

func (f *reviewRepoFake) SetScholarshipFeePaid(ctx context.Context, applicationID uuid.UUID) error {
	if f.flagErr != nil {
		return f.flagErr
	}
	for i := range f.applications {
		if f.applications[i].ID == applicationID {
			f.applications[i].IsScholarshipFeePaid = true
			f.scholarshipSet = append(f.scholarshipSet, applicationID)
			return nil
		}
	}
	return store.ErrApplicationNotFound
}

func (f *reviewRepoFake) RecordSettlement(ctx context.Context, entry domain.SettlementEntry) (bool, error) {
	if f.recordErr != nil {
		return false, f.recordErr
	}
	if _, exists := f.ledger[entry.PaymentID]; exists {
		return false, nil
	}
	entry.RecordedAt = time.Now().UTC()
	f.ledger[entry.PaymentID] = entry
	return true, nil
}

func (f *reviewRepoFake) ListSettlementGaps(ctx context.Context, limit int) ([]domain.SettlementGap, error) {
	return f.gaps, nil
}

func (f *reviewRepoFake) FindReferralUsageByStudent(ctx context.Context, studentID uuid.UUID) (*domain.ReferralUsage, error) {
	if f.referral == nil || f.referral.StudentID != studentID {
		return nil, store.ErrReferralNotFound
	}
	cp := *f.referral
	return &cp, nil
}

func (f *reviewRepoFake) CreditReferralReward(ctx context.Context, referrerID, referredStudentID uuid.UUID, amount int64, reason string) (bool, error) {
	if f.rewardErr != nil {
		return false, f.rewardErr
	}
	key := referrerID.String() + "|" + referredStudentID.String() + "|" + reason
	if _, exists := f.rewards[key]; exists {
		return false, nil
	}
	f.rewards[key] = amount
	return true, nil
}

// notifierStub records dispatched events and returns canned warnings.
type notifierStub struct {
	events   []domain.PaymentReviewedEvent
	warnings []string
}

func (n *notifierStub) DispatchReviewed(ctx context.Context, event domain.PaymentReviewedEvent) []string {
	n.events = append(n.events, event)
	return n.warnings
}

func testDefaults() DefaultFees {
	return DefaultFees{
		SelectionProcess:   40000,
		I20Control:         90000,
		Scholarship:        60000,
		DependentSurcharge: 5000,
	}
}

func newTestService(repo *reviewRepoFake, notifier *notifierStub) *Service {
	return NewService(repo, notifier, testDefaults(), 10000)
}

func pendingPayment(category domain.FeeCategory, studentID uuid.UUID, amount int64) *domain.ManualPayment {
	return &domain.ManualPayment{
		ID:          uuid.New(),
		StudentID:   studentID,
		FeeCategory: category,
		Amount:      amount,
		ProofURL:    "https://proofs.studyglobal.com/receipt.pdf",
		Status:      domain.PaymentStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}
