package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/studyglobal/payment-review-service/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestAmountOwed_Precedence(t *testing.T) {
	pkg := &domain.PricingPackage{
		ID:                  uuid.New(),
		Name:                "standard",
		SelectionProcessFee: int64Ptr(35000),
		I20ControlFee:       int64Ptr(80000),
	}

	tests := []struct {
		name     string
		pc       PricingContext
		category domain.FeeCategory
		want     int64
	}{
		{
			name:     "default when nothing else set",
			pc:       PricingContext{Defaults: testDefaults()},
			category: domain.FeeI20Control,
			want:     90000,
		},
		{
			name:     "package beats default",
			pc:       PricingContext{Defaults: testDefaults(), Package: pkg},
			category: domain.FeeI20Control,
			want:     80000,
		},
		{
			name: "override beats package",
			pc: PricingContext{
				Defaults:           testDefaults(),
				Package:            pkg,
				I20ControlOverride: int64Ptr(70000),
			},
			category: domain.FeeI20Control,
			want:     70000,
		},
		{
			name:     "package without a scholarship fee falls through to default",
			pc:       PricingContext{Defaults: testDefaults(), Package: pkg},
			category: domain.FeeScholarship,
			want:     60000,
		},
		{
			name: "selection process adds per-dependent surcharge",
			pc: PricingContext{
				Defaults:       testDefaults(),
				DependentCount: 3,
			},
			category: domain.FeeSelectionProcess,
			want:     55000,
		},
		{
			name: "surcharge applies on top of the package fee",
			pc: PricingContext{
				Defaults:       testDefaults(),
				Package:        pkg,
				DependentCount: 1,
			},
			category: domain.FeeSelectionProcess,
			want:     40000,
		},
		{
			name: "override is inclusive of dependents",
			pc: PricingContext{
				Defaults:                 testDefaults(),
				DependentCount:           4,
				SelectionProcessOverride: int64Ptr(42000),
			},
			category: domain.FeeSelectionProcess,
			want:     42000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pc.AmountOwed(tt.category); got != tt.want {
				t.Fatalf("AmountOwed(%s) = %d, want %d", tt.category, got, tt.want)
			}
		})
	}
}

func TestBuildPricingContext_PackageLookupFailureDegradesToDefaults(t *testing.T) {
	studentID := uuid.New()
	missingPkg := uuid.New()
	repo := newReviewRepoFake()
	svc := newTestService(repo, &notifierStub{})

	pc := svc.buildPricingContext(context.Background(), &domain.FeeAccount{
		StudentID: studentID,
		PackageID: &missingPkg,
	})
	if pc.Package != nil {
		t.Fatal("a missing package row must not be attached to the context")
	}
	if got := pc.AmountOwed(domain.FeeI20Control); got != 90000 {
		t.Fatalf("expected fallback to the default amount, got %d", got)
	}
}

func TestBuildPricingContext_LoadsPackageRow(t *testing.T) {
	studentID := uuid.New()
	repo := newReviewRepoFake()
	repo.pricingPkg = &domain.PricingPackage{
		ID:             uuid.New(),
		Name:           "premium",
		ScholarshipFee: int64Ptr(45000),
	}
	svc := newTestService(repo, &notifierStub{})

	pc := svc.buildPricingContext(context.Background(), &domain.FeeAccount{
		StudentID: studentID,
		PackageID: &repo.pricingPkg.ID,
	})
	if got := pc.AmountOwed(domain.FeeScholarship); got != 45000 {
		t.Fatalf("expected the package scholarship fee, got %d", got)
	}
}
