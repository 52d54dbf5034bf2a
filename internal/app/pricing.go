/**
 * @description
 * Pricing resolution for manual payments. Determines the amount owed for a
 * (student, fee category) pair, applying the override > package > default
 * precedence plus the per-dependent surcharge on the selection-process fee.
 *
 * @dependencies
 * - context, log: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"log"

	"github.com/studyglobal/payment-review-service/internal/domain"
)

// DefaultFees carries the system default fee amounts per category, in cents.
// These come from configuration at boot.
type DefaultFees struct {
	SelectionProcess   int64
	I20Control         int64
	Scholarship        int64
	DependentSurcharge int64 // per dependent, selection-process only
}

// PricingContext is the explicit value object the pricing resolver works from.
// It is built once per review call from the student's fee account and package
// row, so resolution itself touches no storage.
type PricingContext struct {
	DependentCount           int
	SelectionProcessOverride *int64
	I20ControlOverride       *int64
	ScholarshipOverride      *int64
	Package                  *domain.PricingPackage
	Defaults                 DefaultFees
}

// buildPricingContext assembles the pricing inputs for one review call. A
// missing or unreadable package row degrades silently to defaults; the failure
// is logged for audit per the pricing-resolution policy.
func (s *Service) buildPricingContext(ctx context.Context, account *domain.FeeAccount) PricingContext {
	pc := PricingContext{
		DependentCount:           account.DependentCount,
		SelectionProcessOverride: account.SelectionProcessOverride,
		I20ControlOverride:       account.I20ControlOverride,
		ScholarshipOverride:      account.ScholarshipOverride,
		Defaults:                 s.defaults,
	}
	if account.PackageID != nil {
		pkg, err := s.repo.FindPricingPackageByID(ctx, *account.PackageID)
		if err != nil {
			log.Printf("level=warn component=pricing msg=\"package lookup failed; falling back to defaults\" student_id=%s package_id=%s err=%v", account.StudentID, *account.PackageID, err)
		} else {
			pc.Package = pkg
		}
	}
	return pc
}

// AmountOwed resolves the amount owed for one fee category.
//
// Precedence: per-student override > package fee > system default. The
// dependent surcharge applies to the selection-process category only, and only
// when no override exists — an override is treated as already inclusive of
// dependents. Application fees are university-set and carried on the payment
// itself, so they are not resolved here.
func (pc PricingContext) AmountOwed(category domain.FeeCategory) int64 {
	switch category {
	case domain.FeeSelectionProcess:
		if pc.SelectionProcessOverride != nil {
			return *pc.SelectionProcessOverride
		}
		base := pc.Defaults.SelectionProcess
		if pc.Package != nil && pc.Package.SelectionProcessFee != nil {
			base = *pc.Package.SelectionProcessFee
		}
		return base + int64(pc.DependentCount)*pc.Defaults.DependentSurcharge
	case domain.FeeI20Control:
		if pc.I20ControlOverride != nil {
			return *pc.I20ControlOverride
		}
		if pc.Package != nil && pc.Package.I20ControlFee != nil {
			return *pc.Package.I20ControlFee
		}
		return pc.Defaults.I20Control
	case domain.FeeScholarship:
		if pc.ScholarshipOverride != nil {
			return *pc.ScholarshipOverride
		}
		if pc.Package != nil && pc.Package.ScholarshipFee != nil {
			return *pc.Package.ScholarshipFee
		}
		return pc.Defaults.Scholarship
	}
	return 0
}
