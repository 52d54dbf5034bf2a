/**
 * @description
 * Attribution resolution for application-scoped fee categories. A manual
 * payment for an application or scholarship fee must settle against exactly one
 * scholarship application; this file decides which one, or fails closed.
 *
 * @dependencies
 * - context, errors, fmt: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/studyglobal/payment-review-service/internal/domain"
	"github.com/studyglobal/payment-review-service/internal/store"
)

// ErrAmbiguousAttribution is returned when a student holds multiple
// scholarship applications and the payment carries no explicit attribution.
// The system never guesses; the operator must attach the correct application
// id to the payment and retry the approval.
var ErrAmbiguousAttribution = errors.New("multiple scholarship applications and no explicit attribution")

// resolveApplication determines the single scholarship application a payment
// settles against.
//
// Policy, in order:
//  1. explicit attribution recorded on the payment, verified to belong to the
//     paying student;
//  2. the student's only application, when exactly one exists;
//  3. fail closed with ErrAmbiguousAttribution.
func (s *Service) resolveApplication(ctx context.Context, studentID uuid.UUID, explicitID *uuid.UUID) (*domain.ScholarshipApplication, error) {
	if explicitID != nil {
		application, err := s.repo.FindScholarshipApplicationByID(ctx, *explicitID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attributed application: %w", err)
		}
		if application.StudentID != studentID {
			return nil, fmt.Errorf("attributed application %s does not belong to student %s: %w", application.ID, studentID, store.ErrApplicationNotFound)
		}
		return application, nil
	}

	applications, err := s.repo.ListScholarshipApplicationsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list student applications: %w", err)
	}
	switch len(applications) {
	case 0:
		return nil, store.ErrApplicationNotFound
	case 1:
		return &applications[0], nil
	}
	return nil, ErrAmbiguousAttribution
}
