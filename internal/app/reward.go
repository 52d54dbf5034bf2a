/**
 * @description
 * Referral reward crediting. When a selection-process fee settles for a student
 * who signed up with an active referral code, the code's owner receives a fixed
 * reward. Crediting is best-effort relative to the rest of settlement: a
 * failure here is logged and surfaced as a warning, never as an error.
 *
 * @dependencies
 * - context, errors, log: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/studyglobal/payment-review-service/internal/domain"
	"github.com/studyglobal/payment-review-service/internal/store"
)

// rewardReasonSelectionProcess is the dedup reason written to the reward
// ledger. One credit per (referrer, student, reason) tuple means a retried
// approval cannot double-credit.
const rewardReasonSelectionProcess = "selection_process_fee_paid"

// CreditReferralReward credits the fixed referral reward to the owner of the
// referral code the student used at signup.
//
// No code, an inactive code, or a code owned by the student themself all
// return credited=false without error — these are expected states, not
// failures.
func (s *Service) CreditReferralReward(ctx context.Context, studentID uuid.UUID) (domain.RewardCredit, error) {
	usage, err := s.repo.FindReferralUsageByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, store.ErrReferralNotFound) {
			return domain.RewardCredit{}, nil
		}
		return domain.RewardCredit{}, err
	}
	if !usage.CodeActive {
		log.Printf("level=info component=reward msg=\"referral code inactive; skipping credit\" student_id=%s code=%s", studentID, usage.Code)
		return domain.RewardCredit{}, nil
	}
	if usage.OwnerID == studentID {
		log.Printf("level=warn component=reward msg=\"self-referral blocked\" student_id=%s code=%s", studentID, usage.Code)
		return domain.RewardCredit{}, nil
	}

	created, err := s.repo.CreditReferralReward(ctx, usage.OwnerID, studentID, s.rewardAmount, rewardReasonSelectionProcess)
	if err != nil {
		return domain.RewardCredit{}, err
	}
	if !created {
		log.Printf("level=info component=reward msg=\"reward already credited; skipping\" student_id=%s referrer_id=%s", studentID, usage.OwnerID)
		return domain.RewardCredit{ReferrerID: &usage.OwnerID}, nil
	}

	referrerID := usage.OwnerID
	return domain.RewardCredit{Credited: true, ReferrerID: &referrerID, Amount: s.rewardAmount}, nil
}
