/**
 * @description
 * Event payloads emitted after a manual payment review. The notification
 * dispatcher fans these out to the payer, admin, affiliate-admin and seller
 * channels, and to the university-facing integration for application-scoped
 * categories.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentReviewedEvent describes a completed review decision. One event feeds
// every notification channel; the dispatcher derives per-channel payloads.
type PaymentReviewedEvent struct {
	PaymentID      uuid.UUID   `json:"payment_id"`
	StudentID      uuid.UUID   `json:"student_id"`
	FeeCategory    FeeCategory `json:"fee_category"`
	Status         string      `json:"status"` // approved | rejected
	Amount         int64       `json:"amount"` // in cents
	Reason         string      `json:"reason,omitempty"`
	ApplicationID  *uuid.UUID  `json:"application_id,omitempty"`
	UniversityName string      `json:"university_name,omitempty"`
	SellerID       *uuid.UUID  `json:"seller_id,omitempty"`
	ReferrerID     *uuid.UUID  `json:"referrer_id,omitempty"`
	ReviewedAt     time.Time   `json:"reviewed_at"`
}
