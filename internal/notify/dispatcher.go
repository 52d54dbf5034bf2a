/**
 * @description
 * Best-effort notification fan-out for review outcomes. The dispatcher turns
 * one PaymentReviewedEvent into per-channel messages: payer, admin,
 * affiliate-admin and seller events on the message broker, plus the
 * university-facing HTTP call for application-scoped categories.
 *
 * Delivery is at-most-once with a short per-call timeout. Failures are logged
 * and reported back as warning strings; nothing here can fail a review.
 *
 * @dependencies
 * - context, fmt, log, time: Standard Go libraries.
 * - internal/domain: Event payloads.
 * - pkg/rabbitmq, pkg/universityclient: Delivery transports.
 */

package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/studyglobal/payment-review-service/internal/domain"
	"github.com/studyglobal/payment-review-service/pkg/rabbitmq"
	"github.com/studyglobal/payment-review-service/pkg/universityclient"
)

const (
	eventsExchange = "studyglobal.events"

	routingKeyPayer          = "payment.review.payer"
	routingKeyAdmin          = "payment.review.admin"
	routingKeyAffiliateAdmin = "payment.review.affiliate_admin"
	routingKeySeller         = "payment.review.seller"
)

// UniversityNotifier is the subset of the university client the dispatcher needs.
type UniversityNotifier interface {
	NotifyFeePaid(ctx context.Context, req universityclient.FeePaidRequest) error
}

// Dispatcher fans review events out to every notification channel.
type Dispatcher struct {
	producer   rabbitmq.Publisher
	university UniversityNotifier
	timeout    time.Duration
}

// NewDispatcher creates a dispatcher. timeout bounds each individual delivery
// attempt; zero falls back to 5s.
func NewDispatcher(producer rabbitmq.Publisher, university UniversityNotifier, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		producer:   producer,
		university: university,
		timeout:    timeout,
	}
}

// DispatchReviewed delivers one review outcome to all channels. Each delivery
// gets its own timeout and exactly one attempt. The returned warnings name the
// channels that failed.
func (d *Dispatcher) DispatchReviewed(ctx context.Context, event domain.PaymentReviewedEvent) []string {
	warnings := []string{}

	channels := []struct {
		routingKey string
		include    bool
	}{
		{routingKeyPayer, true},
		{routingKeyAdmin, true},
		{routingKeyAffiliateAdmin, true},
		{routingKeySeller, event.SellerID != nil},
	}

	for _, ch := range channels {
		if !ch.include {
			continue
		}
		if err := d.publish(ctx, ch.routingKey, event); err != nil {
			log.Printf("level=warn component=notify msg=\"event publish failed\" routing_key=%s payment_id=%s err=%v", ch.routingKey, event.PaymentID, err)
			warnings = append(warnings, fmt.Sprintf("notification %s failed: %v", ch.routingKey, err))
		}
	}

	// The university integration only cares about settled application and
	// scholarship fees, never rejections.
	if event.Status == domain.PaymentStatusApproved && event.FeeCategory.ApplicationScoped() && event.ApplicationID != nil {
		if err := d.notifyUniversity(ctx, event); err != nil {
			log.Printf("level=warn component=notify msg=\"university fee-paid call failed\" payment_id=%s application_id=%s err=%v", event.PaymentID, *event.ApplicationID, err)
			warnings = append(warnings, fmt.Sprintf("university notification failed: %v", err))
		}
	}

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

func (d *Dispatcher) publish(ctx context.Context, routingKey string, event domain.PaymentReviewedEvent) error {
	if d.producer == nil {
		return fmt.Errorf("no event producer configured")
	}
	publishCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.producer.Publish(publishCtx, eventsExchange, routingKey, event)
}

func (d *Dispatcher) notifyUniversity(ctx context.Context, event domain.PaymentReviewedEvent) error {
	if d.university == nil {
		return fmt.Errorf("no university client configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.university.NotifyFeePaid(callCtx, universityclient.FeePaidRequest{
		StudentID:     event.StudentID.String(),
		ApplicationID: event.ApplicationID.String(),
		FeeCategory:   string(event.FeeCategory),
		Amount:        event.Amount,
		PaidAt:        event.ReviewedAt.UTC().Format(time.RFC3339),
	})
}
