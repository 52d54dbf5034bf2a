/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the SQL needed to read manual payments, perform the guarded
 * review transition, mutate fee flags, and append to the settlement and reward
 * ledgers.
 *
 * @dependencies
 * - context, errors, fmt, strings: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyglobal/payment-review-service/internal/domain"
)

var (
	ErrPaymentNotFound     = errors.New("manual payment not found")
	ErrStudentNotFound     = errors.New("student fee account not found")
	ErrApplicationNotFound = errors.New("scholarship application not found")
	ErrPackageNotFound     = errors.New("pricing package not found")
	ErrReferralNotFound    = errors.New("referral usage not found")
	// ErrAlreadyReviewed is returned when the conditional review transition
	// matches zero rows: the payment already left pending_verification.
	ErrAlreadyReviewed = errors.New("payment already reviewed")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const manualPaymentColumns = `id, student_id, fee_category, amount, application_id, proof_url, status, reviewer_id, reviewed_at, admin_notes, created_at, updated_at`

func scanManualPayment(row pgx.Row) (*domain.ManualPayment, error) {
	var p domain.ManualPayment
	err := row.Scan(
		&p.ID, &p.StudentID, &p.FeeCategory, &p.Amount, &p.ApplicationID,
		&p.ProofURL, &p.Status, &p.ReviewerID, &p.ReviewedAt, &p.AdminNotes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindManualPaymentByID retrieves one manual payment record.
func (r *PostgresRepository) FindManualPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.ManualPayment, error) {
	query := fmt.Sprintf(`SELECT %s FROM manual_payments WHERE id = $1`, manualPaymentColumns)
	p, err := scanManualPayment(r.db.QueryRow(ctx, query, paymentID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListManualPayments returns the review queue, newest first, filtered by status
// and fee category when provided.
func (r *PostgresRepository) ListManualPayments(ctx context.Context, opts domain.PaymentListOptions) ([]domain.ManualPayment, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	conditions := []string{}
	args := []interface{}{}
	if s := strings.TrimSpace(opts.Status); s != "" {
		args = append(args, s)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if c := strings.TrimSpace(opts.FeeCategory); c != "" {
		args = append(args, c)
		conditions = append(conditions, fmt.Sprintf("fee_category = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM manual_payments`, manualPaymentColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []domain.ManualPayment{}
	for rows.Next() {
		p, scanErr := scanManualPayment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// MarkPaymentReviewed performs the optimistic-concurrency status transition.
// The WHERE clause on the current status makes exactly one concurrent reviewer
// win; the loser sees zero rows affected and gets ErrAlreadyReviewed.
func (r *PostgresRepository) MarkPaymentReviewed(ctx context.Context, paymentID uuid.UUID, params ReviewUpdateParams) error {
	query := `
		UPDATE manual_payments
		SET status = $1, reviewer_id = $2, reviewed_at = $3, admin_notes = COALESCE($4, admin_notes), updated_at = NOW()
		WHERE id = $5 AND status = $6`
	result, err := r.db.Exec(ctx, query,
		params.Status, params.ReviewerID, params.ReviewedAt, params.AdminNotes,
		paymentID, domain.PaymentStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Distinguish a lost race from a missing payment.
		var exists bool
		if checkErr := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM manual_payments WHERE id = $1)`, paymentID).Scan(&exists); checkErr != nil {
			return checkErr
		}
		if !exists {
			return ErrPaymentNotFound
		}
		return ErrAlreadyReviewed
	}
	return nil
}

// AttachPaymentAttribution sets the explicit application id on a pending
// payment so that a prior AmbiguousAttribution outcome can be corrected.
func (r *PostgresRepository) AttachPaymentAttribution(ctx context.Context, paymentID uuid.UUID, applicationID uuid.UUID) error {
	query := `
		UPDATE manual_payments
		SET application_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`
	result, err := r.db.Exec(ctx, query, applicationID, paymentID, domain.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to attach attribution: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if checkErr := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM manual_payments WHERE id = $1)`, paymentID).Scan(&exists); checkErr != nil {
			return checkErr
		}
		if !exists {
			return ErrPaymentNotFound
		}
		return ErrAlreadyReviewed
	}
	return nil
}

// FindFeeAccountByStudentID retrieves the student's fee account aggregate.
func (r *PostgresRepository) FindFeeAccountByStudentID(ctx context.Context, studentID uuid.UUID) (*domain.FeeAccount, error) {
	var a domain.FeeAccount
	query := `
		SELECT student_id, has_paid_selection_process_fee, has_paid_i20_control_fee, is_application_fee_paid,
		       dependent_count, package_id, selection_process_fee_override, i20_control_fee_override,
		       scholarship_fee_override, seller_id, updated_at
		FROM fee_accounts WHERE student_id = $1`
	err := r.db.QueryRow(ctx, query, studentID).Scan(
		&a.StudentID, &a.HasPaidSelectionProcess, &a.HasPaidI20Control, &a.IsApplicationFeePaid,
		&a.DependentCount, &a.PackageID, &a.SelectionProcessOverride, &a.I20ControlOverride,
		&a.ScholarshipOverride, &a.SellerID, &a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindPricingPackageByID retrieves package-defined fee amounts.
func (r *PostgresRepository) FindPricingPackageByID(ctx context.Context, packageID uuid.UUID) (*domain.PricingPackage, error) {
	var p domain.PricingPackage
	query := `SELECT id, name, selection_process_fee, i20_control_fee, scholarship_fee FROM pricing_packages WHERE id = $1`
	err := r.db.QueryRow(ctx, query, packageID).Scan(&p.ID, &p.Name, &p.SelectionProcessFee, &p.I20ControlFee, &p.ScholarshipFee)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return &p, nil
}

// setFeeAccountFlag flips one boolean column to true. The SET ... = true form
// keeps the mutation monotonic regardless of retries.
func (r *PostgresRepository) setFeeAccountFlag(ctx context.Context, studentID uuid.UUID, column string) error {
	query := fmt.Sprintf(`UPDATE fee_accounts SET %s = true, updated_at = NOW() WHERE student_id = $1`, column)
	result, err := r.db.Exec(ctx, query, studentID)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *PostgresRepository) SetSelectionProcessFeePaid(ctx context.Context, studentID uuid.UUID) error {
	return r.setFeeAccountFlag(ctx, studentID, "has_paid_selection_process_fee")
}

func (r *PostgresRepository) SetI20ControlFeePaid(ctx context.Context, studentID uuid.UUID) error {
	return r.setFeeAccountFlag(ctx, studentID, "has_paid_i20_control_fee")
}

func (r *PostgresRepository) SetStudentApplicationFeePaid(ctx context.Context, studentID uuid.UUID) error {
	return r.setFeeAccountFlag(ctx, studentID, "is_application_fee_paid")
}

// FindScholarshipApplicationByID retrieves one scholarship application.
func (r *PostgresRepository) FindScholarshipApplicationByID(ctx context.Context, applicationID uuid.UUID) (*domain.ScholarshipApplication, error) {
	var app domain.ScholarshipApplication
	query := `
		SELECT id, student_id, scholarship_id, university_name, status,
		       is_application_fee_paid, is_scholarship_fee_paid, created_at, updated_at
		FROM scholarship_applications WHERE id = $1`
	err := r.db.QueryRow(ctx, query, applicationID).Scan(
		&app.ID, &app.StudentID, &app.ScholarshipID, &app.UniversityName, &app.Status,
		&app.IsApplicationFeePaid, &app.IsScholarshipFeePaid, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

// ListScholarshipApplicationsByStudent returns all applications for a student.
func (r *PostgresRepository) ListScholarshipApplicationsByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.ScholarshipApplication, error) {
	query := `
		SELECT id, student_id, scholarship_id, university_name, status,
		       is_application_fee_paid, is_scholarship_fee_paid, created_at, updated_at
		FROM scholarship_applications WHERE student_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []domain.ScholarshipApplication{}
	for rows.Next() {
		var app domain.ScholarshipApplication
		if scanErr := rows.Scan(
			&app.ID, &app.StudentID, &app.ScholarshipID, &app.UniversityName, &app.Status,
			&app.IsApplicationFeePaid, &app.IsScholarshipFeePaid, &app.CreatedAt, &app.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// setApplicationFlag flips one boolean column on a single application.
func (r *PostgresRepository) setApplicationFlag(ctx context.Context, applicationID uuid.UUID, column string) error {
	query := fmt.Sprintf(`UPDATE scholarship_applications SET %s = true, updated_at = NOW() WHERE id = $1`, column)
	result, err := r.db.Exec(ctx, query, applicationID)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

func (r *PostgresRepository) SetApplicationFeePaid(ctx context.Context, applicationID uuid.UUID) error {
	return r.setApplicationFlag(ctx, applicationID, "is_application_fee_paid")
}

func (r *PostgresRepository) SetScholarshipFeePaid(ctx context.Context, applicationID uuid.UUID) error {
	return r.setApplicationFlag(ctx, applicationID, "is_scholarship_fee_paid")
}

// RecordSettlement appends one settlement ledger entry. The primary key on
// payment_id plus ON CONFLICT DO NOTHING makes the append idempotent; the
// returned flag reports whether this call created the entry.
func (r *PostgresRepository) RecordSettlement(ctx context.Context, entry domain.SettlementEntry) (bool, error) {
	query := `
		INSERT INTO settlement_ledger (payment_id, student_id, fee_category, amount, source, recorded_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (payment_id) DO NOTHING`
	result, err := r.db.Exec(ctx, query, entry.PaymentID, entry.StudentID, entry.FeeCategory, entry.Amount, entry.Source)
	if err != nil {
		return false, fmt.Errorf("failed to record settlement: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListSettlementGaps finds approved payments in ledger-posting categories with
// no settlement entry. These are the detectable partial-failure states left
// behind when a post-transition step failed.
func (r *PostgresRepository) ListSettlementGaps(ctx context.Context, limit int) ([]domain.SettlementGap, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT p.id, p.student_id, p.fee_category, p.amount, p.reviewed_at
		FROM manual_payments p
		LEFT JOIN settlement_ledger l ON l.payment_id = p.id
		WHERE p.status = $1 AND p.fee_category <> $2 AND l.payment_id IS NULL
		ORDER BY p.reviewed_at
		LIMIT $3`
	rows, err := r.db.Query(ctx, query, domain.PaymentStatusApproved, domain.FeeApplication, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gaps := []domain.SettlementGap{}
	for rows.Next() {
		var g domain.SettlementGap
		if scanErr := rows.Scan(&g.PaymentID, &g.StudentID, &g.FeeCategory, &g.Amount, &g.ReviewedAt); scanErr != nil {
			return nil, scanErr
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}

// FindReferralUsageByStudent resolves the referral code a student signed up
// with and the active owner of that code.
func (r *PostgresRepository) FindReferralUsageByStudent(ctx context.Context, studentID uuid.UUID) (*domain.ReferralUsage, error) {
	var u domain.ReferralUsage
	query := `
		SELECT ru.student_id, ru.code, rc.owner_id, rc.is_active
		FROM referral_usages ru
		JOIN referral_codes rc ON rc.code = ru.code
		WHERE ru.student_id = $1`
	err := r.db.QueryRow(ctx, query, studentID).Scan(&u.StudentID, &u.Code, &u.OwnerID, &u.CodeActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreditReferralReward appends a reward ledger entry and credits the referrer
// balance atomically. The unique key on (referrer_id, referred_student_id,
// reason) dedupes retried approvals: the balance is only credited when the
// entry insert actually happened.
func (r *PostgresRepository) CreditReferralReward(ctx context.Context, referrerID, referredStudentID uuid.UUID, amount int64, reason string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin reward transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO reward_ledger (referrer_id, referred_student_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (referrer_id, referred_student_id, reason) DO NOTHING`
	result, err := tx.Exec(ctx, insert, referrerID, referredStudentID, amount, reason)
	if err != nil {
		return false, fmt.Errorf("failed to insert reward entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE seller_balances SET balance = balance + $1, updated_at = NOW() WHERE seller_id = $2`, amount, referrerID); err != nil {
		return false, fmt.Errorf("failed to credit referrer balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit reward transaction: %w", err)
	}
	return true, nil
}
