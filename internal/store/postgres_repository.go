/**
 * @description
 * This file provides the PostgreSQL implementation of the DonationLedger and
 * SponsorshipAggregator interfaces. It contains all the SQL needed to record
 * donation outcomes idempotently and to maintain per-event sponsorship totals.
 *
 * Key invariants enforced here:
 * - donations carries UNIQUE (provider, provider_reference); the create step
 *   is a single conditional insert, so concurrent callbacks for the same
 *   reference resolve to exactly one row.
 * - sponsorship_contributions is keyed by donation_id; the total upsert only
 *   runs when the contribution insert took effect, so a donation's amount is
 *   applied at most once regardless of redelivery.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alumnilink/donation-service/internal/domain"
)

var (
	ErrDonationNotFound = errors.New("donation not found")
	ErrDonorNotFound    = errors.New("donor not found")
	ErrInvalidAmount    = errors.New("donation amount must be positive")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// PostgresRepository is the concrete Postgres-backed implementation of both
// the DonationLedger and the SponsorshipAggregator.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const donationColumns = `id, provider, provider_reference, donor_id, amount, status, event_id, created_at, completed_at, updated_at`

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	err := row.Scan(
		&d.ID,
		&d.Provider,
		&d.ProviderReference,
		&d.DonorID,
		&d.Amount,
		&d.Status,
		&d.EventID,
		&d.CreatedAt,
		&d.CompletedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindDonationByProviderReference looks up the donation recorded for a
// provider transaction reference. Used for idempotency checks and tests.
func (r *PostgresRepository) FindDonationByProviderReference(ctx context.Context, provider domain.PaymentProvider, reference string) (*domain.Donation, error) {
	query := fmt.Sprintf(`SELECT %s FROM donations WHERE provider = $1 AND provider_reference = $2`, donationColumns)
	return scanDonation(r.db.QueryRow(ctx, query, provider, reference))
}

// RecordDonationOutcome inserts the donation if the (provider, reference) pair
// has not been seen, otherwise returns the existing row unchanged. A unique
// violation from a concurrent insert is treated identically to "record already
// exists": the winner's row is fetched and returned.
func (r *PostgresRepository) RecordDonationOutcome(ctx context.Context, params RecordDonationOutcomeParams) (*domain.Donation, bool, error) {
	if params.Amount <= 0 {
		return nil, false, ErrInvalidAmount
	}

	now := time.Now().UTC()
	var completedAt *time.Time
	if params.Outcome == domain.DonationSucceeded {
		completedAt = &now
	}

	insert := fmt.Sprintf(`
		INSERT INTO donations (id, provider, provider_reference, donor_id, amount, status, event_id, created_at, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $8)
		ON CONFLICT (provider, provider_reference) DO NOTHING
		RETURNING %s`, donationColumns)

	donation, err := scanDonation(r.db.QueryRow(ctx, insert,
		uuid.New(),
		params.Provider,
		params.ProviderReference,
		params.DonorID,
		params.Amount,
		params.Outcome,
		params.EventID,
		now,
		completedAt,
	))
	if err == nil {
		return donation, true, nil
	}
	// ON CONFLICT DO NOTHING yields no row when the pair already exists; a
	// racing insert can also surface as a unique violation. Both mean the
	// record exists, so fetch and return it.
	if !errors.Is(err, ErrDonationNotFound) && !isUniqueViolation(err) {
		return nil, false, err
	}

	existing, findErr := r.FindDonationByProviderReference(ctx, params.Provider, params.ProviderReference)
	if findErr != nil {
		return nil, false, findErr
	}
	return existing, false, nil
}

// ListDonationsByDonor returns the donor's donations, newest first. Pending
// rows are included; the caller surfaces them as "pending" rather than hiding
// them.
func (r *PostgresRepository) ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	query := fmt.Sprintf(`SELECT %s FROM donations WHERE donor_id = $1 ORDER BY created_at DESC`, donationColumns)
	rows, err := r.db.Query(ctx, query, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(
			&d.ID,
			&d.Provider,
			&d.ProviderReference,
			&d.DonorID,
			&d.Amount,
			&d.Status,
			&d.EventID,
			&d.CreatedAt,
			&d.CompletedAt,
			&d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// FindDonorIDByClerkUserID resolves the internal donor UUID from a Clerk user id.
// The users table is managed by the auth service during onboarding.
func (r *PostgresRepository) FindDonorIDByClerkUserID(ctx context.Context, clerkUserID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_user_id = $1`, clerkUserID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrDonorNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

// ApplyContribution records the donation in the event's contributing set and
// increments the running total, all in one transaction. The contribution
// insert is the idempotency gate: when the donation id is already present the
// total is left untouched and the call reports applied=false.
func (r *PostgresRepository) ApplyContribution(ctx context.Context, eventID, donationID uuid.UUID, amount int64) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO sponsorship_contributions (event_id, donation_id, amount, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (donation_id) DO NOTHING`,
		eventID, donationID, amount,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		// Already applied by an earlier delivery.
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sponsorship_totals (event_id, total_amount, contribution_count, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (event_id) DO UPDATE
		SET total_amount = sponsorship_totals.total_amount + EXCLUDED.total_amount,
		    contribution_count = sponsorship_totals.contribution_count + 1,
		    updated_at = NOW()`,
		eventID, amount,
	)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GetSponsorshipTotal reads the current running total for an event.
func (r *PostgresRepository) GetSponsorshipTotal(ctx context.Context, eventID uuid.UUID) (*domain.SponsorshipTotal, error) {
	var total domain.SponsorshipTotal
	err := r.db.QueryRow(ctx, `
		SELECT event_id, total_amount, contribution_count, updated_at
		FROM sponsorship_totals
		WHERE event_id = $1`, eventID).Scan(
		&total.EventID,
		&total.TotalAmount,
		&total.ContributionCount,
		&total.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.SponsorshipTotal{EventID: eventID}, nil
		}
		return nil, err
	}
	return &total, nil
}
