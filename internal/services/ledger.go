package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kassenwart/finepot-api/internal/database"
	"github.com/kassenwart/finepot-api/internal/models"
)

var (
	ErrInvalidInput    = errors.New("exactly one of rule or custom label with amount required")
	ErrInvalidOffender = errors.New("offender is not an active team member")
	ErrInvalidRule     = errors.New("rule not found or inactive")
	ErrTeamClosed      = errors.New("team is closed for new fines")
	ErrAlreadyPaid     = errors.New("fine is already fully paid")
	ErrNoUnpaidFines   = errors.New("payer has no unpaid fines")
	ErrFineNotFound    = errors.New("fine not found")
	ErrConflict        = errors.New("concurrent update conflict, retry the operation")
)

const fineColumns = `id, team_id, offender_id, issuer_id, rule_id, label, amount, amount_paid, status, note, created_at`

type LedgerService struct {
	db *database.DB
}

func NewLedgerService(db *database.DB) *LedgerService {
	return &LedgerService{db: db}
}

func scanFine(row pgx.Row) (*models.Fine, error) {
	var fine models.Fine
	err := row.Scan(
		&fine.ID, &fine.TeamID, &fine.OffenderID, &fine.IssuerID, &fine.RuleID,
		&fine.Label, &fine.Amount, &fine.AmountPaid, &fine.Status, &fine.Note,
		&fine.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFineNotFound
		}
		return nil, err
	}
	return &fine, nil
}

// conflictOr maps retryable transaction failures to ErrConflict and wraps
// anything else.
func conflictOr(err error, msg string) error {
	if database.IsSerializationFailure(err) {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// roundCents snaps a monetary amount to cent precision. Amounts are stored
// as NUMERIC(12,2), so every mutation rounds before deriving status or
// persisting; the value compared is the value the database keeps.
func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

type CreateFineInput struct {
	TeamID     uuid.UUID
	OffenderID uuid.UUID
	IssuerID   uuid.UUID
	IssuerRole string
	RuleID     *uuid.UUID
	// Label and Amount describe a custom fine when RuleID is nil. With a
	// rule, a positive Amount overrides the rule's amount.
	Label  string
	Amount float64
	Note   string
}

func (s *LedgerService) CreateFine(ctx context.Context, in CreateFineInput) (*models.Fine, error) {
	hasRule := in.RuleID != nil
	hasCustom := in.Label != "" && in.Amount > 0
	if !hasRule && !hasCustom {
		return nil, ErrInvalidInput
	}
	// A custom label is mutually exclusive with a rule reference. An
	// explicit amount alongside a rule is allowed and overrides it.
	if hasRule && in.Label != "" {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	team, err := teamByID(ctx, tx, in.TeamID)
	if err != nil {
		return nil, err
	}
	if !team.CanCreateFine(in.IssuerRole) {
		return nil, ErrForbidden
	}
	if team.IsClosed {
		return nil, ErrTeamClosed
	}

	var offenderActive bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2 AND is_deleted = FALSE)
	`, in.TeamID, in.OffenderID).Scan(&offenderActive)
	if err != nil {
		return nil, err
	}
	if !offenderActive {
		return nil, ErrInvalidOffender
	}

	label := in.Label
	amount := in.Amount
	if hasRule {
		var ruleLabel string
		var ruleAmount float64
		var isActive bool
		err = tx.QueryRow(ctx, `
			SELECT label, amount, is_active FROM fine_rules WHERE id = $1 AND team_id = $2
		`, *in.RuleID, in.TeamID).Scan(&ruleLabel, &ruleAmount, &isActive)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidRule
			}
			return nil, err
		}
		if !isActive {
			return nil, ErrInvalidRule
		}
		label = ruleLabel
		if amount <= 0 {
			amount = ruleAmount
		}
	}
	if amount <= 0 {
		return nil, ErrInvalidInput
	}

	fine, err := scanFine(tx.QueryRow(ctx, `
		INSERT INTO fines (team_id, offender_id, issuer_id, rule_id, label, amount, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+fineColumns+`
	`, in.TeamID, in.OffenderID, in.IssuerID, in.RuleID, label, amount, nullableString(in.Note)))
	if err != nil {
		return nil, fmt.Errorf("failed to create fine: %w", err)
	}

	err = recordActivity(ctx, tx, in.TeamID, in.IssuerID, models.ActivityFineCreated, map[string]any{
		"fine_id":     fine.ID,
		"offender_id": in.OffenderID,
		"label":       fine.Label,
		"amount":      fine.Amount,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, conflictOr(err, "failed to commit transaction")
	}

	return fine, nil
}

// CreateFines issues the same fine against several offenders. Each fine is
// its own transaction; one offender failing does not roll back the fines
// already created for the others.
func (s *LedgerService) CreateFines(ctx context.Context, in CreateFineInput, offenderIDs []uuid.UUID) ([]models.Fine, map[uuid.UUID]error) {
	created := make([]models.Fine, 0, len(offenderIDs))
	failed := make(map[uuid.UUID]error)

	for _, offenderID := range offenderIDs {
		one := in
		one.OffenderID = offenderID
		fine, err := s.CreateFine(ctx, one)
		if err != nil {
			failed[offenderID] = err
			continue
		}
		created = append(created, *fine)
	}
	return created, failed
}

type RecordPaymentInput struct {
	TeamID       uuid.UUID
	PayerID      uuid.UUID
	FineID       *uuid.UUID
	Amount       float64
	Method       string
	Note         string
	RecordedBy   uuid.UUID
	RecorderRole string
}

// PaymentResult reports where a payment went. For distributed payments,
// TotalApplied plus CreditAdded equals the paid amount; a targeted payment
// clamps to the fine's outstanding balance, so the excess is neither
// applied nor credited.
type PaymentResult struct {
	Payments     []models.Payment `json:"payments"`
	TotalApplied float64          `json:"total_applied"`
	CreditAdded  float64          `json:"credit_added"`
}

// RecordPayment applies a payment to one fine (FineID set) or distributes it
// across the payer's open fines oldest-first, banking any surplus as credit.
func (s *LedgerService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentResult, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidInput
	}
	if in.Method == "" {
		in.Method = models.PaymentMethodCash
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := teamByID(ctx, tx, in.TeamID); err != nil {
		return nil, err
	}
	if !models.CanManagePot(in.RecorderRole) {
		return nil, ErrForbidden
	}

	result := &PaymentResult{}
	if in.FineID != nil {
		err = s.applyToFine(ctx, tx, in, result)
	} else {
		err = s.distribute(ctx, tx, in, result)
	}
	if err != nil {
		return nil, err
	}
	result.TotalApplied = roundCents(result.TotalApplied)

	err = recordActivity(ctx, tx, in.TeamID, in.RecordedBy, models.ActivityPaymentRecorded, map[string]any{
		"payer_id":      in.PayerID,
		"amount":        in.Amount,
		"total_applied": result.TotalApplied,
		"credit_added":  result.CreditAdded,
		"method":        in.Method,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, conflictOr(err, "failed to commit transaction")
	}

	return result, nil
}

// applyToFine handles the targeted mode: the payment goes to a single fine,
// clamped to its outstanding balance.
func (s *LedgerService) applyToFine(ctx context.Context, tx pgx.Tx, in RecordPaymentInput, result *PaymentResult) error {
	fine, err := scanFine(tx.QueryRow(ctx, `
		SELECT `+fineColumns+` FROM fines WHERE id = $1 AND team_id = $2 FOR UPDATE
	`, *in.FineID, in.TeamID))
	if err != nil {
		if errors.Is(err, ErrFineNotFound) {
			return err
		}
		return conflictOr(err, "failed to lock fine")
	}

	outstanding := fine.Outstanding()
	if outstanding <= 0 {
		return ErrAlreadyPaid
	}

	applied := roundCents(min(in.Amount, outstanding))
	payment, err := insertPayment(ctx, tx, in, &fine.ID, applied)
	if err != nil {
		return err
	}

	if err := settleFine(ctx, tx, fine, applied); err != nil {
		return err
	}

	result.Payments = append(result.Payments, *payment)
	result.TotalApplied = applied
	return nil
}

// distribute walks the payer's open fines oldest-first, paying each off as
// far as the remaining amount reaches. Whatever is left over becomes a
// credit payment banked on the membership.
func (s *LedgerService) distribute(ctx context.Context, tx pgx.Tx, in RecordPaymentInput, result *PaymentResult) error {
	rows, err := tx.Query(ctx, `
		SELECT `+fineColumns+` FROM fines
		WHERE team_id = $1 AND offender_id = $2 AND status != $3
		ORDER BY created_at, id
		FOR UPDATE
	`, in.TeamID, in.PayerID, models.FineStatusPaid)
	if err != nil {
		return conflictOr(err, "failed to lock fines")
	}

	var open []models.Fine
	for rows.Next() {
		var fine models.Fine
		if err := rows.Scan(
			&fine.ID, &fine.TeamID, &fine.OffenderID, &fine.IssuerID, &fine.RuleID,
			&fine.Label, &fine.Amount, &fine.AmountPaid, &fine.Status, &fine.Note,
			&fine.CreatedAt,
		); err != nil {
			rows.Close()
			return err
		}
		open = append(open, fine)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(open) == 0 {
		return ErrNoUnpaidFines
	}

	remaining := roundCents(in.Amount)
	for i := range open {
		if remaining <= 0 {
			break
		}
		fine := &open[i]
		applied := roundCents(min(remaining, fine.Outstanding()))
		if applied <= 0 {
			continue
		}

		payment, err := insertPayment(ctx, tx, in, &fine.ID, applied)
		if err != nil {
			return err
		}
		if err := settleFine(ctx, tx, fine, applied); err != nil {
			return err
		}

		result.Payments = append(result.Payments, *payment)
		result.TotalApplied += applied
		remaining = roundCents(remaining - applied)
	}

	if remaining > 0 {
		payment, err := insertPayment(ctx, tx, in, nil, remaining)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE team_members SET credit = credit + $1
			WHERE team_id = $2 AND user_id = $3
		`, remaining, in.TeamID, in.PayerID)
		if err != nil {
			return conflictOr(err, "failed to add credit")
		}
		if tag.RowsAffected() == 0 {
			return ErrMemberNotFound
		}

		result.Payments = append(result.Payments, *payment)
		result.CreditAdded = remaining
	}

	return nil
}

func insertPayment(ctx context.Context, tx pgx.Tx, in RecordPaymentInput, fineID *uuid.UUID, amount float64) (*models.Payment, error) {
	var p models.Payment
	err := tx.QueryRow(ctx, `
		INSERT INTO payments (team_id, fine_id, payer_id, amount, method, note, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, team_id, fine_id, payer_id, amount, method, note, recorded_by, created_at
	`, in.TeamID, fineID, in.PayerID, amount, in.Method, nullableString(in.Note), in.RecordedBy).Scan(
		&p.ID, &p.TeamID, &p.FineID, &p.PayerID, &p.Amount, &p.Method, &p.Note,
		&p.RecordedBy, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}
	return &p, nil
}

// settleFine adds the applied amount to the fine and recomputes its status.
// The fine row must already be locked by the caller.
func settleFine(ctx context.Context, tx pgx.Tx, fine *models.Fine, applied float64) error {
	newPaid := roundCents(fine.AmountPaid + applied)
	status := models.DeriveFineStatus(fine.Amount, newPaid)

	_, err := tx.Exec(ctx, `
		UPDATE fines SET amount_paid = $1, status = $2 WHERE id = $3
	`, newPaid, status, fine.ID)
	if err != nil {
		return fmt.Errorf("failed to update fine: %w", err)
	}

	fine.AmountPaid = newPaid
	fine.Status = status
	return nil
}

// forgiveFine drives a fine to fully paid as the outcome of a successful
// dispute. It runs on the caller's transaction; the row should be locked.
func (s *LedgerService) forgiveFine(ctx context.Context, tx pgx.Tx, teamID, fineID uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE fines SET amount_paid = amount, status = $1
		WHERE id = $2 AND team_id = $3
	`, models.FineStatusPaid, fineID, teamID)
	if err != nil {
		return fmt.Errorf("failed to forgive fine: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFineNotFound
	}
	return nil
}

// DeleteFine removes a fine for good. Admin only; payments that referenced
// it survive with their fine_id cleared.
func (s *LedgerService) DeleteFine(ctx context.Context, teamID, fineID, actorID uuid.UUID, actorRole string) error {
	if !models.CanAdminister(actorRole) {
		return ErrForbidden
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	fine, err := scanFine(tx.QueryRow(ctx, `
		SELECT `+fineColumns+` FROM fines WHERE id = $1 AND team_id = $2 FOR UPDATE
	`, fineID, teamID))
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM fines WHERE id = $1`, fineID); err != nil {
		return fmt.Errorf("failed to delete fine: %w", err)
	}

	err = recordActivity(ctx, tx, teamID, actorID, models.ActivityFineDeleted, map[string]any{
		"fine_id":     fine.ID,
		"offender_id": fine.OffenderID,
		"label":       fine.Label,
		"amount":      fine.Amount,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return conflictOr(err, "failed to commit transaction")
	}
	return nil
}

func (s *LedgerService) GetFine(ctx context.Context, teamID, fineID uuid.UUID) (*models.Fine, error) {
	return scanFine(s.db.Pool.QueryRow(ctx, `
		SELECT `+fineColumns+` FROM fines WHERE id = $1 AND team_id = $2
	`, fineID, teamID))
}

// FineFilter narrows ListFines; zero values mean no filtering.
type FineFilter struct {
	OffenderID *uuid.UUID
	Status     string
}

func (s *LedgerService) ListFines(ctx context.Context, teamID uuid.UUID, filter FineFilter) ([]models.Fine, error) {
	query := `SELECT ` + fineColumns + ` FROM fines WHERE team_id = $1`
	args := []any{teamID}

	if filter.OffenderID != nil {
		args = append(args, *filter.OffenderID)
		query += fmt.Sprintf(" AND offender_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fines []models.Fine
	for rows.Next() {
		var fine models.Fine
		if err := rows.Scan(
			&fine.ID, &fine.TeamID, &fine.OffenderID, &fine.IssuerID, &fine.RuleID,
			&fine.Label, &fine.Amount, &fine.AmountPaid, &fine.Status, &fine.Note,
			&fine.CreatedAt,
		); err != nil {
			return nil, err
		}
		fines = append(fines, fine)
	}
	return fines, nil
}

func (s *LedgerService) ListPayments(ctx context.Context, teamID uuid.UUID, fineID *uuid.UUID) ([]models.Payment, error) {
	query := `
		SELECT id, team_id, fine_id, payer_id, amount, method, note, recorded_by, created_at
		FROM payments WHERE team_id = $1`
	args := []any{teamID}

	if fineID != nil {
		args = append(args, *fineID)
		query += fmt.Sprintf(" AND fine_id = $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(
			&p.ID, &p.TeamID, &p.FineID, &p.PayerID, &p.Amount, &p.Method, &p.Note,
			&p.RecordedBy, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// MemberBalance aggregates one member's standing in the pot. Forgiven fines
// count as paid here, same as genuinely paid ones.
type MemberBalance struct {
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	TotalFined  float64   `json:"total_fined"`
	TotalPaid   float64   `json:"total_paid"`
	Outstanding float64   `json:"outstanding"`
	Credit      float64   `json:"credit"`
}

func (s *LedgerService) MemberBalances(ctx context.Context, teamID uuid.UUID) ([]MemberBalance, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT tm.user_id, u.name, tm.role, tm.credit,
		       COALESCE(SUM(f.amount), 0) AS total_fined,
		       COALESCE(SUM(f.amount_paid), 0) AS total_paid
		FROM team_members tm
		JOIN users u ON tm.user_id = u.id
		LEFT JOIN fines f ON f.team_id = tm.team_id AND f.offender_id = tm.user_id
		WHERE tm.team_id = $1 AND tm.is_deleted = FALSE
		GROUP BY tm.user_id, u.name, tm.role, tm.credit
		ORDER BY total_fined DESC
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []MemberBalance
	for rows.Next() {
		var b MemberBalance
		if err := rows.Scan(&b.UserID, &b.Name, &b.Role, &b.Credit, &b.TotalFined, &b.TotalPaid); err != nil {
			return nil, err
		}
		b.Outstanding = b.TotalFined - b.TotalPaid
		balances = append(balances, b)
	}
	return balances, nil
}
