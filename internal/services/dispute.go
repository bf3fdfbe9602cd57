package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kassenwart/finepot-api/internal/database"
	"github.com/kassenwart/finepot-api/internal/models"
)

var (
	ErrDisputesDisabled  = errors.New("disputes are not enabled for this team")
	ErrNotOffender       = errors.New("only the fined member can dispute a fine")
	ErrDisputeExists     = errors.New("fine already has a pending dispute")
	ErrDisputeNotFound   = errors.New("dispute not found")
	ErrDisputeNotPending = errors.New("dispute is already resolved")
	ErrWrongDisputeMode  = errors.New("not available in this dispute mode")
	ErrOwnDispute        = errors.New("cannot vote on own dispute")
	ErrAlreadyVoted      = errors.New("already voted on this dispute")
)

const disputeColumns = `d.id, d.fine_id, d.disputer_id, d.reason, d.status, d.votes_count, d.votes_required, d.resolved_by, d.resolution_note, d.created_at, d.updated_at`

// DisputeService runs the contestation lifecycle. It calls back into the
// ledger only to forgive a fine when a dispute ends in the disputer's favor.
type DisputeService struct {
	db     *database.DB
	ledger *LedgerService
}

func NewDisputeService(db *database.DB, ledger *LedgerService) *DisputeService {
	return &DisputeService{db: db, ledger: ledger}
}

func scanDispute(row pgx.Row) (*models.FineDispute, error) {
	var d models.FineDispute
	err := row.Scan(
		&d.ID, &d.FineID, &d.DisputerID, &d.Reason, &d.Status,
		&d.VotesCount, &d.VotesRequired, &d.ResolvedBy, &d.ResolutionNote,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return &d, nil
}

// lockDispute loads a dispute scoped to the team and locks both the dispute
// row and its fine, since a resolution may rewrite the fine.
func lockDispute(ctx context.Context, tx pgx.Tx, teamID, disputeID uuid.UUID) (*models.FineDispute, error) {
	dispute, err := scanDispute(tx.QueryRow(ctx, `
		SELECT `+disputeColumns+`
		FROM fine_disputes d
		JOIN fines f ON d.fine_id = f.id
		WHERE d.id = $1 AND f.team_id = $2
		FOR UPDATE
	`, disputeID, teamID))
	if err != nil {
		if errors.Is(err, ErrDisputeNotFound) {
			return nil, err
		}
		return nil, conflictOr(err, "failed to lock dispute")
	}
	return dispute, nil
}

type CreateDisputeInput struct {
	TeamID     uuid.UUID
	FineID     uuid.UUID
	DisputerID uuid.UUID
	Reason     string
}

// Create opens a dispute on an unpaid fine. Only the offender may contest,
// and a fine carries at most one live dispute at a time.
func (s *DisputeService) Create(ctx context.Context, in CreateDisputeInput) (*models.FineDispute, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	team, err := teamByID(ctx, tx, in.TeamID)
	if err != nil {
		return nil, err
	}
	if !team.DisputeEnabled {
		return nil, ErrDisputesDisabled
	}

	fine, err := scanFine(tx.QueryRow(ctx, `
		SELECT `+fineColumns+` FROM fines WHERE id = $1 AND team_id = $2 FOR UPDATE
	`, in.FineID, in.TeamID))
	if err != nil {
		if errors.Is(err, ErrFineNotFound) {
			return nil, err
		}
		return nil, conflictOr(err, "failed to lock fine")
	}

	if fine.OffenderID != in.DisputerID {
		return nil, ErrNotOffender
	}
	if fine.Status == models.FineStatusPaid {
		return nil, ErrAlreadyPaid
	}

	var pendingExists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM fine_disputes WHERE fine_id = $1 AND status = $2)
	`, in.FineID, models.DisputeStatusPending).Scan(&pendingExists)
	if err != nil {
		return nil, err
	}
	if pendingExists {
		return nil, ErrDisputeExists
	}

	dispute, err := scanDispute(tx.QueryRow(ctx, `
		INSERT INTO fine_disputes (fine_id, disputer_id, reason, votes_required)
		VALUES ($1, $2, $3, $4)
		RETURNING id, fine_id, disputer_id, reason, status, votes_count, votes_required, resolved_by, resolution_note, created_at, updated_at
	`, in.FineID, in.DisputerID, in.Reason, team.VotesRequired()))
	if err != nil {
		// The partial unique index backstops the pending check under
		// concurrent creation.
		if database.IsUniqueViolation(err, "") {
			return nil, ErrDisputeExists
		}
		return nil, fmt.Errorf("failed to create dispute: %w", err)
	}

	err = recordActivity(ctx, tx, in.TeamID, in.DisputerID, models.ActivityDisputeOpened, map[string]any{
		"dispute_id": dispute.ID,
		"fine_id":    in.FineID,
		"reason":     in.Reason,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, conflictOr(err, "failed to commit transaction")
	}

	return dispute, nil
}

type VoteInput struct {
	TeamID    uuid.UUID
	DisputeID uuid.UUID
	VoterID   uuid.UUID
	// Approve true votes to cancel the fine; false votes to maintain it,
	// which raises the cancellation threshold by one instead of counting
	// toward a rejection.
	Approve bool
}

// Vote records a community vote and applies the threshold rules. Reaching
// votes_required auto-approves the dispute and forgives the fine in the
// same transaction.
func (s *DisputeService) Vote(ctx context.Context, in VoteInput) (*models.FineDispute, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	team, err := teamByID(ctx, tx, in.TeamID)
	if err != nil {
		return nil, err
	}
	if !team.CommunityVoting() {
		return nil, ErrWrongDisputeMode
	}

	dispute, err := lockDispute(ctx, tx, in.TeamID, in.DisputeID)
	if err != nil {
		return nil, err
	}
	if dispute.IsTerminal() {
		return nil, ErrDisputeNotPending
	}
	if dispute.DisputerID == in.VoterID {
		return nil, ErrOwnDispute
	}

	var alreadyVoted bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM fine_dispute_votes WHERE dispute_id = $1 AND voter_id = $2)
	`, in.DisputeID, in.VoterID).Scan(&alreadyVoted)
	if err != nil {
		return nil, err
	}
	if alreadyVoted {
		return nil, ErrAlreadyVoted
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO fine_dispute_votes (dispute_id, voter_id, vote)
		VALUES ($1, $2, $3)
	`, in.DisputeID, in.VoterID, in.Approve)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}

	if in.Approve {
		dispute.VotesCount++
		if dispute.VotesCount >= dispute.VotesRequired {
			dispute.Status = models.DisputeStatusAutoApproved
			_, err = tx.Exec(ctx, `
				UPDATE fine_disputes SET votes_count = $1, status = $2, updated_at = NOW()
				WHERE id = $3
			`, dispute.VotesCount, dispute.Status, dispute.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to update dispute: %w", err)
			}
			if err := s.ledger.forgiveFine(ctx, tx, in.TeamID, dispute.FineID); err != nil {
				return nil, err
			}
		} else {
			_, err = tx.Exec(ctx, `
				UPDATE fine_disputes SET votes_count = $1, updated_at = NOW()
				WHERE id = $2
			`, dispute.VotesCount, dispute.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to update dispute: %w", err)
			}
		}
	} else {
		dispute.VotesRequired++
		_, err = tx.Exec(ctx, `
			UPDATE fine_disputes SET votes_required = $1, updated_at = NOW()
			WHERE id = $2
		`, dispute.VotesRequired, dispute.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update dispute: %w", err)
		}
	}

	err = recordActivity(ctx, tx, in.TeamID, in.VoterID, models.ActivityDisputeVoteCast, map[string]any{
		"dispute_id":     dispute.ID,
		"fine_id":        dispute.FineID,
		"approve":        in.Approve,
		"votes_count":    dispute.VotesCount,
		"votes_required": dispute.VotesRequired,
		"status":         dispute.Status,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, conflictOr(err, "failed to commit transaction")
	}

	return dispute, nil
}

type ResolveInput struct {
	TeamID       uuid.UUID
	DisputeID    uuid.UUID
	ResolverID   uuid.UUID
	ResolverRole string
	Approve      bool
	Note         string
}

// Resolve is the direct admin/treasurer decision in simple mode. Approving
// forgives the fine; rejecting leaves its paid state untouched.
func (s *DisputeService) Resolve(ctx context.Context, in ResolveInput) (*models.FineDispute, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	team, err := teamByID(ctx, tx, in.TeamID)
	if err != nil {
		return nil, err
	}
	if team.CommunityVoting() {
		return nil, ErrWrongDisputeMode
	}
	if !models.CanManagePot(in.ResolverRole) {
		return nil, ErrForbidden
	}

	dispute, err := lockDispute(ctx, tx, in.TeamID, in.DisputeID)
	if err != nil {
		return nil, err
	}
	if dispute.IsTerminal() {
		return nil, ErrDisputeNotPending
	}

	if in.Approve {
		dispute.Status = models.DisputeStatusApproved
	} else {
		dispute.Status = models.DisputeStatusRejected
	}
	dispute.ResolvedBy = &in.ResolverID
	dispute.ResolutionNote = nullableString(in.Note)

	_, err = tx.Exec(ctx, `
		UPDATE fine_disputes SET status = $1, resolved_by = $2, resolution_note = $3, updated_at = NOW()
		WHERE id = $4
	`, dispute.Status, in.ResolverID, dispute.ResolutionNote, dispute.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dispute: %w", err)
	}

	if in.Approve {
		if err := s.ledger.forgiveFine(ctx, tx, in.TeamID, dispute.FineID); err != nil {
			return nil, err
		}
	}

	err = recordActivity(ctx, tx, in.TeamID, in.ResolverID, models.ActivityDisputeResolved, map[string]any{
		"dispute_id": dispute.ID,
		"fine_id":    dispute.FineID,
		"status":     dispute.Status,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, conflictOr(err, "failed to commit transaction")
	}

	return dispute, nil
}

func (s *DisputeService) GetByID(ctx context.Context, teamID, disputeID uuid.UUID) (*models.FineDispute, error) {
	return scanDispute(s.db.Pool.QueryRow(ctx, `
		SELECT `+disputeColumns+`
		FROM fine_disputes d
		JOIN fines f ON d.fine_id = f.id
		WHERE d.id = $1 AND f.team_id = $2
	`, disputeID, teamID))
}

func (s *DisputeService) ListByTeam(ctx context.Context, teamID uuid.UUID, status string) ([]models.FineDispute, error) {
	query := `
		SELECT ` + disputeColumns + `
		FROM fine_disputes d
		JOIN fines f ON d.fine_id = f.id
		WHERE f.team_id = $1`
	args := []any{teamID}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND d.status = $%d", len(args))
	}
	query += ` ORDER BY d.created_at DESC`

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var disputes []models.FineDispute
	for rows.Next() {
		var d models.FineDispute
		if err := rows.Scan(
			&d.ID, &d.FineID, &d.DisputerID, &d.Reason, &d.Status,
			&d.VotesCount, &d.VotesRequired, &d.ResolvedBy, &d.ResolutionNote,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		disputes = append(disputes, d)
	}
	return disputes, nil
}

func (s *DisputeService) ListVotes(ctx context.Context, teamID, disputeID uuid.UUID) ([]models.FineDisputeVote, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT v.id, v.dispute_id, v.voter_id, v.vote, v.created_at
		FROM fine_dispute_votes v
		JOIN fine_disputes d ON v.dispute_id = d.id
		JOIN fines f ON d.fine_id = f.id
		WHERE v.dispute_id = $1 AND f.team_id = $2
		ORDER BY v.created_at
	`, disputeID, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.FineDisputeVote
	for rows.Next() {
		var v models.FineDisputeVote
		if err := rows.Scan(&v.ID, &v.DisputeID, &v.VoterID, &v.Vote, &v.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, nil
}
