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
	ErrForbidden       = errors.New("insufficient role for this action")
	ErrTeamNotFound    = errors.New("team not found")
	ErrMemberNotFound  = errors.New("member not found")
	ErrLastAdmin       = errors.New("team must keep at least one admin")
	ErrAlreadyMember   = errors.New("user is already a team member")
	ErrInviteNotFound  = errors.New("invite not found")
	ErrInvalidSettings = errors.New("invalid team settings")
)

// rowQuerier is satisfied by both the pool and a pgx.Tx, so team lookups can
// run inside another service's transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const teamColumns = `id, name, fine_permission, dispute_enabled, dispute_mode, dispute_votes_required, is_closed, created_at, updated_at`

func scanTeam(row pgx.Row) (*models.Team, error) {
	var team models.Team
	err := row.Scan(
		&team.ID, &team.Name, &team.FinePermission, &team.DisputeEnabled,
		&team.DisputeMode, &team.DisputeVotesRequired, &team.IsClosed,
		&team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func teamByID(ctx context.Context, q rowQuerier, teamID uuid.UUID) (*models.Team, error) {
	return scanTeam(q.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, teamID))
}

type TeamService struct {
	db *database.DB
}

func NewTeamService(db *database.DB) *TeamService {
	return &TeamService{db: db}
}

// Create inserts the team and its creator as first admin in one transaction.
func (s *TeamService) Create(ctx context.Context, name string, creatorID uuid.UUID) (*models.Team, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	team, err := scanTeam(tx.QueryRow(ctx, `
		INSERT INTO teams (name)
		VALUES ($1)
		RETURNING `+teamColumns+`
	`, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`, team.ID, creatorID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to add creator as admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return team, nil
}

func (s *TeamService) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	return teamByID(ctx, s.db.Pool, teamID)
}

func (s *TeamService) GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []string, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT t.id, t.name, t.fine_permission, t.dispute_enabled, t.dispute_mode,
		       t.dispute_votes_required, t.is_closed, t.created_at, t.updated_at, tm.role
		FROM teams t
		JOIN team_members tm ON t.id = tm.team_id
		WHERE tm.user_id = $1 AND tm.is_deleted = FALSE
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var teams []models.Team
	var roles []string
	for rows.Next() {
		var team models.Team
		var role string
		if err := rows.Scan(
			&team.ID, &team.Name, &team.FinePermission, &team.DisputeEnabled,
			&team.DisputeMode, &team.DisputeVotesRequired, &team.IsClosed,
			&team.CreatedAt, &team.UpdatedAt, &role,
		); err != nil {
			return nil, nil, err
		}
		teams = append(teams, team)
		roles = append(roles, role)
	}
	return teams, roles, nil
}

// TeamSettingsInput patches team configuration; nil fields are left unchanged.
type TeamSettingsInput struct {
	Name                 *string
	FinePermission       *string
	DisputeEnabled       *bool
	DisputeMode          *string
	DisputeVotesRequired *int
	IsClosed             *bool
}

func (in *TeamSettingsInput) validate() error {
	if in.Name != nil && *in.Name == "" {
		return ErrInvalidSettings
	}
	if in.FinePermission != nil {
		switch *in.FinePermission {
		case models.FinePermissionAdminOnly, models.FinePermissionTreasurer, models.FinePermissionEveryone:
		default:
			return ErrInvalidSettings
		}
	}
	if in.DisputeMode != nil {
		switch *in.DisputeMode {
		case models.DisputeModeSimple, models.DisputeModeCommunity:
		default:
			return ErrInvalidSettings
		}
	}
	if in.DisputeVotesRequired != nil && *in.DisputeVotesRequired < 1 {
		return ErrInvalidSettings
	}
	return nil
}

func (s *TeamService) UpdateSettings(ctx context.Context, teamID uuid.UUID, actorRole string, in TeamSettingsInput) (*models.Team, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	team, err := scanTeam(tx.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, teamID))
	if err != nil {
		return nil, err
	}

	if !models.CanAdminister(actorRole) {
		return nil, ErrForbidden
	}

	if in.Name != nil {
		team.Name = *in.Name
	}
	if in.FinePermission != nil {
		team.FinePermission = *in.FinePermission
	}
	if in.DisputeEnabled != nil {
		team.DisputeEnabled = *in.DisputeEnabled
	}
	if in.DisputeMode != nil {
		team.DisputeMode = in.DisputeMode
	}
	if in.DisputeVotesRequired != nil {
		team.DisputeVotesRequired = in.DisputeVotesRequired
	}
	if in.IsClosed != nil {
		team.IsClosed = *in.IsClosed
	}

	team, err = scanTeam(tx.QueryRow(ctx, `
		UPDATE teams
		SET name = $1, fine_permission = $2, dispute_enabled = $3, dispute_mode = $4,
		    dispute_votes_required = $5, is_closed = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING `+teamColumns+`
	`, team.Name, team.FinePermission, team.DisputeEnabled, team.DisputeMode,
		team.DisputeVotesRequired, team.IsClosed, teamID))
	if err != nil {
		return nil, fmt.Errorf("failed to update team settings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return team, nil
}

func (s *TeamService) Delete(ctx context.Context, teamID uuid.UUID, actorRole string) error {
	if !models.CanAdminister(actorRole) {
		return ErrForbidden
	}
	result, err := s.db.Pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// GetMembership resolves a user's active membership, the role source for
// every permission-gated call.
func (s *TeamService) GetMembership(ctx context.Context, teamID, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, team_id, user_id, role, credit, is_deleted, created_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2 AND is_deleted = FALSE
	`, teamID, userID).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.Credit, &m.IsDeleted, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *TeamService) IsActiveMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2 AND is_deleted = FALSE)
	`, teamID, userID).Scan(&exists)
	return exists, err
}

func (s *TeamService) GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.Membership, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.credit, tm.is_deleted, tm.created_at,
		       u.id, u.email, u.name, u.created_at, u.updated_at
		FROM team_members tm
		JOIN users u ON tm.user_id = u.id
		WHERE tm.team_id = $1 AND tm.is_deleted = FALSE
		ORDER BY tm.created_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var member models.Membership
		var user models.User
		if err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &member.Role, &member.Credit,
			&member.IsDeleted, &member.CreatedAt,
			&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		member.User = &user
		members = append(members, member)
	}
	return members, nil
}

func (s *TeamService) SetMemberRole(ctx context.Context, teamID, userID uuid.UUID, actorRole, newRole string) (*models.Membership, error) {
	switch newRole {
	case models.RoleAdmin, models.RoleTreasurer, models.RoleMember:
	default:
		return nil, ErrInvalidSettings
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := teamByID(ctx, tx, teamID); err != nil {
		return nil, err
	}
	if !models.CanAdminister(actorRole) {
		return nil, ErrForbidden
	}

	var m models.Membership
	err = tx.QueryRow(ctx, `
		SELECT id, team_id, user_id, role, credit, is_deleted, created_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2 AND is_deleted = FALSE
		FOR UPDATE
	`, teamID, userID).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.Credit, &m.IsDeleted, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	if m.Role == models.RoleAdmin && newRole != models.RoleAdmin {
		if err := ensureNotLastAdmin(ctx, tx, teamID); err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE team_members SET role = $1 WHERE id = $2
	`, newRole, m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}
	m.Role = newRole

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &m, nil
}

// RemoveMember soft-deletes a member with fine or payment history and
// hard-removes one without. Members may remove themselves; anyone else
// needs an admin actor.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID, actorID uuid.UUID, actorRole string) error {
	if actorID != userID && !models.CanAdminister(actorRole) {
		return ErrForbidden
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var membershipID uuid.UUID
	var role string
	err = tx.QueryRow(ctx, `
		SELECT id, role FROM team_members
		WHERE team_id = $1 AND user_id = $2 AND is_deleted = FALSE
		FOR UPDATE
	`, teamID, userID).Scan(&membershipID, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMemberNotFound
		}
		return err
	}

	if role == models.RoleAdmin {
		if err := ensureNotLastAdmin(ctx, tx, teamID); err != nil {
			return err
		}
	}

	var hasHistory bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM fines WHERE team_id = $1 AND (offender_id = $2 OR issuer_id = $2))
		    OR EXISTS(SELECT 1 FROM payments WHERE team_id = $1 AND payer_id = $2)
	`, teamID, userID).Scan(&hasHistory)
	if err != nil {
		return err
	}

	if hasHistory {
		_, err = tx.Exec(ctx, `UPDATE team_members SET is_deleted = TRUE WHERE id = $1`, membershipID)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM team_members WHERE id = $1`, membershipID)
	}
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return tx.Commit(ctx)
}

func ensureNotLastAdmin(ctx context.Context, q rowQuerier, teamID uuid.UUID) error {
	var admins int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM team_members
		WHERE team_id = $1 AND role = $2 AND is_deleted = FALSE
	`, teamID, models.RoleAdmin).Scan(&admins)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *TeamService) CreateInvite(ctx context.Context, teamID, inviterID uuid.UUID, inviterRole string, inviteeID uuid.UUID) (*models.TeamInvite, error) {
	if !models.CanManagePot(inviterRole) {
		return nil, ErrForbidden
	}

	isMember, err := s.IsActiveMember(ctx, teamID, inviteeID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, ErrAlreadyMember
	}

	var invite models.TeamInvite
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO team_invites (team_id, inviter_id, invitee_id, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, invitee_id) DO UPDATE SET
			inviter_id = EXCLUDED.inviter_id,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, team_id, inviter_id, invitee_id, status, created_at, updated_at
	`, teamID, inviterID, inviteeID, models.InviteStatusPending).Scan(
		&invite.ID, &invite.TeamID, &invite.InviterID, &invite.InviteeID,
		&invite.Status, &invite.CreatedAt, &invite.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	return &invite, nil
}

func (s *TeamService) GetInviteByID(ctx context.Context, inviteID uuid.UUID) (*models.TeamInvite, error) {
	var invite models.TeamInvite
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, team_id, inviter_id, invitee_id, status, created_at, updated_at
		FROM team_invites WHERE id = $1
	`, inviteID).Scan(
		&invite.ID, &invite.TeamID, &invite.InviterID, &invite.InviteeID,
		&invite.Status, &invite.CreatedAt, &invite.UpdatedAt,
	)
	if err != nil {
		return nil, ErrInviteNotFound
	}
	return &invite, nil
}

func (s *TeamService) GetInviteWithDetails(ctx context.Context, inviteID uuid.UUID) (*models.TeamInvite, error) {
	var invite models.TeamInvite
	var team models.Team
	var inviter models.User
	var invitee models.User

	err := s.db.Pool.QueryRow(ctx, `
		SELECT ti.id, ti.team_id, ti.inviter_id, ti.invitee_id, ti.status, ti.created_at, ti.updated_at,
		       t.id, t.name, t.fine_permission, t.dispute_enabled, t.dispute_mode,
		       t.dispute_votes_required, t.is_closed, t.created_at, t.updated_at,
		       inviter.id, inviter.email, inviter.name, inviter.created_at, inviter.updated_at,
		       invitee.id, invitee.email, invitee.name, invitee.created_at, invitee.updated_at
		FROM team_invites ti
		JOIN teams t ON ti.team_id = t.id
		JOIN users inviter ON ti.inviter_id = inviter.id
		JOIN users invitee ON ti.invitee_id = invitee.id
		WHERE ti.id = $1
	`, inviteID).Scan(
		&invite.ID, &invite.TeamID, &invite.InviterID, &invite.InviteeID,
		&invite.Status, &invite.CreatedAt, &invite.UpdatedAt,
		&team.ID, &team.Name, &team.FinePermission, &team.DisputeEnabled, &team.DisputeMode,
		&team.DisputeVotesRequired, &team.IsClosed, &team.CreatedAt, &team.UpdatedAt,
		&inviter.ID, &inviter.Email, &inviter.Name, &inviter.CreatedAt, &inviter.UpdatedAt,
		&invitee.ID, &invitee.Email, &invitee.Name, &invitee.CreatedAt, &invitee.UpdatedAt,
	)
	if err != nil {
		return nil, ErrInviteNotFound
	}

	invite.Team = &team
	invite.Inviter = &inviter
	invite.Invitee = &invitee
	return &invite, nil
}

func (s *TeamService) GetUserPendingInvites(ctx context.Context, userID uuid.UUID) ([]models.TeamInvite, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT ti.id, ti.team_id, ti.inviter_id, ti.invitee_id, ti.status, ti.created_at, ti.updated_at,
		       t.id, t.name, t.fine_permission, t.dispute_enabled, t.dispute_mode,
		       t.dispute_votes_required, t.is_closed, t.created_at, t.updated_at,
		       u.id, u.email, u.name, u.created_at, u.updated_at
		FROM team_invites ti
		JOIN teams t ON ti.team_id = t.id
		JOIN users u ON ti.inviter_id = u.id
		WHERE ti.invitee_id = $1 AND ti.status = $2
		ORDER BY ti.created_at DESC
	`, userID, models.InviteStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.TeamInvite
	for rows.Next() {
		var invite models.TeamInvite
		var team models.Team
		var inviter models.User
		if err := rows.Scan(
			&invite.ID, &invite.TeamID, &invite.InviterID, &invite.InviteeID,
			&invite.Status, &invite.CreatedAt, &invite.UpdatedAt,
			&team.ID, &team.Name, &team.FinePermission, &team.DisputeEnabled, &team.DisputeMode,
			&team.DisputeVotesRequired, &team.IsClosed, &team.CreatedAt, &team.UpdatedAt,
			&inviter.ID, &inviter.Email, &inviter.Name, &inviter.CreatedAt, &inviter.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invite.Team = &team
		invite.Inviter = &inviter
		invites = append(invites, invite)
	}
	return invites, nil
}

func (s *TeamService) GetTeamPendingInvites(ctx context.Context, teamID uuid.UUID) ([]models.TeamInvite, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT ti.id, ti.team_id, ti.inviter_id, ti.invitee_id, ti.status, ti.created_at, ti.updated_at,
		       u.id, u.email, u.name, u.created_at, u.updated_at
		FROM team_invites ti
		JOIN users u ON ti.invitee_id = u.id
		WHERE ti.team_id = $1 AND ti.status = $2
		ORDER BY ti.created_at DESC
	`, teamID, models.InviteStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.TeamInvite
	for rows.Next() {
		var invite models.TeamInvite
		var invitee models.User
		if err := rows.Scan(
			&invite.ID, &invite.TeamID, &invite.InviterID, &invite.InviteeID,
			&invite.Status, &invite.CreatedAt, &invite.UpdatedAt,
			&invitee.ID, &invitee.Email, &invitee.Name, &invitee.CreatedAt, &invitee.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invite.Invitee = &invitee
		invites = append(invites, invite)
	}
	return invites, nil
}

// AcceptInvite marks the invite accepted and activates the membership. A
// returning member's old row is revived so their credit and history survive.
func (s *TeamService) AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var invite models.TeamInvite
	err = tx.QueryRow(ctx, `
		SELECT id, team_id, invitee_id, status FROM team_invites WHERE id = $1
	`, inviteID).Scan(&invite.ID, &invite.TeamID, &invite.InviteeID, &invite.Status)
	if err != nil {
		return ErrInviteNotFound
	}

	if invite.InviteeID != userID || invite.Status != models.InviteStatusPending {
		return ErrInviteNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE team_invites SET status = $1, updated_at = NOW() WHERE id = $2
	`, models.InviteStatusAccepted, inviteID)
	if err != nil {
		return fmt.Errorf("failed to update invite: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO UPDATE SET is_deleted = FALSE
	`, invite.TeamID, userID, models.RoleMember)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *TeamService) DeclineInvite(ctx context.Context, inviteID, userID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		UPDATE team_invites SET status = $1, updated_at = NOW()
		WHERE id = $2 AND invitee_id = $3 AND status = $4
	`, models.InviteStatusDeclined, inviteID, userID, models.InviteStatusPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}

func (s *TeamService) CancelInvite(ctx context.Context, inviteID, teamID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM team_invites WHERE id = $1 AND team_id = $2 AND status = $3
	`, inviteID, teamID, models.InviteStatusPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}
