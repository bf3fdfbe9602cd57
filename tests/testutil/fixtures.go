package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/database"
	"github.com/kassenwart/finepot-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email: fmt.Sprintf("user%d@example.com", f.counter),
		Name:  fmt.Sprintf("Test User %d", f.counter),
	}
	password := "password123"

	for _, opt := range opts {
		opt(user, &password)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	ctx := context.Background()
	err = f.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, password_hash, created_at, updated_at
	`, user.Email, user.Name, string(hash)).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User, *string)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User, _ *string) {
		u.Email = email
	}
}

// WithName sets the user's name
func WithName(name string) UserOption {
	return func(u *models.User, _ *string) {
		u.Name = name
	}
}

// WithPassword sets the user's password
func WithPassword(password string) UserOption {
	return func(_ *models.User, p *string) {
		*p = password
	}
}

// CreateTeam creates a test team with the given user as admin
func (f *Fixtures) CreateTeam(t *testing.T, admin *models.User, opts ...TeamOption) *models.Team {
	t.Helper()
	f.counter++

	team := &models.Team{
		Name:           fmt.Sprintf("Test Team %d", f.counter),
		FinePermission: models.FinePermissionEveryone,
	}

	for _, opt := range opts {
		opt(team)
	}

	ctx := context.Background()
	tx, err := f.db.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO teams (name, fine_permission, dispute_enabled, dispute_mode, dispute_votes_required, is_closed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, fine_permission, dispute_enabled, dispute_mode, dispute_votes_required, is_closed, created_at, updated_at
	`, team.Name, team.FinePermission, team.DisputeEnabled, team.DisputeMode, team.DisputeVotesRequired, team.IsClosed).Scan(
		&team.ID, &team.Name, &team.FinePermission, &team.DisputeEnabled,
		&team.DisputeMode, &team.DisputeVotesRequired, &team.IsClosed,
		&team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`, team.ID, admin.ID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("failed to add admin as member: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("failed to commit transaction: %v", err)
	}

	return team
}

// TeamOption configures a test team
type TeamOption func(*models.Team)

// WithTeamName sets the team's name
func WithTeamName(name string) TeamOption {
	return func(t *models.Team) {
		t.Name = name
	}
}

// WithFinePermission sets who may issue fines
func WithFinePermission(permission string) TeamOption {
	return func(t *models.Team) {
		t.FinePermission = permission
	}
}

// WithDisputes enables disputes in the given mode
func WithDisputes(mode string, votesRequired int) TeamOption {
	return func(t *models.Team) {
		t.DisputeEnabled = true
		t.DisputeMode = &mode
		if votesRequired > 0 {
			t.DisputeVotesRequired = &votesRequired
		}
	}
}

// WithClosedTeam marks the team closed for new fines
func WithClosedTeam() TeamOption {
	return func(t *models.Team) {
		t.IsClosed = true
	}
}

// AddMember adds a user to a team with the given role and returns the membership
func (f *Fixtures) AddMember(t *testing.T, team *models.Team, user *models.User, role string) *models.Membership {
	t.Helper()
	ctx := context.Background()

	member := &models.Membership{}
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id)
		DO UPDATE SET role = EXCLUDED.role, is_deleted = FALSE
		RETURNING id, team_id, user_id, role, credit, is_deleted, created_at
	`, team.ID, user.ID, role).Scan(
		&member.ID, &member.TeamID, &member.UserID, &member.Role,
		&member.Credit, &member.IsDeleted, &member.CreatedAt,
	)
	if err != nil {
		t.Fatalf("failed to add team member: %v", err)
	}

	return member
}

// SetCredit overwrites a member's banked credit
func (f *Fixtures) SetCredit(t *testing.T, team *models.Team, user *models.User, credit float64) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		UPDATE team_members SET credit = $1 WHERE team_id = $2 AND user_id = $3
	`, credit, team.ID, user.ID)
	if err != nil {
		t.Fatalf("failed to set credit: %v", err)
	}
}

// CreateRule creates a test fine rule for a team
func (f *Fixtures) CreateRule(t *testing.T, team *models.Team, opts ...RuleOption) *models.FineRule {
	t.Helper()
	f.counter++

	rule := &models.FineRule{
		TeamID:   team.ID,
		Label:    fmt.Sprintf("Test Rule %d", f.counter),
		Amount:   5,
		IsActive: true,
	}

	for _, opt := range opts {
		opt(rule)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO fine_rules (team_id, label, amount, category, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, team_id, label, amount, category, is_active, created_at, updated_at
	`, rule.TeamID, rule.Label, rule.Amount, rule.Category, rule.IsActive).Scan(
		&rule.ID, &rule.TeamID, &rule.Label, &rule.Amount,
		&rule.Category, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	return rule
}

// RuleOption configures a test fine rule
type RuleOption func(*models.FineRule)

// WithRuleLabel sets the rule's label
func WithRuleLabel(label string) RuleOption {
	return func(r *models.FineRule) {
		r.Label = label
	}
}

// WithRuleAmount sets the rule's amount
func WithRuleAmount(amount float64) RuleOption {
	return func(r *models.FineRule) {
		r.Amount = amount
	}
}

// WithRuleCategory sets the rule's category
func WithRuleCategory(category string) RuleOption {
	return func(r *models.FineRule) {
		r.Category = category
	}
}

// WithInactiveRule marks the rule as deactivated
func WithInactiveRule() RuleOption {
	return func(r *models.FineRule) {
		r.IsActive = false
	}
}

// CreateFine inserts a fine directly, bypassing permission checks
func (f *Fixtures) CreateFine(t *testing.T, team *models.Team, offender, issuer *models.User, opts ...FineOption) *models.Fine {
	t.Helper()
	f.counter++

	fine := &models.Fine{
		TeamID:     team.ID,
		OffenderID: offender.ID,
		IssuerID:   issuer.ID,
		Label:      fmt.Sprintf("Test Fine %d", f.counter),
		Amount:     10,
		Status:     models.FineStatusUnpaid,
	}

	for _, opt := range opts {
		opt(fine)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO fines (team_id, offender_id, issuer_id, rule_id, label, amount, amount_paid, status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, team_id, offender_id, issuer_id, rule_id, label, amount, amount_paid, status, note, created_at
	`, fine.TeamID, fine.OffenderID, fine.IssuerID, fine.RuleID, fine.Label,
		fine.Amount, fine.AmountPaid, fine.Status, fine.Note).Scan(
		&fine.ID, &fine.TeamID, &fine.OffenderID, &fine.IssuerID, &fine.RuleID,
		&fine.Label, &fine.Amount, &fine.AmountPaid, &fine.Status, &fine.Note,
		&fine.CreatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create fine: %v", err)
	}

	return fine
}

// FineOption configures a test fine
type FineOption func(*models.Fine)

// WithFineLabel sets the fine's label
func WithFineLabel(label string) FineOption {
	return func(f *models.Fine) {
		f.Label = label
	}
}

// WithFineAmount sets the fine's amount
func WithFineAmount(amount float64) FineOption {
	return func(f *models.Fine) {
		f.Amount = amount
	}
}

// WithFineRule links the fine to a rule
func WithFineRule(rule *models.FineRule) FineOption {
	return func(f *models.Fine) {
		f.RuleID = &rule.ID
	}
}

// WithFineNote sets the fine's note
func WithFineNote(note string) FineOption {
	return func(f *models.Fine) {
		f.Note = &note
	}
}

// CreateRefreshToken creates a test refresh token
func (f *Fixtures) CreateRefreshToken(t *testing.T, userID uuid.UUID, tokenHash string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}
}
