package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/models"
	"github.com/kassenwart/finepot-api/internal/services"
	"github.com/kassenwart/finepot-api/internal/sse"
	"github.com/stretchr/testify/mock"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	args := m.Called(ctx, email, name, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockTeamService mocks the TeamService
type MockTeamService struct {
	mock.Mock
}

func (m *MockTeamService) Create(ctx context.Context, name string, creatorID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, name, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]models.Team), args.Get(1).([]string), args.Error(2)
}

func (m *MockTeamService) UpdateSettings(ctx context.Context, teamID uuid.UUID, actorRole string, in services.TeamSettingsInput) (*models.Team, error) {
	args := m.Called(ctx, teamID, actorRole, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) Delete(ctx context.Context, teamID uuid.UUID, actorRole string) error {
	args := m.Called(ctx, teamID, actorRole)
	return args.Error(0)
}

func (m *MockTeamService) GetMembership(ctx context.Context, teamID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, teamID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockTeamService) GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.Membership, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Membership), args.Error(1)
}

func (m *MockTeamService) SetMemberRole(ctx context.Context, teamID, userID uuid.UUID, actorRole, newRole string) (*models.Membership, error) {
	args := m.Called(ctx, teamID, userID, actorRole, newRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockTeamService) RemoveMember(ctx context.Context, teamID, userID, actorID uuid.UUID, actorRole string) error {
	args := m.Called(ctx, teamID, userID, actorID, actorRole)
	return args.Error(0)
}

func (m *MockTeamService) CreateInvite(ctx context.Context, teamID, inviterID uuid.UUID, inviterRole string, inviteeID uuid.UUID) (*models.TeamInvite, error) {
	args := m.Called(ctx, teamID, inviterID, inviterRole, inviteeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeamInvite), args.Error(1)
}

func (m *MockTeamService) GetInviteByID(ctx context.Context, inviteID uuid.UUID) (*models.TeamInvite, error) {
	args := m.Called(ctx, inviteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeamInvite), args.Error(1)
}

func (m *MockTeamService) GetUserPendingInvites(ctx context.Context, userID uuid.UUID) ([]models.TeamInvite, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TeamInvite), args.Error(1)
}

func (m *MockTeamService) GetTeamPendingInvites(ctx context.Context, teamID uuid.UUID) ([]models.TeamInvite, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TeamInvite), args.Error(1)
}

func (m *MockTeamService) AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID) error {
	args := m.Called(ctx, inviteID, userID)
	return args.Error(0)
}

func (m *MockTeamService) DeclineInvite(ctx context.Context, inviteID, userID uuid.UUID) error {
	args := m.Called(ctx, inviteID, userID)
	return args.Error(0)
}

func (m *MockTeamService) CancelInvite(ctx context.Context, inviteID, teamID uuid.UUID) error {
	args := m.Called(ctx, inviteID, teamID)
	return args.Error(0)
}

// MockRuleService mocks the RuleService
type MockRuleService struct {
	mock.Mock
}

func (m *MockRuleService) Create(ctx context.Context, teamID uuid.UUID, actorRole, label string, amount float64, category string) (*models.FineRule, error) {
	args := m.Called(ctx, teamID, actorRole, label, amount, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FineRule), args.Error(1)
}

func (m *MockRuleService) Update(ctx context.Context, teamID, ruleID uuid.UUID, actorRole string, in services.UpdateRuleInput) (*models.FineRule, error) {
	args := m.Called(ctx, teamID, ruleID, actorRole, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FineRule), args.Error(1)
}

func (m *MockRuleService) Deactivate(ctx context.Context, teamID, ruleID uuid.UUID, actorRole string) error {
	args := m.Called(ctx, teamID, ruleID, actorRole)
	return args.Error(0)
}

func (m *MockRuleService) GetByID(ctx context.Context, teamID, ruleID uuid.UUID) (*models.FineRule, error) {
	args := m.Called(ctx, teamID, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FineRule), args.Error(1)
}

func (m *MockRuleService) List(ctx context.Context, teamID uuid.UUID, includeInactive bool) ([]models.FineRule, error) {
	args := m.Called(ctx, teamID, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FineRule), args.Error(1)
}

// MockLedgerService mocks the LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) CreateFine(ctx context.Context, in services.CreateFineInput) (*models.Fine, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fine), args.Error(1)
}

func (m *MockLedgerService) CreateFines(ctx context.Context, in services.CreateFineInput, offenderIDs []uuid.UUID) ([]models.Fine, map[uuid.UUID]error) {
	args := m.Called(ctx, in, offenderIDs)
	var created []models.Fine
	if args.Get(0) != nil {
		created = args.Get(0).([]models.Fine)
	}
	var failed map[uuid.UUID]error
	if args.Get(1) != nil {
		failed = args.Get(1).(map[uuid.UUID]error)
	}
	return created, failed
}

func (m *MockLedgerService) RecordPayment(ctx context.Context, in services.RecordPaymentInput) (*services.PaymentResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PaymentResult), args.Error(1)
}

func (m *MockLedgerService) DeleteFine(ctx context.Context, teamID, fineID, actorID uuid.UUID, actorRole string) error {
	args := m.Called(ctx, teamID, fineID, actorID, actorRole)
	return args.Error(0)
}

func (m *MockLedgerService) GetFine(ctx context.Context, teamID, fineID uuid.UUID) (*models.Fine, error) {
	args := m.Called(ctx, teamID, fineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fine), args.Error(1)
}

func (m *MockLedgerService) ListFines(ctx context.Context, teamID uuid.UUID, filter services.FineFilter) ([]models.Fine, error) {
	args := m.Called(ctx, teamID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Fine), args.Error(1)
}

func (m *MockLedgerService) ListPayments(ctx context.Context, teamID uuid.UUID, fineID *uuid.UUID) ([]models.Payment, error) {
	args := m.Called(ctx, teamID, fineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockLedgerService) MemberBalances(ctx context.Context, teamID uuid.UUID) ([]services.MemberBalance, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.MemberBalance), args.Error(1)
}

// MockDisputeService mocks the DisputeService
type MockDisputeService struct {
	mock.Mock
}

func (m *MockDisputeService) Create(ctx context.Context, in services.CreateDisputeInput) (*models.FineDispute, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FineDispute), args.Error(1)
}

func (m *MockDisputeService) Vote(ctx context.Context, in services.VoteInput) (*models.FineDispute, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FineDispute), args.Error(1)
}

func (m *MockDisputeService) Resolve(ctx context.Context, in services.ResolveInput) (*models.FineDispute, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FineDispute), args.Error(1)
}

func (m *MockDisputeService) GetByID(ctx context.Context, teamID, disputeID uuid.UUID) (*models.FineDispute, error) {
	args := m.Called(ctx, teamID, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FineDispute), args.Error(1)
}

func (m *MockDisputeService) ListByTeam(ctx context.Context, teamID uuid.UUID, status string) ([]models.FineDispute, error) {
	args := m.Called(ctx, teamID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FineDispute), args.Error(1)
}

func (m *MockDisputeService) ListVotes(ctx context.Context, teamID, disputeID uuid.UUID) ([]models.FineDisputeVote, error) {
	args := m.Called(ctx, teamID, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FineDisputeVote), args.Error(1)
}

// MockActivityService mocks the ActivityService
type MockActivityService struct {
	mock.Mock
}

func (m *MockActivityService) ListByTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]models.Activity, error) {
	args := m.Called(ctx, teamID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Activity), args.Error(1)
}

// MockTokenService mocks the TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockTokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockTokenService) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockTokenService) CleanupExpired(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEmailService mocks the EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockEmailService) SendTeamInvite(to, teamName, inviterName, inviteURL string) error {
	args := m.Called(to, teamName, inviterName, inviteURL)
	return args.Error(0)
}

// MockHub mocks the SSE hub broadcasts
type MockHub struct {
	mock.Mock
}

func (m *MockHub) Register(client *sse.Client) {
	m.Called(client)
}

func (m *MockHub) Unregister(client *sse.Client) {
	m.Called(client)
}

func (m *MockHub) SubscribeToTeam(clientID string, teamID uuid.UUID) {
	m.Called(clientID, teamID)
}

func (m *MockHub) UnsubscribeFromTeam(clientID string, teamID uuid.UUID) {
	m.Called(clientID, teamID)
}

func (m *MockHub) BroadcastFineCreated(teamID, fineID, offenderID, issuerID uuid.UUID, label string, amount float64) {
	m.Called(teamID, fineID, offenderID, issuerID, label, amount)
}

func (m *MockHub) BroadcastFinesCreated(teamID, issuerID uuid.UUID, fineIDs []uuid.UUID) {
	m.Called(teamID, issuerID, fineIDs)
}

func (m *MockHub) BroadcastFineDeleted(teamID, fineID, deletedBy uuid.UUID) {
	m.Called(teamID, fineID, deletedBy)
}

func (m *MockHub) BroadcastPaymentRecorded(teamID, payerID uuid.UUID, amount float64, finesSettled int, creditAdded float64) {
	m.Called(teamID, payerID, amount, finesSettled, creditAdded)
}

func (m *MockHub) BroadcastDisputeOpened(teamID, disputeID, fineID, disputerID uuid.UUID) {
	m.Called(teamID, disputeID, fineID, disputerID)
}

func (m *MockHub) BroadcastDisputeVoteCast(teamID, disputeID uuid.UUID, votesCount, votesRequired int, status string) {
	m.Called(teamID, disputeID, votesCount, votesRequired, status)
}

func (m *MockHub) BroadcastDisputeResolved(teamID, disputeID, fineID uuid.UUID, status string) {
	m.Called(teamID, disputeID, fineID, status)
}
