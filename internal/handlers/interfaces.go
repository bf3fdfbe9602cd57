package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/models"
	"github.com/kassenwart/finepot-api/internal/services"
	"github.com/kassenwart/finepot-api/internal/sse"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
}

// TeamServiceInterface defines the methods used by handlers from TeamService
type TeamServiceInterface interface {
	Create(ctx context.Context, name string, creatorID uuid.UUID) (*models.Team, error)
	GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
	GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []string, error)
	UpdateSettings(ctx context.Context, teamID uuid.UUID, actorRole string, in services.TeamSettingsInput) (*models.Team, error)
	Delete(ctx context.Context, teamID uuid.UUID, actorRole string) error
	GetMembership(ctx context.Context, teamID, userID uuid.UUID) (*models.Membership, error)
	GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.Membership, error)
	SetMemberRole(ctx context.Context, teamID, userID uuid.UUID, actorRole, newRole string) (*models.Membership, error)
	RemoveMember(ctx context.Context, teamID, userID, actorID uuid.UUID, actorRole string) error
	CreateInvite(ctx context.Context, teamID, inviterID uuid.UUID, inviterRole string, inviteeID uuid.UUID) (*models.TeamInvite, error)
	GetInviteByID(ctx context.Context, inviteID uuid.UUID) (*models.TeamInvite, error)
	GetUserPendingInvites(ctx context.Context, userID uuid.UUID) ([]models.TeamInvite, error)
	GetTeamPendingInvites(ctx context.Context, teamID uuid.UUID) ([]models.TeamInvite, error)
	AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID) error
	DeclineInvite(ctx context.Context, inviteID, userID uuid.UUID) error
	CancelInvite(ctx context.Context, inviteID, teamID uuid.UUID) error
}

// RuleServiceInterface defines the methods used by handlers from RuleService
type RuleServiceInterface interface {
	Create(ctx context.Context, teamID uuid.UUID, actorRole, label string, amount float64, category string) (*models.FineRule, error)
	Update(ctx context.Context, teamID, ruleID uuid.UUID, actorRole string, in services.UpdateRuleInput) (*models.FineRule, error)
	Deactivate(ctx context.Context, teamID, ruleID uuid.UUID, actorRole string) error
	GetByID(ctx context.Context, teamID, ruleID uuid.UUID) (*models.FineRule, error)
	List(ctx context.Context, teamID uuid.UUID, includeInactive bool) ([]models.FineRule, error)
}

// LedgerServiceInterface defines the methods used by handlers from LedgerService
type LedgerServiceInterface interface {
	CreateFine(ctx context.Context, in services.CreateFineInput) (*models.Fine, error)
	CreateFines(ctx context.Context, in services.CreateFineInput, offenderIDs []uuid.UUID) ([]models.Fine, map[uuid.UUID]error)
	RecordPayment(ctx context.Context, in services.RecordPaymentInput) (*services.PaymentResult, error)
	DeleteFine(ctx context.Context, teamID, fineID, actorID uuid.UUID, actorRole string) error
	GetFine(ctx context.Context, teamID, fineID uuid.UUID) (*models.Fine, error)
	ListFines(ctx context.Context, teamID uuid.UUID, filter services.FineFilter) ([]models.Fine, error)
	ListPayments(ctx context.Context, teamID uuid.UUID, fineID *uuid.UUID) ([]models.Payment, error)
	MemberBalances(ctx context.Context, teamID uuid.UUID) ([]services.MemberBalance, error)
}

// DisputeServiceInterface defines the methods used by handlers from DisputeService
type DisputeServiceInterface interface {
	Create(ctx context.Context, in services.CreateDisputeInput) (*models.FineDispute, error)
	Vote(ctx context.Context, in services.VoteInput) (*models.FineDispute, error)
	Resolve(ctx context.Context, in services.ResolveInput) (*models.FineDispute, error)
	GetByID(ctx context.Context, teamID, disputeID uuid.UUID) (*models.FineDispute, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID, status string) ([]models.FineDispute, error)
	ListVotes(ctx context.Context, teamID, disputeID uuid.UUID) ([]models.FineDisputeVote, error)
}

// ActivityServiceInterface defines the methods used by handlers from ActivityService
type ActivityServiceInterface interface {
	ListByTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]models.Activity, error)
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(userID uuid.UUID, email string) (*services.TokenPair, error)
	ValidateRefreshToken(token string) (uuid.UUID, error)
	RefreshExpiry() time.Duration
}

// EmailServiceInterface defines the methods used by handlers from EmailService
type EmailServiceInterface interface {
	IsConfigured() bool
	SendTeamInvite(to, teamName, inviterName, inviteURL string) error
}

// HubInterface defines the methods used by handlers from the Hub
type HubInterface interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
	SubscribeToTeam(clientID string, teamID uuid.UUID)
	UnsubscribeFromTeam(clientID string, teamID uuid.UUID)
	BroadcastFineCreated(teamID, fineID, offenderID, issuerID uuid.UUID, label string, amount float64)
	BroadcastFinesCreated(teamID, issuerID uuid.UUID, fineIDs []uuid.UUID)
	BroadcastFineDeleted(teamID, fineID, deletedBy uuid.UUID)
	BroadcastPaymentRecorded(teamID, payerID uuid.UUID, amount float64, finesSettled int, creditAdded float64)
	BroadcastDisputeOpened(teamID, disputeID, fineID, disputerID uuid.UUID)
	BroadcastDisputeVoteCast(teamID, disputeID uuid.UUID, votesCount, votesRequired int, status string)
	BroadcastDisputeResolved(teamID, disputeID, fineID uuid.UUID, status string)
}
