package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/kassenwart/finepot-api/internal/middleware"
	"github.com/kassenwart/finepot-api/internal/models"
	"github.com/kassenwart/finepot-api/internal/services"
	"github.com/kassenwart/finepot-api/pkg/dto"
	"github.com/kassenwart/finepot-api/tests/testutil"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupPaymentTest(t *testing.T) (*testutil.MockTeamService, *testutil.MockLedgerService, *testutil.MockHub, *testutil.HTTPTestClient) {
	t.Helper()
	mockTeamService := new(testutil.MockTeamService)
	mockLedgerService := new(testutil.MockLedgerService)
	mockHub := new(testutil.MockHub)
	handler := NewPaymentHandler(mockTeamService, mockLedgerService, mockHub)

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(testutil.TestJWTService()))
	app.Post("/teams/:id/payments", handler.Record)
	app.Get("/teams/:id/payments", handler.List)

	return mockTeamService, mockLedgerService, mockHub, testutil.NewHTTPTestClient(t, app)
}

func TestPaymentHandler_Record_TargetedFine(t *testing.T) {
	mockTeamService, mockLedgerService, mockHub, client := setupPaymentTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	payerID := uuid.New()
	fineID := uuid.New()

	result := &services.PaymentResult{
		Payments: []models.Payment{
			{ID: uuid.New(), TeamID: teamID, FineID: &fineID, PayerID: payerID, Amount: 10, Method: models.PaymentMethodCash, RecordedBy: userID},
		},
		TotalApplied: 10,
	}

	mockTeamService.On("GetMembership", mock.Anything, teamID, userID).
		Return(membershipFixture(teamID, userID, models.RoleTreasurer), nil)
	mockLedgerService.On("RecordPayment", mock.Anything, services.RecordPaymentInput{
		TeamID:       teamID,
		PayerID:      payerID,
		FineID:       &fineID,
		Amount:       10,
		Method:       models.PaymentMethodCash,
		RecordedBy:   userID,
		RecorderRole: models.RoleTreasurer,
	}).Return(result, nil)
	mockHub.On("BroadcastPaymentRecorded", teamID, payerID, 10.0, 1, 0.0).Return()

	body := dto.RecordPaymentRequest{
		PayerID: payerID,
		FineID:  &fineID,
		Amount:  10,
		Method:  models.PaymentMethodCash,
	}
	rec := client.POST("/teams/"+teamID.String()+"/payments", body, authHeaders(t, userID, "treasurer@example.com"))

	testutil.AssertStatus(t, rec, http.StatusCreated)

	var response dto.PaymentResultResponse
	testutil.ParseJSON(t, rec, &response)
	require.Len(t, response.Payments, 1)
	assert.Equal(t, 10.0, response.TotalApplied)
	assert.Equal(t, 0.0, response.CreditAdded)
	require.NotNil(t, response.Payments[0].FineID)
	assert.Equal(t, fineID, *response.Payments[0].FineID)

	mockLedgerService.AssertExpectations(t)
	mockHub.AssertExpectations(t)
}

func TestPaymentHandler_Record_DistributedWithCredit(t *testing.T) {
	mockTeamService, mockLedgerService, mockHub, client := setupPaymentTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	payerID := uuid.New()
	fineA := uuid.New()
	fineB := uuid.New()

	result := &services.PaymentResult{
		Payments: []models.Payment{
			{ID: uuid.New(), TeamID: teamID, FineID: &fineA, PayerID: payerID, Amount: 10, RecordedBy: userID},
			{ID: uuid.New(), TeamID: teamID, FineID: &fineB, PayerID: payerID, Amount: 12, RecordedBy: userID},
			{ID: uuid.New(), TeamID: teamID, FineID: nil, PayerID: payerID, Amount: 3, RecordedBy: userID},
		},
		TotalApplied: 22,
		CreditAdded:  3,
	}

	mockTeamService.On("GetMembership", mock.Anything, teamID, userID).
		Return(membershipFixture(teamID, userID, models.RoleAdmin), nil)
	mockLedgerService.On("RecordPayment", mock.Anything,
		mock.MatchedBy(func(in services.RecordPaymentInput) bool {
			return in.PayerID == payerID && in.FineID == nil && in.Amount == 25
		})).Return(result, nil)
	mockHub.On("BroadcastPaymentRecorded", teamID, payerID, 25.0, 2, 3.0).Return()

	body := dto.RecordPaymentRequest{PayerID: payerID, Amount: 25}
	rec := client.POST("/teams/"+teamID.String()+"/payments", body, authHeaders(t, userID, "admin@example.com"))

	testutil.AssertStatus(t, rec, http.StatusCreated)

	var response dto.PaymentResultResponse
	testutil.ParseJSON(t, rec, &response)
	require.Len(t, response.Payments, 3)
	assert.Equal(t, 22.0, response.TotalApplied)
	assert.Equal(t, 3.0, response.CreditAdded)
	assert.Nil(t, response.Payments[2].FineID)

	mockHub.AssertExpectations(t)
}

func TestPaymentHandler_Record_MissingPayer(t *testing.T) {
	mockTeamService, mockLedgerService, _, client := setupPaymentTest(t)

	userID := uuid.New()
	teamID := uuid.New()

	mockTeamService.On("GetMembership", mock.Anything, teamID, userID).
		Return(membershipFixture(teamID, userID, models.RoleAdmin), nil)

	body := dto.RecordPaymentRequest{Amount: 10}
	rec := client.POST("/teams/"+teamID.String()+"/payments", body, authHeaders(t, userID, "admin@example.com"))

	testutil.AssertStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "payer_id is required")

	mockLedgerService.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything)
}

func TestPaymentHandler_Record_Forbidden(t *testing.T) {
	mockTeamService, mockLedgerService, mockHub, client := setupPaymentTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	payerID := uuid.New()

	mockTeamService.On("GetMembership", mock.Anything, teamID, userID).
		Return(membershipFixture(teamID, userID, models.RoleMember), nil)
	mockLedgerService.On("RecordPayment", mock.Anything, mock.Anything).
		Return(nil, services.ErrForbidden)

	body := dto.RecordPaymentRequest{PayerID: payerID, Amount: 10}
	rec := client.POST("/teams/"+teamID.String()+"/payments", body, authHeaders(t, userID, "member@example.com"))

	testutil.AssertStatus(t, rec, http.StatusForbidden)

	mockHub.AssertNotCalled(t, "BroadcastPaymentRecorded",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentHandler_Record_AlreadyPaid(t *testing.T) {
	mockTeamService, mockLedgerService, _, client := setupPaymentTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	payerID := uuid.New()
	fineID := uuid.New()

	mockTeamService.On("GetMembership", mock.Anything, teamID, userID).
		Return(membershipFixture(teamID, userID, models.RoleAdmin), nil)
	mockLedgerService.On("RecordPayment", mock.Anything, mock.Anything).
		Return(nil, services.ErrAlreadyPaid)

	body := dto.RecordPaymentRequest{PayerID: payerID, FineID: &fineID, Amount: 10}
	rec := client.POST("/teams/"+teamID.String()+"/payments", body, authHeaders(t, userID, "admin@example.com"))

	testutil.AssertStatus(t, rec, http.StatusConflict)

	var response dto.ErrorResponse
	testutil.ParseJSON(t, rec, &response)
	assert.Equal(t, "ALREADY_PAID", response.Code)
}

func TestPaymentHandler_Record_NoUnpaidFines(t *testing.T) {
	mockTeamService, mockLedgerService, _, client := setupPaymentTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	payerID := uuid.New()

	mockTeamService.On("GetMembership", mock.Anything, teamID, userID).
		Return(membershipFixture(teamID, userID, models.RoleAdmin), nil)
	mockLedgerService.On("RecordPayment", mock.Anything, mock.Anything).
		Return(nil, services.ErrNoUnpaidFines)

	body := dto.RecordPaymentRequest{PayerID: payerID, Amount: 10}
	rec := client.POST("/teams/"+teamID.String()+"/payments", body, authHeaders(t, userID, "admin@example.com"))

	testutil.AssertStatus(t, rec, http.StatusConflict)

	var response dto.ErrorResponse
	testutil.ParseJSON(t, rec, &response)
	assert.Equal(t, "NO_UNPAID_FINES", response.Code)
}

func TestPaymentHandler_List_Success(t *testing.T) {
	mockTeamService, mockLedgerService, _, client := setupPaymentTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	payerID := uuid.New()
	payments := []models.Payment{
		{ID: uuid.New(), TeamID: teamID, PayerID: payerID, Amount: 5, Method: models.PaymentMethodCash, RecordedBy: userID},
		{ID: uuid.New(), TeamID: teamID, PayerID: payerID, Amount: 7, Method: models.PaymentMethodOnline, RecordedBy: userID},
	}

	mockTeamService.On("GetMembership", mock.Anything, teamID, userID).
		Return(membershipFixture(teamID, userID, models.RoleMember), nil)
	mockLedgerService.On("ListPayments", mock.Anything, teamID, (*uuid.UUID)(nil)).
		Return(payments, nil)

	rec := client.GET("/teams/"+teamID.String()+"/payments", authHeaders(t, userID, "member@example.com"))

	testutil.AssertStatus(t, rec, http.StatusOK)

	var response []dto.PaymentResponse
	testutil.ParseJSON(t, rec, &response)
	require.Len(t, response, 2)
	assert.Equal(t, models.PaymentMethodOnline, response[1].Method)

	mockLedgerService.AssertExpectations(t)
}

func TestPaymentHandler_List_FilterByFine(t *testing.T) {
	mockTeamService, mockLedgerService, _, client := setupPaymentTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	fineID := uuid.New()

	mockTeamService.On("GetMembership", mock.Anything, teamID, userID).
		Return(membershipFixture(teamID, userID, models.RoleMember), nil)
	mockLedgerService.On("ListPayments", mock.Anything, teamID, &fineID).
		Return([]models.Payment{}, nil)

	rec := client.GET("/teams/"+teamID.String()+"/payments?fine_id="+fineID.String(),
		authHeaders(t, userID, "member@example.com"))

	testutil.AssertStatus(t, rec, http.StatusOK)

	mockLedgerService.AssertExpectations(t)
}

func TestPaymentHandler_List_InvalidFineFilter(t *testing.T) {
	mockTeamService, _, _, client := setupPaymentTest(t)

	userID := uuid.New()
	teamID := uuid.New()

	mockTeamService.On("GetMembership", mock.Anything, teamID, userID).
		Return(membershipFixture(teamID, userID, models.RoleMember), nil)

	rec := client.GET("/teams/"+teamID.String()+"/payments?fine_id=nope",
		authHeaders(t, userID, "member@example.com"))

	testutil.AssertStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "invalid fine id")
}
