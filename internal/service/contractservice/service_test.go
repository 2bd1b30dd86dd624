package contractservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/logger"
	"gocontracts/internal/repository/memory"
	"gocontracts/internal/service/contractservice"
)

// MockClientRepository cobre apenas o que o serviço de contratos usa.
type MockClientRepository struct {
	mock.Mock
	domain.ClientRepository
}

func (m *MockClientRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRepository) FindByID(ctx context.Context, id string) (domain.Client, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Client), args.Error(1)
}

// MockContractRepository é uma implementação mock da interface domain.ContractRepository
type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) FindByID(ctx context.Context, id string) (domain.Contract, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Contract), args.Error(1)
}

func (m *MockContractRepository) Save(ctx context.Context, contract domain.Contract) (domain.Contract, error) {
	args := m.Called(ctx, contract)
	return args.Get(0).(domain.Contract), args.Error(1)
}

func (m *MockContractRepository) FindActiveByClientID(ctx context.Context, clientID string, now time.Time, updatedSince *time.Time, page domain.PageRequest) (domain.Page[domain.Contract], error) {
	args := m.Called(ctx, clientID, now, updatedSince, page)
	return args.Get(0).(domain.Page[domain.Contract]), args.Error(1)
}

func (m *MockContractRepository) CloseAllActiveByClientID(ctx context.Context, clientID string, now time.Time) (int64, error) {
	args := m.Called(ctx, clientID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContractRepository) SumActiveByClientID(ctx context.Context, clientID string, now time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, clientID, now)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func amount(raw string) *decimal.Decimal {
	d := decimal.RequireFromString(raw)
	return &d
}

func storedContract(t *testing.T, id, clientID string) domain.Contract {
	t.Helper()
	period, _ := domain.ReconstituteContractPeriod(fixedNow.AddDate(0, -1, 0), nil)
	cost, _ := domain.ParseContractCost("100.00")
	c, err := domain.ReconstituteContract(id, clientID, 1, period, cost, fixedNow.AddDate(0, -1, 0))
	require.NoError(t, err)
	return c
}

func newMockService() (*contractservice.Service, *MockContractRepository, *MockClientRepository) {
	contracts := new(MockContractRepository)
	clients := new(MockClientRepository)
	svc := contractservice.NewService(contracts, clients, passthroughTx{}, logger.NewNop(),
		contractservice.WithClock(func() time.Time { return fixedNow }))
	return svc, contracts, clients
}

func TestUpdateCostForClient_RejectsForeignContract(t *testing.T) {
	svc, contracts, clients := newMockService()

	clients.On("ExistsByID", mock.Anything, "client-a").Return(true, nil)
	contracts.On("FindByID", mock.Anything, "k-1").Return(storedContract(t, "k-1", "client-b"), nil)

	_, err := svc.UpdateCostForClient(context.Background(), "client-a", "k-1", amount("10"))

	assert.IsType(t, &apperror.ForbiddenError{}, err)
	contracts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdateCostForClient_UnknownClient(t *testing.T) {
	svc, contracts, clients := newMockService()

	clients.On("ExistsByID", mock.Anything, "ghost").Return(false, nil)

	_, err := svc.UpdateCostForClient(context.Background(), "ghost", "k-1", amount("10"))

	assert.True(t, apperror.HasCode(err, apperror.CodeClientNotFound))
	contracts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestUpdateCost_ChangesCostAndTouchesContract(t *testing.T) {
	svc, contracts, _ := newMockService()
	current := storedContract(t, "k-1", "client-a")

	contracts.On("FindByID", mock.Anything, "k-1").Return(current, nil)
	contracts.On("Save", mock.Anything, mock.MatchedBy(func(c domain.Contract) bool {
		return c.Cost().String() == "250.75" && c.LastModified().After(current.LastModified())
	})).Return(current, nil)

	_, err := svc.UpdateCost(context.Background(), "k-1", amount("250.75"))

	assert.NoError(t, err)
	contracts.AssertExpectations(t)
}

func TestUpdateCost_InvalidScale(t *testing.T) {
	svc, contracts, _ := newMockService()

	contracts.On("FindByID", mock.Anything, "k-1").Return(storedContract(t, "k-1", "client-a"), nil)

	_, err := svc.UpdateCost(context.Background(), "k-1", amount("1.005"))

	var vErr *apperror.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, apperror.KindInvalidScale, vErr.Kind)
}

func TestCreateContractForClient_ClientMissing(t *testing.T) {
	svc, _, clients := newMockService()

	clients.On("FindByID", mock.Anything, "ghost").Return(domain.Client{}, apperror.NewClientNotFoundError("ghost"))

	_, err := svc.CreateContractForClient(context.Background(), "ghost", contractservice.CreateContractInput{CostAmount: amount("10")})

	assert.True(t, apperror.HasCode(err, apperror.CodeClientNotFound))
}

func TestCreateContractForClient_PeriodOrder(t *testing.T) {
	svc, _, _ := newMockService()
	start := fixedNow
	end := fixedNow

	_, err := svc.CreateContractForClient(context.Background(), "c-1", contractservice.CreateContractInput{
		StartDate: &start, EndDate: &end, CostAmount: amount("10"),
	})

	var vErr *apperror.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, apperror.KindPeriodOrder, vErr.Kind)
}

func TestGetActiveContracts_PassesNow(t *testing.T) {
	svc, contracts, clients := newMockService()
	req := domain.PageRequest{Page: 0, Size: 20}
	empty := domain.NewPage[domain.Contract](nil, req, 0)

	clients.On("ExistsByID", mock.Anything, "c-1").Return(true, nil)
	contracts.On("FindActiveByClientID", mock.Anything, "c-1", fixedNow, (*time.Time)(nil), req).Return(empty, nil)

	page, err := svc.GetActiveContracts(context.Background(), "c-1", nil, req)

	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

// --- Cenários sobre o adaptador em memória ---

func newMemoryService(t *testing.T) (*contractservice.Service, domain.Client) {
	t.Helper()
	store := memory.NewStore()
	clients := memory.NewClientRepository(store)

	name, _ := domain.NewClientName("Acme")
	email, _ := domain.NewEmail("a@acme.io")
	phone, _ := domain.NewPhoneNumber("5551234")
	identifier, _ := domain.NewCompanyIdentifier("ACME-1")
	company, _ := domain.NewCompany(name, email, phone, identifier)
	owner, err := clients.Save(context.Background(), company)
	require.NoError(t, err)

	svc := contractservice.NewService(memory.NewContractRepository(store), clients, memory.NewTransactor(store), logger.NewNop(),
		contractservice.WithClock(func() time.Time { return fixedNow }))
	return svc, owner
}

func TestSumActiveContracts_MixOfActiveAndExpired(t *testing.T) {
	svc, owner := newMemoryService(t)
	ctx := context.Background()
	pastStart := fixedNow.AddDate(-2, 0, 0)
	pastEnd := fixedNow.AddDate(-1, 0, 0)
	futureEnd := fixedNow.AddDate(1, 0, 0)

	for _, in := range []contractservice.CreateContractInput{
		{CostAmount: amount("1500.50")},
		{EndDate: &futureEnd, CostAmount: amount("2500.00")},
		{StartDate: &pastStart, EndDate: &pastEnd, CostAmount: amount("1000.00")},
	} {
		_, err := svc.CreateContractForClient(ctx, owner.ID(), in)
		require.NoError(t, err)
	}

	sum, err := svc.SumActiveContracts(ctx, owner.ID())

	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("4000.50")), "soma = %s", sum)
}

func TestSumActiveContracts_NoContractsIsZero(t *testing.T) {
	svc, owner := newMemoryService(t)

	sum, err := svc.SumActiveContracts(context.Background(), owner.ID())

	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestCloseContractForClient_RemovesFromActiveList(t *testing.T) {
	svc, owner := newMemoryService(t)
	ctx := context.Background()

	created, err := svc.CreateContractForClient(ctx, owner.ID(), contractservice.CreateContractInput{CostAmount: amount("10")})
	require.NoError(t, err)

	closed, err := svc.CloseContractForClient(ctx, owner.ID(), created.ID())
	require.NoError(t, err)
	assert.False(t, closed.Period().IsOpenEnded())

	page, err := svc.GetActiveContracts(ctx, owner.ID(), nil, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalItems)
}

func TestGetActiveContracts_UpdatedSince(t *testing.T) {
	svc, owner := newMemoryService(t)
	ctx := context.Background()

	_, err := svc.CreateContractForClient(ctx, owner.ID(), contractservice.CreateContractInput{CostAmount: amount("10")})
	require.NoError(t, err)

	after := fixedNow.Add(time.Second)
	page, err := svc.GetActiveContracts(ctx, owner.ID(), &after, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalItems)

	page, err = svc.GetActiveContracts(ctx, owner.ID(), &fixedNow, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalItems)
}
