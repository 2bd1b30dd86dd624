package features

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/logger"
	"gocontracts/internal/repository/memory"
	"gocontracts/internal/service/clientservice"
	"gocontracts/internal/service/contractservice"
)

type clientsTestContext struct {
	now       time.Time
	contracts *memory.ContractRepository
	clients   *clientservice.Service
	contract  *contractservice.Service

	client      domain.Client
	other       domain.Client
	contractIDs []string
	total       decimal.Decimal
	closed      int64
	err         error
}

func (c *clientsTestContext) reset() {
	*c = clientsTestContext{}
}

func (c *clientsTestContext) theClockIsAt(raw string) error {
	now, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	c.now = now
	clock := func() time.Time { return c.now }

	log := logger.NewNop()
	store := memory.NewStore()
	clients := memory.NewClientRepository(store)
	c.contracts = memory.NewContractRepository(store)
	tx := memory.NewTransactor(store)
	c.clients = clientservice.NewService(clients, c.contracts, tx, log, clientservice.WithClock(clock))
	c.contract = contractservice.NewService(c.contracts, clients, tx, log, contractservice.WithClock(clock))
	return nil
}

func (c *clientsTestContext) createPerson(name, email, phone, birthDate string) (domain.Client, error) {
	return c.clients.CreatePerson(context.Background(), clientservice.CreatePersonInput{
		Name: name, Email: email, Phone: phone, BirthDate: birthDate,
	})
}

func (c *clientsTestContext) iCreateAPerson(name, email, phone, birthDate string) error {
	c.client, c.err = c.createPerson(name, email, phone, birthDate)
	return nil
}

func (c *clientsTestContext) aPerson(name, email string) error {
	client, err := c.createPerson(name, email, "+33123456789", "1990-01-15")
	c.client = client
	return err
}

func (c *clientsTestContext) anotherPerson(name, email string) error {
	client, err := c.createPerson(name, email, "+33123456780", "1985-06-01")
	c.other = client
	return err
}

func (c *clientsTestContext) iCreateACompany(name, email, identifier string) error {
	_, c.err = c.clients.CreateCompany(context.Background(), clientservice.CreateCompanyInput{
		Name: name, Email: email, Phone: "+41225550101", CompanyIdentifier: identifier,
	})
	return nil
}

func (c *clientsTestContext) addContract(cost, start string, end *string) error {
	amount, err := decimal.NewFromString(cost)
	if err != nil {
		return err
	}
	in := contractservice.CreateContractInput{CostAmount: &amount}
	startAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return err
	}
	in.StartDate = &startAt
	if end != nil {
		endAt, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			return err
		}
		in.EndDate = &endAt
	}

	created, err := c.contract.CreateContractForClient(context.Background(), c.client.ID(), in)
	if err != nil {
		return err
	}
	c.contractIDs = append(c.contractIDs, created.ID())
	return nil
}

func (c *clientsTestContext) anOpenEndedContract(cost, start string) error {
	return c.addContract(cost, start, nil)
}

func (c *clientsTestContext) aContractWithEnd(cost, start, end string) error {
	return c.addContract(cost, start, &end)
}

func (c *clientsTestContext) iSumTheActiveContracts() error {
	c.total, c.err = c.contract.SumActiveContracts(context.Background(), c.client.ID())
	return c.err
}

func (c *clientsTestContext) iDeleteTheClient() error {
	c.closed, c.err = c.clients.DeleteClientAndCloseContracts(context.Background(), c.client.ID())
	return c.err
}

func (c *clientsTestContext) janeReadsJohnsContract() error {
	_, c.err = c.contract.GetContractForClient(context.Background(), c.other.ID(), c.contractIDs[0])
	return nil
}

func (c *clientsTestContext) theRequestSucceeds() error {
	return c.err
}

func (c *clientsTestContext) theRequestFailsWithCode(code string) error {
	if c.err == nil {
		return fmt.Errorf("expected error %s, got success", code)
	}
	if !apperror.HasCode(c.err, code) {
		return fmt.Errorf("expected error %s, got %v", code, c.err)
	}
	return nil
}

func (c *clientsTestContext) theClientsEmailIs(email string) error {
	if got := c.client.Email().Value(); got != email {
		return fmt.Errorf("expected email %q, got %q", email, got)
	}
	return nil
}

func (c *clientsTestContext) theTotalIs(expected string) error {
	want := decimal.RequireFromString(expected)
	if !c.total.Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want, c.total)
	}
	return nil
}

func (c *clientsTestContext) theClientHasActiveContracts(n int) error {
	page, err := c.contract.GetActiveContracts(context.Background(), c.client.ID(), nil, domain.PageRequest{})
	if err != nil {
		return err
	}
	if page.TotalItems != n {
		return fmt.Errorf("expected %d active contracts, got %d", n, page.TotalItems)
	}
	return nil
}

func (c *clientsTestContext) contractsWereClosed(n int) error {
	if c.closed != int64(n) {
		return fmt.Errorf("expected %d closed contracts, got %d", n, c.closed)
	}
	return nil
}

func (c *clientsTestContext) everyContractEndsAt(raw string) error {
	want, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	for _, id := range c.contractIDs {
		contract, err := c.contracts.FindByID(context.Background(), id)
		if err != nil {
			return err
		}
		end := contract.Period().EndPtr()
		if end == nil || !end.Equal(want) {
			return fmt.Errorf("contract %s: expected end %s, got %v", id, want, end)
		}
	}
	return nil
}

func (c *clientsTestContext) lookingUpTheClientFailsWithCode(code string) error {
	_, c.err = c.clients.GetClient(context.Background(), c.client.ID())
	return c.theRequestFailsWithCode(code)
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &clientsTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the clock is at "([^"]*)"$`, tc.theClockIsAt)
	ctx.Step(`^a person "([^"]*)" with email "([^"]*)"$`, tc.aPerson)
	ctx.Step(`^another person "([^"]*)" with email "([^"]*)"$`, tc.anotherPerson)
	ctx.Step(`^a contract costing "([^"]*)" starting "([^"]*)" with no end$`, tc.anOpenEndedContract)
	ctx.Step(`^a contract costing "([^"]*)" starting "([^"]*)" ending "([^"]*)"$`, tc.aContractWithEnd)

	// When steps
	ctx.Step(`^I create a person "([^"]*)" with email "([^"]*)", phone "([^"]*)" and birth date "([^"]*)"$`, tc.iCreateAPerson)
	ctx.Step(`^I create a company "([^"]*)" with email "([^"]*)" and identifier "([^"]*)"$`, tc.iCreateACompany)
	ctx.Step(`^I sum the active contracts$`, tc.iSumTheActiveContracts)
	ctx.Step(`^I delete the client$`, tc.iDeleteTheClient)
	ctx.Step(`^Jane reads John's contract$`, tc.janeReadsJohnsContract)

	// Then steps
	ctx.Step(`^the request succeeds$`, tc.theRequestSucceeds)
	ctx.Step(`^the request fails with code "([^"]*)"$`, tc.theRequestFailsWithCode)
	ctx.Step(`^the client's email is "([^"]*)"$`, tc.theClientsEmailIs)
	ctx.Step(`^the total is "([^"]*)"$`, tc.theTotalIs)
	ctx.Step(`^the client has (\d+) active contracts$`, tc.theClientHasActiveContracts)
	ctx.Step(`^(\d+) contracts were closed$`, tc.contractsWereClosed)
	ctx.Step(`^every contract of the client ends at "([^"]*)"$`, tc.everyContractEndsAt)
	ctx.Step(`^looking up the client fails with code "([^"]*)"$`, tc.lookingUpTheClientFailsWithCode)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"clients.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
