package domain

import (
	"strings"
	"time"

	apperror "gocontracts/internal/errors"
)

// Contract pertence a exatamente um cliente e nunca é reatribuído.
// A atividade é derivada do período, nunca armazenada.
type Contract struct {
	id           string
	clientID     string
	period       ContractPeriod
	cost         ContractCost
	lastModified time.Time
	version      int64
}

// NewContract cria um contrato para um cliente já persistido.
func NewContract(client Client, period ContractPeriod, cost ContractCost, now time.Time) (Contract, error) {
	switch {
	case client.IsZero() || !client.IsPersisted():
		return Contract{}, invalidContract("client", "o contrato exige um cliente existente")
	case period.IsZero():
		return Contract{}, invalidContract("period", "o contrato exige um período")
	case cost.IsZero():
		return Contract{}, invalidContract("costAmount", "o contrato exige um custo")
	}
	return Contract{
		clientID:     client.ID(),
		period:       period,
		cost:         cost,
		lastModified: Instant(now),
	}, nil
}

// ReconstituteContract reconstrói um contrato persistido.
func ReconstituteContract(id, clientID string, version int64, period ContractPeriod, cost ContractCost, lastModified time.Time) (Contract, error) {
	switch {
	case strings.TrimSpace(id) == "":
		return Contract{}, apperror.NewFieldValidationError(apperror.KindMissingIdentity, "id", "a reconstituição exige um ID já atribuído")
	case strings.TrimSpace(clientID) == "":
		return Contract{}, invalidContract("client", "o contrato exige um cliente")
	case period.IsZero():
		return Contract{}, invalidContract("period", "o contrato exige um período")
	case cost.IsZero():
		return Contract{}, invalidContract("costAmount", "o contrato exige um custo")
	}
	return Contract{
		id:           id,
		clientID:     clientID,
		period:       period,
		cost:         cost,
		lastModified: Instant(lastModified),
		version:      version,
	}, nil
}

func invalidContract(field, msg string) error {
	return apperror.NewFieldValidationError(apperror.KindRequired, field, "contrato inválido: "+msg)
}

func (c Contract) ID() string              { return c.id }
func (c Contract) ClientID() string        { return c.clientID }
func (c Contract) Period() ContractPeriod  { return c.period }
func (c Contract) Cost() ContractCost      { return c.cost }
func (c Contract) LastModified() time.Time { return c.lastModified }
func (c Contract) Version() int64          { return c.version }
func (c Contract) IsPersisted() bool       { return c.id != "" }

func (c Contract) IsActiveAt(t time.Time) bool { return c.period.IsActiveAt(t) }
func (c Contract) IsActive() bool              { return c.period.IsActive() }

// ChangeCost substitui o custo. Contratos já expirados também podem ser alterados.
func (c Contract) ChangeCost(cost ContractCost, now time.Time) (Contract, error) {
	if cost.IsZero() {
		return Contract{}, invalidContract("costAmount", "o novo custo é obrigatório")
	}
	next := c
	next.cost = cost
	next.touch(now)
	return next, nil
}

// Close encerra o contrato em now. Um contrato já expirado
// tem o término refixado em now.
func (c Contract) Close(now time.Time) Contract {
	next := c
	next.period = c.period.closedAt(now)
	next.touch(now)
	return next
}

// touch garante lastModified estritamente crescente mesmo se o relógio não avançou.
func (c *Contract) touch(now time.Time) {
	next := Instant(now)
	if !next.After(c.lastModified) {
		next = c.lastModified.Add(time.Microsecond)
	}
	c.lastModified = next
}
