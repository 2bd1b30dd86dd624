package contractservice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/logger"
)

// CreateContractInput carrega os dados de um novo contrato. StartDate nulo significa "agora".
type CreateContractInput struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CostAmount *decimal.Decimal
}

// Service orquestra os casos de uso de contratos.
type Service struct {
	contracts domain.ContractRepository
	clients   domain.ClientRepository
	tx        domain.Transactor
	logger    logger.Logger
	now       func() time.Time
}

// Option customiza o Service.
type Option func(*Service)

// WithClock substitui o relógio usado para "agora".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService cria e retorna uma nova instância do Serviço de Contratos.
func NewService(contracts domain.ContractRepository, clients domain.ClientRepository, tx domain.Transactor, logger logger.Logger, opts ...Option) *Service {
	s := &Service{
		contracts: contracts,
		clients:   clients,
		tx:        tx,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateContractForClient cria um contrato para um cliente existente.
func (s *Service) CreateContractForClient(ctx context.Context, clientID string, in CreateContractInput) (domain.Contract, error) {
	now := s.now()
	period, err := domain.NewContractPeriod(in.StartDate, in.EndDate, now)
	if err != nil {
		return domain.Contract{}, err
	}
	cost, err := domain.NewContractCostFromPtr(in.CostAmount)
	if err != nil {
		return domain.Contract{}, err
	}

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return domain.Contract{}, err
	}
	contract, err := domain.NewContract(client, period, cost, now)
	if err != nil {
		return domain.Contract{}, err
	}

	saved, err := s.contracts.Save(ctx, contract)
	if err != nil {
		return domain.Contract{}, err
	}

	s.logger.Info("Contrato criado com sucesso.", map[string]interface{}{"client_id": clientID, "contract_id": saved.ID()})
	return saved, nil
}

// UpdateCost altera o custo de um contrato, sem escopo de cliente.
func (s *Service) UpdateCost(ctx context.Context, contractID string, amount *decimal.Decimal) (domain.Contract, error) {
	return s.mutate(ctx, "", contractID, func(c domain.Contract, now time.Time) (domain.Contract, error) {
		cost, err := domain.NewContractCostFromPtr(amount)
		if err != nil {
			return domain.Contract{}, err
		}
		return c.ChangeCost(cost, now)
	})
}

// UpdateCostForClient altera o custo verificando que o contrato pertence ao cliente.
func (s *Service) UpdateCostForClient(ctx context.Context, clientID, contractID string, amount *decimal.Decimal) (domain.Contract, error) {
	if err := s.ensureClientExists(ctx, clientID); err != nil {
		return domain.Contract{}, err
	}
	return s.mutate(ctx, clientID, contractID, func(c domain.Contract, now time.Time) (domain.Contract, error) {
		cost, err := domain.NewContractCostFromPtr(amount)
		if err != nil {
			return domain.Contract{}, err
		}
		return c.ChangeCost(cost, now)
	})
}

// CloseContractForClient encerra um contrato do cliente em "agora".
func (s *Service) CloseContractForClient(ctx context.Context, clientID, contractID string) (domain.Contract, error) {
	if err := s.ensureClientExists(ctx, clientID); err != nil {
		return domain.Contract{}, err
	}
	return s.mutate(ctx, clientID, contractID, func(c domain.Contract, now time.Time) (domain.Contract, error) {
		return c.Close(now), nil
	})
}

// mutate carrega, verifica a posse (quando clientID não é vazio), aplica fn e grava numa transação.
func (s *Service) mutate(ctx context.Context, clientID, contractID string, fn func(domain.Contract, time.Time) (domain.Contract, error)) (domain.Contract, error) {
	var saved domain.Contract
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.contracts.FindByID(ctx, contractID)
		if err != nil {
			return err
		}
		if clientID != "" {
			if err := domain.EnsureContractBelongsTo(current, clientID); err != nil {
				return err
			}
		}

		next, err := fn(current, s.now())
		if err != nil {
			return err
		}
		saved, err = s.contracts.Save(ctx, next)
		return err
	})
	if err != nil {
		s.logger.Warn("Alteração de contrato rejeitada.", map[string]interface{}{"contract_id": contractID, "code": apperror.CodeOf(err)})
		return domain.Contract{}, err
	}

	s.logger.Info("Contrato alterado com sucesso.", map[string]interface{}{"contract_id": contractID, "version": saved.Version()})
	return saved, nil
}

// GetContractForClient carrega um contrato do cliente.
func (s *Service) GetContractForClient(ctx context.Context, clientID, contractID string) (domain.Contract, error) {
	if err := s.ensureClientExists(ctx, clientID); err != nil {
		return domain.Contract{}, err
	}
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return domain.Contract{}, err
	}
	if err := domain.EnsureContractBelongsTo(contract, clientID); err != nil {
		return domain.Contract{}, err
	}
	return contract, nil
}

// GetActiveContracts lista os contratos ativos agora, opcionalmente só os alterados desde updatedSince.
func (s *Service) GetActiveContracts(ctx context.Context, clientID string, updatedSince *time.Time, page domain.PageRequest) (domain.Page[domain.Contract], error) {
	if err := s.ensureClientExists(ctx, clientID); err != nil {
		return domain.Page[domain.Contract]{}, err
	}
	return s.contracts.FindActiveByClientID(ctx, clientID, s.now(), updatedSince, page)
}

// SumActiveContracts soma o custo dos contratos ativos agora.
func (s *Service) SumActiveContracts(ctx context.Context, clientID string) (decimal.Decimal, error) {
	if err := s.ensureClientExists(ctx, clientID); err != nil {
		return decimal.Zero, err
	}
	return s.contracts.SumActiveByClientID(ctx, clientID, s.now())
}

func (s *Service) ensureClientExists(ctx context.Context, clientID string) error {
	exists, err := s.clients.ExistsByID(ctx, clientID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewClientNotFoundError(clientID)
	}
	return nil
}
