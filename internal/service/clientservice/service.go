package clientservice

import (
	"context"
	"time"

	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/logger"
)

// CreatePersonInput carrega os dados brutos de uma nova pessoa física.
type CreatePersonInput struct {
	Name      string
	Email     string
	Phone     string
	BirthDate string // AAAA-MM-DD
}

// CreateCompanyInput carrega os dados brutos de uma nova empresa.
type CreateCompanyInput struct {
	Name              string
	Email             string
	Phone             string
	CompanyIdentifier string
}

// CommonFieldsInput substitui os três campos comuns de uma vez.
// ExpectedVersion, quando informado, precisa bater com a versão atual.
type CommonFieldsInput struct {
	Name            string
	Email           string
	Phone           string
	ExpectedVersion *int64
}

// PatchInput altera apenas os campos informados (nil mantém o valor atual).
type PatchInput struct {
	Name  *string
	Email *string
	Phone *string
}

// Service orquestra os casos de uso de clientes.
type Service struct {
	repo      domain.ClientRepository
	contracts domain.ContractRepository
	tx        domain.Transactor
	checker   *domain.ClientUniquenessChecker
	logger    logger.Logger
	now       func() time.Time
}

// Option customiza o Service.
type Option func(*Service)

// WithClock substitui o relógio usado para "agora" e "hoje".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService cria e retorna uma nova instância do Serviço de Clientes.
func NewService(repo domain.ClientRepository, contracts domain.ContractRepository, tx domain.Transactor, logger logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		contracts: contracts,
		tx:        tx,
		checker:   domain.NewClientUniquenessChecker(repo),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePerson cadastra uma pessoa física.
func (s *Service) CreatePerson(ctx context.Context, in CreatePersonInput) (domain.Client, error) {
	s.logger.Debug("Iniciando cadastro de pessoa física.", map[string]interface{}{"email": in.Email})

	name, email, phone, err := commonFields(in.Name, in.Email, in.Phone)
	if err != nil {
		return domain.Client{}, err
	}
	birthDate, err := domain.ParseBirthDate(in.BirthDate, s.now())
	if err != nil {
		return domain.Client{}, err
	}
	person, err := domain.NewPerson(name, email, phone, birthDate)
	if err != nil {
		return domain.Client{}, err
	}
	return s.create(ctx, person)
}

// CreateCompany cadastra uma empresa.
func (s *Service) CreateCompany(ctx context.Context, in CreateCompanyInput) (domain.Client, error) {
	s.logger.Debug("Iniciando cadastro de empresa.", map[string]interface{}{"email": in.Email})

	name, email, phone, err := commonFields(in.Name, in.Email, in.Phone)
	if err != nil {
		return domain.Client{}, err
	}
	identifier, err := domain.NewCompanyIdentifier(in.CompanyIdentifier)
	if err != nil {
		return domain.Client{}, err
	}
	company, err := domain.NewCompany(name, email, phone, identifier)
	if err != nil {
		return domain.Client{}, err
	}
	return s.create(ctx, company)
}

func (s *Service) create(ctx context.Context, client domain.Client) (domain.Client, error) {
	if err := s.checker.EnsureNewClientUnique(ctx, client); err != nil {
		s.logger.Warn("Cadastro de cliente rejeitado.", map[string]interface{}{"code": apperror.CodeOf(err)})
		return domain.Client{}, err
	}

	saved, err := s.repo.Save(ctx, client)
	if err != nil {
		return domain.Client{}, err
	}

	s.logger.Info("Cliente cadastrado com sucesso.", map[string]interface{}{"client_id": saved.ID(), "kind": string(saved.Kind())})
	return saved, nil
}

// GetClient carrega um cliente.
func (s *Service) GetClient(ctx context.Context, id string) (domain.Client, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateCommonFields substitui nome, e-mail e telefone numa única transação.
func (s *Service) UpdateCommonFields(ctx context.Context, id string, in CommonFieldsInput) (domain.Client, error) {
	name, email, phone, err := commonFields(in.Name, in.Email, in.Phone)
	if err != nil {
		return domain.Client{}, err
	}

	var updated domain.Client
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != current.Version() {
			return apperror.NewConcurrentModificationError("cliente", id)
		}
		if email != current.Email() {
			if err := s.checker.EnsureEmailUnique(ctx, email); err != nil {
				return err
			}
		}

		next, err := current.WithCommonFields(name, email, phone)
		if err != nil {
			return err
		}
		updated, err = s.repo.Save(ctx, next)
		return err
	})
	if err != nil {
		s.logger.Warn("Atualização de cliente rejeitada.", map[string]interface{}{"client_id": id, "code": apperror.CodeOf(err)})
		return domain.Client{}, err
	}

	s.logger.Info("Cliente atualizado com sucesso.", map[string]interface{}{"client_id": id, "version": updated.Version()})
	return updated, nil
}

// PatchClient aplica uma atualização parcial; nada é gravado se nenhum campo mudou.
func (s *Service) PatchClient(ctx context.Context, id string, in PatchInput) (domain.Client, error) {
	patch, err := buildPatch(in)
	if err != nil {
		return domain.Client{}, err
	}

	var result domain.Client
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		next, changed := current.UpdatePartial(patch)
		if !changed {
			result = current
			return nil
		}
		if next.Email() != current.Email() {
			if err := s.checker.EnsureEmailUnique(ctx, next.Email()); err != nil {
				return err
			}
		}
		result, err = s.repo.Save(ctx, next)
		return err
	})
	if err != nil {
		s.logger.Warn("Atualização parcial de cliente rejeitada.", map[string]interface{}{"client_id": id, "code": apperror.CodeOf(err)})
		return domain.Client{}, err
	}
	return result, nil
}

// DeleteClientAndCloseContracts encerra os contratos ativos e remove o cliente
// numa única transação. Devolve quantos contratos foram encerrados.
func (s *Service) DeleteClientAndCloseContracts(ctx context.Context, id string) (int64, error) {
	var closed int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByID(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return apperror.NewClientNotFoundError(id)
		}

		closed, err = s.contracts.CloseAllActiveByClientID(ctx, id, s.now())
		if err != nil {
			return err
		}
		return s.repo.DeleteByID(ctx, id)
	})
	if err != nil {
		s.logger.Warn("Remoção de cliente rejeitada.", map[string]interface{}{"client_id": id, "code": apperror.CodeOf(err)})
		return 0, err
	}

	s.logger.Info("Cliente removido e contratos encerrados.", map[string]interface{}{"client_id": id, "closed_contracts": closed})
	return closed, nil
}

func commonFields(rawName, rawEmail, rawPhone string) (domain.ClientName, domain.Email, domain.PhoneNumber, error) {
	name, err := domain.NewClientName(rawName)
	if err != nil {
		return domain.ClientName{}, domain.Email{}, domain.PhoneNumber{}, err
	}
	email, err := domain.NewEmail(rawEmail)
	if err != nil {
		return domain.ClientName{}, domain.Email{}, domain.PhoneNumber{}, err
	}
	phone, err := domain.NewPhoneNumber(rawPhone)
	if err != nil {
		return domain.ClientName{}, domain.Email{}, domain.PhoneNumber{}, err
	}
	return name, email, phone, nil
}

func buildPatch(in PatchInput) (domain.CommonFieldsPatch, error) {
	var patch domain.CommonFieldsPatch
	if in.Name != nil {
		name, err := domain.NewClientName(*in.Name)
		if err != nil {
			return patch, err
		}
		patch.Name = &name
	}
	if in.Email != nil {
		email, err := domain.NewEmail(*in.Email)
		if err != nil {
			return patch, err
		}
		patch.Email = &email
	}
	if in.Phone != nil {
		phone, err := domain.NewPhoneNumber(*in.Phone)
		if err != nil {
			return patch, err
		}
		patch.Phone = &phone
	}
	return patch, nil
}
