package clientrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/database"
	"gocontracts/internal/pkg/logger"
)

// Nomes das restrições únicas definidas na migração.
const (
	constraintEmail             = "uq_clients_email"
	constraintCompanyIdentifier = "uq_clients_company_identifier"
)

// ClientRepository implementa domain.ClientRepository sobre PostgreSQL.
type ClientRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
	now       func() time.Time
}

// NewClientRepository cria e retorna uma nova instância do Repositório de Clientes.
func NewClientRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *ClientRepository {
	return &ClientRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
		now:       time.Now,
	}
}

const selectClient = `
        SELECT id, kind, name, email, phone, birth_date, company_identifier, version
        FROM clients`

// FindByID busca um cliente pelo ID.
func (r *ClientRepository) FindByID(ctx context.Context, id string) (domain.Client, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Client{}, apperror.NewClientNotFoundError(id)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	row := database.Executor(ctx, r.DB).QueryRowContext(ctxTimeout, selectClient+` WHERE id = $1`, id)
	client, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Client{}, apperror.NewClientNotFoundError(id)
	}
	if err != nil {
		r.logger.Error("Falha ao buscar cliente no DB.", err)
		return domain.Client{}, apperror.NewDBError("Falha ao buscar cliente", err)
	}
	return client, nil
}

// Save insere um cliente novo ou atualiza um existente com controle de concorrência otimista (OCC).
func (r *ClientRepository) Save(ctx context.Context, client domain.Client) (domain.Client, error) {
	if client.IsPersisted() {
		return r.update(ctx, client)
	}
	return r.insert(ctx, client)
}

func (r *ClientRepository) insert(ctx context.Context, client domain.Client) (domain.Client, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		birthDate  sql.NullTime
		identifier sql.NullString
	)
	switch d := client.Details().(type) {
	case domain.PersonDetails:
		birthDate = sql.NullTime{Time: d.BirthDate.Value(), Valid: true}
	case domain.CompanyDetails:
		identifier = sql.NullString{String: d.Identifier.Value(), Valid: true}
	default:
		return domain.Client{}, apperror.NewInternalError("variante de cliente não suportada", nil)
	}

	const query = `
        INSERT INTO clients (id, kind, name, email, phone, birth_date, company_identifier, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 1)`

	id := uuid.New().String()
	_, err := database.Executor(ctx, r.DB).ExecContext(ctxTimeout, query,
		id,
		string(client.Kind()),
		client.Name().Value(),
		client.Email().Value(),
		client.Phone().Value(),
		birthDate,
		identifier,
	)
	if err != nil {
		return domain.Client{}, r.translateWriteError(err, client)
	}

	return domain.ReconstituteClient(id, 1, client.Name(), client.Email(), client.Phone(), client.Details())
}

func (r *ClientRepository) update(ctx context.Context, client domain.Client) (domain.Client, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        UPDATE clients
        SET name = $1, email = $2, phone = $3, version = version + 1, updated_at = NOW()
        WHERE id = $4 AND version = $5`

	result, err := database.Executor(ctx, r.DB).ExecContext(ctxTimeout, query,
		client.Name().Value(),
		client.Email().Value(),
		client.Phone().Value(),
		client.ID(),
		client.Version(), // Checa a versão lida para OCC
	)
	if err != nil {
		return domain.Client{}, r.translateWriteError(err, client)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("Falha ao verificar linhas afetadas após atualização de cliente.", err)
		return domain.Client{}, apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}

	if rowsAffected == 0 {
		exists, existsErr := r.ExistsByID(ctx, client.ID())
		if existsErr != nil {
			return domain.Client{}, existsErr
		}
		if !exists {
			return domain.Client{}, apperror.NewClientNotFoundError(client.ID())
		}
		r.logger.Warn("Falha no controle de concorrência otimista (OCC) do cliente.", map[string]interface{}{
			"client_id":        client.ID(),
			"expected_version": client.Version(),
		})
		return domain.Client{}, apperror.NewConcurrentModificationError("cliente", client.ID())
	}

	return domain.ReconstituteClient(client.ID(), client.Version()+1, client.Name(), client.Email(), client.Phone(), client.Details())
}

// translateWriteError converte violações tardias de unicidade nos mesmos erros da verificação antecipada.
func (r *ClientRepository) translateWriteError(err error, client domain.Client) error {
	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case constraintEmail:
			return apperror.NewClientAlreadyExistsError(client.Email().Value())
		case constraintCompanyIdentifier:
			if d, isCompany := client.Details().(domain.CompanyDetails); isCompany {
				return apperror.NewCompanyIdentifierAlreadyExistsError(d.Identifier.Value())
			}
		}
	}
	r.logger.Error("Falha ao gravar cliente no DB.", err)
	return apperror.NewDBError("Falha ao gravar cliente", err)
}

// DeleteByID remove o cliente.
func (r *ClientRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewClientNotFoundError(id)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := database.Executor(ctx, r.DB).ExecContext(ctxTimeout, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao remover cliente no DB.", err)
		return apperror.NewDBError("Falha ao remover cliente", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return apperror.NewClientNotFoundError(id)
	}
	return nil
}

// ExistsByID verifica se o cliente existe.
func (r *ClientRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, id)
}

// ExistsByEmail verifica se algum cliente, de qualquer variante, usa o e-mail.
func (r *ClientRepository) ExistsByEmail(ctx context.Context, email domain.Email) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE email = $1)`, email.Value())
}

// ExistsByCompanyIdentifier verifica se alguma empresa usa o identificador.
func (r *ClientRepository) ExistsByCompanyIdentifier(ctx context.Context, identifier domain.CompanyIdentifier) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE company_identifier = $1)`, identifier.Value())
}

func (r *ClientRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var exists bool
	if err := database.Executor(ctx, r.DB).QueryRowContext(ctxTimeout, query, arg).Scan(&exists); err != nil {
		r.logger.Error("Falha ao verificar existência de cliente no DB.", err)
		return false, apperror.NewDBError("Falha ao verificar existência de cliente", err)
	}
	return exists, nil
}

func (r *ClientRepository) scan(row *sql.Row) (domain.Client, error) {
	var (
		id, kind, rawName, rawEmail, rawPhone string
		birthDate                             sql.NullTime
		identifier                            sql.NullString
		version                               int64
	)
	if err := row.Scan(&id, &kind, &rawName, &rawEmail, &rawPhone, &birthDate, &identifier, &version); err != nil {
		return domain.Client{}, err
	}

	name, err := domain.NewClientName(rawName)
	if err != nil {
		return domain.Client{}, err
	}
	email, err := domain.NewEmail(rawEmail)
	if err != nil {
		return domain.Client{}, err
	}
	phone, err := domain.NewPhoneNumber(rawPhone)
	if err != nil {
		return domain.Client{}, err
	}

	var details domain.ClientDetails
	switch domain.ClientKind(kind) {
	case domain.ClientKindPerson:
		bd, err := domain.NewBirthDate(birthDate.Time, r.now())
		if err != nil {
			return domain.Client{}, err
		}
		details = domain.PersonDetails{BirthDate: bd}
	case domain.ClientKindCompany:
		ci, err := domain.NewCompanyIdentifier(identifier.String)
		if err != nil {
			return domain.Client{}, err
		}
		details = domain.CompanyDetails{Identifier: ci}
	default:
		return domain.Client{}, errors.New("tipo de cliente desconhecido: " + kind)
	}

	return domain.ReconstituteClient(id, version, name, email, phone, details)
}
