package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// --- Portas de Persistência (implementadas pelos adaptadores em internal/repository) ---

// ClientRepository define o que a camada de aplicação pode pedir da persistência de clientes.
// FindByID devolve um erro CLIENT_NOT_FOUND quando o cliente não existe.
// Save insere quando o cliente não tem ID (atribuindo um) e, caso contrário,
// atualiza condicionado à versão lida; versão divergente é CONCURRENT_MODIFICATION.
type ClientRepository interface {
	FindByID(ctx context.Context, id string) (Client, error)
	Save(ctx context.Context, client Client) (Client, error)
	DeleteByID(ctx context.Context, id string) error
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByEmail(ctx context.Context, email Email) (bool, error)
	ExistsByCompanyIdentifier(ctx context.Context, identifier CompanyIdentifier) (bool, error)
}

// ContractRepository define o que a camada de aplicação pode pedir da persistência de contratos.
type ContractRepository interface {
	FindByID(ctx context.Context, id string) (Contract, error)
	Save(ctx context.Context, contract Contract) (Contract, error)
	// FindActiveByClientID lista os contratos ativos em now (end nulo ou end > now),
	// filtrando por lastModified >= updatedSince quando informado.
	FindActiveByClientID(ctx context.Context, clientID string, now time.Time, updatedSince *time.Time, page PageRequest) (Page[Contract], error)
	// CloseAllActiveByClientID encerra em now, numa única operação, todos os contratos ativos do cliente.
	CloseAllActiveByClientID(ctx context.Context, clientID string, now time.Time) (int64, error)
	// SumActiveByClientID soma o custo dos contratos ativos em now; zero quando não há nenhum.
	SumActiveByClientID(ctx context.Context, clientID string, now time.Time) (decimal.Decimal, error)
}

// Transactor executa fn numa única transação; os repositórios usam a
// transação carregada no contexto recebido por fn.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
