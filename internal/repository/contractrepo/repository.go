package contractrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/cache"
	"gocontracts/internal/pkg/database"
	"gocontracts/internal/pkg/logger"
)

// Define a chave de cache da soma dos contratos ativos de um cliente.
const sumCacheKey = "contracts:sum:%s"

// ContractRepository implementa domain.ContractRepository sobre PostgreSQL,
// com cache-aside opcional (Redis) para a soma dos contratos ativos.
type ContractRepository struct {
	DB        *sql.DB
	Cache     cache.Client // nil desativa o cache
	CacheTTL  time.Duration
	DBTimeout time.Duration
	logger    logger.Logger
	sumGroup  singleflight.Group
}

// NewContractRepository cria e retorna uma nova instância do Repositório de Contratos.
func NewContractRepository(db *sql.DB, cacheClient cache.Client, cacheTTL, dbTimeout time.Duration, logger logger.Logger) *ContractRepository {
	return &ContractRepository{
		DB:        db,
		Cache:     cacheClient,
		CacheTTL:  cacheTTL,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const selectContract = `
        SELECT id, client_id, start_date, end_date, cost_amount, last_modified, version
        FROM contracts`

// FindByID busca um contrato pelo ID.
func (r *ContractRepository) FindByID(ctx context.Context, id string) (domain.Contract, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Contract{}, apperror.NewContractNotFoundError(id)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	row := database.Executor(ctx, r.DB).QueryRowContext(ctxTimeout, selectContract+` WHERE id = $1`, id)
	contract, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contract{}, apperror.NewContractNotFoundError(id)
	}
	if err != nil {
		r.logger.Error("Falha ao buscar contrato no DB.", err)
		return domain.Contract{}, apperror.NewDBError("Falha ao buscar contrato", err)
	}
	return contract, nil
}

// Save insere um contrato novo ou atualiza um existente com controle de concorrência otimista (OCC).
func (r *ContractRepository) Save(ctx context.Context, contract domain.Contract) (domain.Contract, error) {
	var (
		saved domain.Contract
		err   error
	)
	if contract.IsPersisted() {
		saved, err = r.update(ctx, contract)
	} else {
		saved, err = r.insert(ctx, contract)
	}
	if err != nil {
		return domain.Contract{}, err
	}
	r.invalidateSum(ctx, contract.ClientID())
	return saved, nil
}

func (r *ContractRepository) insert(ctx context.Context, contract domain.Contract) (domain.Contract, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        INSERT INTO contracts (id, client_id, start_date, end_date, cost_amount, last_modified, version)
        VALUES ($1, $2, $3, $4, $5, $6, 1)`

	id := uuid.New().String()
	_, err := database.Executor(ctx, r.DB).ExecContext(ctxTimeout, query,
		id,
		contract.ClientID(),
		contract.Period().Start(),
		nullTime(contract.Period()),
		contract.Cost().Value(),
		contract.LastModified(),
	)
	if err != nil {
		r.logger.Error("Falha ao inserir contrato no DB.", err)
		return domain.Contract{}, apperror.NewDBError("Falha ao inserir contrato", err)
	}

	return domain.ReconstituteContract(id, contract.ClientID(), 1, contract.Period(), contract.Cost(), contract.LastModified())
}

func (r *ContractRepository) update(ctx context.Context, contract domain.Contract) (domain.Contract, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        UPDATE contracts
        SET start_date = $1, end_date = $2, cost_amount = $3, last_modified = $4, version = version + 1
        WHERE id = $5 AND version = $6`

	result, err := database.Executor(ctx, r.DB).ExecContext(ctxTimeout, query,
		contract.Period().Start(),
		nullTime(contract.Period()),
		contract.Cost().Value(),
		contract.LastModified(),
		contract.ID(),
		contract.Version(),
	)
	if err != nil {
		r.logger.Error("Falha ao atualizar contrato no DB.", err)
		return domain.Contract{}, apperror.NewDBError("Falha ao atualizar contrato", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.Contract{}, apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		if _, findErr := r.FindByID(ctx, contract.ID()); findErr != nil {
			return domain.Contract{}, findErr
		}
		r.logger.Warn("Falha no controle de concorrência otimista (OCC) do contrato.", map[string]interface{}{
			"contract_id":      contract.ID(),
			"expected_version": contract.Version(),
		})
		return domain.Contract{}, apperror.NewConcurrentModificationError("contrato", contract.ID())
	}

	return domain.ReconstituteContract(contract.ID(), contract.ClientID(), contract.Version()+1, contract.Period(), contract.Cost(), contract.LastModified())
}

// FindActiveByClientID lista os contratos ativos em now, do mais recentemente alterado ao mais antigo.
func (r *ContractRepository) FindActiveByClientID(ctx context.Context, clientID string, now time.Time, updatedSince *time.Time, page domain.PageRequest) (domain.Page[domain.Contract], error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return domain.NewPage[domain.Contract](nil, page, 0), nil
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	where := []string{"client_id = $1", "(end_date IS NULL OR end_date > $2)"}
	args := []interface{}{clientID, domain.Instant(now)}
	if updatedSince != nil {
		args = append(args, domain.Instant(*updatedSince))
		where = append(where, fmt.Sprintf("last_modified >= $%d", len(args)))
	}
	filter := " WHERE " + strings.Join(where, " AND ")
	exec := database.Executor(ctx, r.DB)

	var total int
	if err := exec.QueryRowContext(ctxTimeout, `SELECT COUNT(*) FROM contracts`+filter, args...).Scan(&total); err != nil {
		r.logger.Error("Falha ao contar contratos ativos no DB.", err)
		return domain.Page[domain.Contract]{}, apperror.NewDBError("Falha ao contar contratos ativos", err)
	}

	pageArgs := append(append([]interface{}{}, args...), page.Limit(), page.Offset())
	query := selectContract + filter +
		fmt.Sprintf(" ORDER BY last_modified DESC, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := exec.QueryContext(ctxTimeout, query, pageArgs...)
	if err != nil {
		r.logger.Error("Falha ao listar contratos ativos no DB.", err)
		return domain.Page[domain.Contract]{}, apperror.NewDBError("Falha ao listar contratos ativos", err)
	}
	defer rows.Close()

	items := make([]domain.Contract, 0, page.Limit())
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return domain.Page[domain.Contract]{}, apperror.NewDBError("Falha ao ler contrato", err)
		}
		items = append(items, contract)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Contract]{}, apperror.NewDBError("Falha ao iterar contratos", err)
	}

	return domain.NewPage(items, page, total), nil
}

// CloseAllActiveByClientID encerra em now todos os contratos ativos do cliente numa única instrução.
func (r *ContractRepository) CloseAllActiveByClientID(ctx context.Context, clientID string, now time.Time) (int64, error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return 0, nil
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        UPDATE contracts
        SET end_date = $2,
            start_date = LEAST(start_date, $2),
            last_modified = GREATEST($2, last_modified + INTERVAL '1 microsecond'),
            version = version + 1
        WHERE client_id = $1 AND (end_date IS NULL OR end_date > $2)`

	result, err := database.Executor(ctx, r.DB).ExecContext(ctxTimeout, query, clientID, domain.Instant(now))
	if err != nil {
		r.logger.Error("Falha ao encerrar contratos do cliente no DB.", err)
		return 0, apperror.NewDBError("Falha ao encerrar contratos", err)
	}
	closed, err := result.RowsAffected()
	if err != nil {
		return 0, apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}

	r.invalidateSum(ctx, clientID)
	return closed, nil
}

// cachedSum é a soma guardada no cache junto com o intervalo [From, Until) em que
// ela continua valendo: nenhum contrato ativo em From termina antes de Until.
type cachedSum struct {
	Sum   decimal.Decimal `json:"sum"`
	From  time.Time       `json:"from"`
	Until *time.Time      `json:"until,omitempty"`
}

func (c cachedSum) covers(now time.Time) bool {
	now = domain.Instant(now)
	return !now.Before(c.From) && (c.Until == nil || now.Before(*c.Until))
}

// SumActiveByClientID soma os custos dos contratos ativos no banco (cache-aside quando o Redis está ligado).
func (r *ContractRepository) SumActiveByClientID(ctx context.Context, clientID string, now time.Time) (decimal.Decimal, error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return decimal.Zero, nil
	}
	// Dentro de uma transação a leitura precisa enxergar as próprias escritas.
	if r.Cache == nil || database.InTransaction(ctx) {
		res, err := r.sumFromDB(ctx, clientID, now)
		return res.Sum, err
	}

	key := fmt.Sprintf(sumCacheKey, clientID)
	if cached, err := r.Cache.Get(ctx, key); err == nil {
		var hit cachedSum
		if jsonErr := json.Unmarshal([]byte(cached), &hit); jsonErr == nil && hit.covers(now) {
			return hit.Sum, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("Falha ao ler soma do cache.", map[string]interface{}{"client_id": clientID, "error": err.Error()})
	}

	// A carga não herda o cancelamento de quem chegou primeiro: os demais aguardam o mesmo resultado.
	loadCtx := context.WithoutCancel(ctx)
	resultChan := r.sumGroup.DoChan(key, func() (interface{}, error) {
		res, err := r.sumFromDB(loadCtx, clientID, now)
		if err != nil {
			return nil, err
		}
		r.storeSum(loadCtx, key, res, now)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return decimal.Zero, apperror.NewInternalError("consulta cancelada", ctx.Err())
	case out := <-resultChan:
		if out.Err != nil {
			return decimal.Zero, out.Err
		}
		res := out.Val.(cachedSum)
		if res.covers(now) {
			return res.Sum, nil
		}
		// Resultado compartilhado calculado para outro instante.
		own, err := r.sumFromDB(ctx, clientID, now)
		return own.Sum, err
	}
}

func (r *ContractRepository) storeSum(ctx context.Context, key string, res cachedSum, now time.Time) {
	ttl := r.CacheTTL
	if res.Until != nil {
		if untilEnd := res.Until.Sub(domain.Instant(now)); untilEnd < ttl {
			ttl = untilEnd
		}
	}
	if ttl <= 0 {
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, string(payload), ttl); err != nil {
		r.logger.Warn("Falha ao gravar soma no cache.", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (r *ContractRepository) sumFromDB(ctx context.Context, clientID string, now time.Time) (cachedSum, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        SELECT COALESCE(SUM(cost_amount), 0), MIN(end_date)
        FROM contracts
        WHERE client_id = $1 AND (end_date IS NULL OR end_date > $2)`

	at := domain.Instant(now)
	var (
		sum     decimal.Decimal
		nextEnd sql.NullTime
	)
	if err := database.Executor(ctx, r.DB).QueryRowContext(ctxTimeout, query, clientID, at).Scan(&sum, &nextEnd); err != nil {
		r.logger.Error("Falha ao somar contratos ativos no DB.", err)
		return cachedSum{}, apperror.NewDBError("Falha ao somar contratos ativos", err)
	}

	res := cachedSum{Sum: sum, From: at}
	if nextEnd.Valid {
		until := domain.Instant(nextEnd.Time)
		res.Until = &until
	}
	return res, nil
}

// invalidateSum remove a soma em cache depois do commit da transação corrente
// (ou na hora, fora de transação).
func (r *ContractRepository) invalidateSum(ctx context.Context, clientID string) {
	if r.Cache == nil {
		return
	}
	key := fmt.Sprintf(sumCacheKey, clientID)
	database.AfterCommit(ctx, func() {
		r.sumGroup.Forget(key)
		if err := r.Cache.Delete(context.WithoutCancel(ctx), key); err != nil {
			r.logger.Warn("Falha ao invalidar soma no cache.", map[string]interface{}{"client_id": clientID, "error": err.Error()})
		}
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanContract(row scanner) (domain.Contract, error) {
	var (
		id, clientID string
		start        time.Time
		end          sql.NullTime
		amount       decimal.Decimal
		lastModified time.Time
		version      int64
	)
	if err := row.Scan(&id, &clientID, &start, &end, &amount, &lastModified, &version); err != nil {
		return domain.Contract{}, err
	}

	var endPtr *time.Time
	if end.Valid {
		endPtr = &end.Time
	}
	period, err := domain.ReconstituteContractPeriod(start, endPtr)
	if err != nil {
		return domain.Contract{}, err
	}
	cost, err := domain.NewContractCost(amount)
	if err != nil {
		return domain.Contract{}, err
	}
	return domain.ReconstituteContract(id, clientID, version, period, cost, lastModified)
}

func nullTime(p domain.ContractPeriod) sql.NullTime {
	end, ok := p.End()
	return sql.NullTime{Time: end, Valid: ok}
}
