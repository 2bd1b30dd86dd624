package contractrepo_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/cache"
	"gocontracts/internal/pkg/database"
	"gocontracts/internal/pkg/logger"
	"gocontracts/internal/repository/contractrepo"
)

const (
	clientID   = "8f14e45f-ceea-467f-a0d6-2d3f1c0e9a11"
	contractID = "c9f0f895-fb98-4b91-8b4d-7f1c2a9e2b10"
)

var (
	contractColumns = []string{"id", "client_id", "start_date", "end_date", "cost_amount", "last_modified", "version"}
	sumColumns      = []string{"sum", "next_end"}
)

func newRedis(t *testing.T) (*miniredis.Miniredis, cache.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client, err := cache.NewRedisClient(context.Background(), srv.Addr())
	require.NoError(t, err)
	return srv, client
}

func newRepo(t *testing.T, cacheClient cache.Client) (*contractrepo.ContractRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return contractrepo.NewContractRepository(db, cacheClient, time.Minute, time.Second, logger.NewNop()), mock
}

func storedContract(t *testing.T, version int64) domain.Contract {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	period, err := domain.ReconstituteContractPeriod(start, nil)
	require.NoError(t, err)
	cost, err := domain.ParseContractCost("100.00")
	require.NoError(t, err)
	c, err := domain.ReconstituteContract(contractID, clientID, version, period, cost, start)
	require.NoError(t, err)
	return c
}

func TestFindByID(t *testing.T) {
	repo, mock := newRepo(t, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	mock.ExpectQuery("SELECT id, client_id, start_date, end_date, cost_amount, last_modified, version").
		WithArgs(contractID).
		WillReturnRows(sqlmock.NewRows(contractColumns).
			AddRow(contractID, clientID, start, end, "1500.00", start, int64(2)))

	contract, err := repo.FindByID(context.Background(), contractID)

	require.NoError(t, err)
	assert.Equal(t, clientID, contract.ClientID())
	assert.Equal(t, "1500.00", contract.Cost().String())
	assert.False(t, contract.Period().IsOpenEnded())
	assert.Equal(t, int64(2), contract.Version())
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := newRepo(t, nil)

	mock.ExpectQuery("FROM contracts").WithArgs(contractID).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), contractID)

	assert.True(t, apperror.HasCode(err, apperror.CodeContractNotFound))
}

func TestSave_UpdateVersionMismatch(t *testing.T) {
	repo, mock := newRepo(t, nil)
	contract := storedContract(t, 1)

	mock.ExpectExec("UPDATE contracts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM contracts").WithArgs(contractID).
		WillReturnRows(sqlmock.NewRows(contractColumns).
			AddRow(contractID, clientID, time.Now(), nil, "100.00", time.Now(), int64(2)))

	_, err := repo.Save(context.Background(), contract)

	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveByClientID_FiltersAndPages(t *testing.T) {
	repo, mock := newRepo(t, nil)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	since := now.AddDate(0, -1, 0)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contracts WHERE client_id = \$1 AND \(end_date IS NULL OR end_date > \$2\) AND last_modified >= \$3`).
		WithArgs(clientID, now, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`ORDER BY last_modified DESC, id LIMIT \$4 OFFSET \$5`).
		WithArgs(clientID, now, since, 2, 2).
		WillReturnRows(sqlmock.NewRows(contractColumns).
			AddRow(contractID, clientID, since, nil, "10.00", since, int64(1)))

	page, err := repo.FindActiveByClientID(context.Background(), clientID, now, &since, domain.PageRequest{Page: 1, Size: 2})

	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseAllActiveByClientID(t *testing.T) {
	repo, mock := newRepo(t, nil)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE contracts").WithArgs(clientID, now).WillReturnResult(sqlmock.NewResult(0, 2))

	closed, err := repo.CloseAllActiveByClientID(context.Background(), clientID, now)

	require.NoError(t, err)
	assert.Equal(t, int64(2), closed)
}

func TestSumActiveByClientID_CacheAside(t *testing.T) {
	srv := miniredis.RunT(t)
	redisClient, err := cache.NewRedisClient(context.Background(), srv.Addr())
	require.NoError(t, err)
	repo, mock := newRepo(t, redisClient)
	now := time.Now()

	mock.ExpectQuery("SELECT COALESCE").WithArgs(clientID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(sumColumns).AddRow("4000.50", nil))

	first, err := repo.SumActiveByClientID(context.Background(), clientID, now)
	require.NoError(t, err)
	second, err := repo.SumActiveByClientID(context.Background(), clientID, now)
	require.NoError(t, err)

	assert.True(t, first.Equal(decimal.RequireFromString("4000.50")))
	assert.True(t, second.Equal(first))
	assert.NoError(t, mock.ExpectationsWereMet(), "a segunda leitura vem do cache")

	assert.True(t, srv.Exists("contracts:sum:"+clientID))
}

func TestSumActiveByClientID_InvalidatedByClose(t *testing.T) {
	srv := miniredis.RunT(t)
	redisClient, err := cache.NewRedisClient(context.Background(), srv.Addr())
	require.NoError(t, err)
	repo, mock := newRepo(t, redisClient)
	require.NoError(t, srv.Set("contracts:sum:"+clientID, "99"))

	mock.ExpectExec("UPDATE contracts").WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = repo.CloseAllActiveByClientID(context.Background(), clientID, time.Now())
	require.NoError(t, err)

	assert.False(t, srv.Exists("contracts:sum:"+clientID))
}

func TestSumActiveByClientID_NoContracts(t *testing.T) {
	repo, mock := newRepo(t, nil)

	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows(sumColumns).AddRow("0", nil))

	sum, err := repo.SumActiveByClientID(context.Background(), clientID, time.Now())

	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestSumActiveByClientID_CacheExpiresWhenAContractEnds(t *testing.T) {
	_, redisClient := newRedis(t)
	repo, mock := newRepo(t, redisClient)
	t1 := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(10 * time.Second)
	endsBetween := t1.Add(5 * time.Second)

	mock.ExpectQuery("SELECT COALESCE").WithArgs(clientID, t1).
		WillReturnRows(sqlmock.NewRows(sumColumns).AddRow("4000.50", endsBetween))
	mock.ExpectQuery("SELECT COALESCE").WithArgs(clientID, t2).
		WillReturnRows(sqlmock.NewRows(sumColumns).AddRow("1500.50", nil))

	atT1, err := repo.SumActiveByClientID(context.Background(), clientID, t1)
	require.NoError(t, err)
	beforeEnd, err := repo.SumActiveByClientID(context.Background(), clientID, t1.Add(time.Second))
	require.NoError(t, err)
	atT2, err := repo.SumActiveByClientID(context.Background(), clientID, t2)
	require.NoError(t, err)

	assert.Equal(t, "4000.50", atT1.StringFixed(2))
	assert.Equal(t, "4000.50", beforeEnd.StringFixed(2), "antes do término vale o cache")
	assert.Equal(t, "1500.50", atT2.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumActiveByClientID_CacheNotUsedForEarlierInstant(t *testing.T) {
	_, redisClient := newRedis(t)
	repo, mock := newRepo(t, redisClient)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	mock.ExpectQuery("SELECT COALESCE").WithArgs(clientID, now).
		WillReturnRows(sqlmock.NewRows(sumColumns).AddRow("100.00", nil))
	mock.ExpectQuery("SELECT COALESCE").WithArgs(clientID, earlier).
		WillReturnRows(sqlmock.NewRows(sumColumns).AddRow("350.00", now.Add(-time.Minute)))

	_, err := repo.SumActiveByClientID(context.Background(), clientID, now)
	require.NoError(t, err)
	past, err := repo.SumActiveByClientID(context.Background(), clientID, earlier)
	require.NoError(t, err)

	assert.Equal(t, "350.00", past.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumActiveByClientID_InvalidatedOnlyAfterCommit(t *testing.T) {
	srv, redisClient := newRedis(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := contractrepo.NewContractRepository(db, redisClient, time.Minute, time.Second, logger.NewNop())
	tx := database.NewTxManager(db, logger.NewNop())
	key := "contracts:sum:" + clientID
	require.NoError(t, srv.Set(key, "stale"))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE contracts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := repo.CloseAllActiveByClientID(ctx, clientID, time.Now()); err != nil {
			return err
		}
		assert.True(t, srv.Exists(key), "a chave continua até o commit")
		return nil
	})

	require.NoError(t, err)
	assert.False(t, srv.Exists(key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumActiveByClientID_KeptOnRollback(t *testing.T) {
	srv, redisClient := newRedis(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := contractrepo.NewContractRepository(db, redisClient, time.Minute, time.Second, logger.NewNop())
	tx := database.NewTxManager(db, logger.NewNop())
	key := "contracts:sum:" + clientID
	require.NoError(t, srv.Set(key, "kept"))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE contracts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := repo.CloseAllActiveByClientID(ctx, clientID, time.Now()); err != nil {
			return err
		}
		return apperror.NewClientNotFoundError(clientID)
	})

	require.Error(t, err)
	assert.True(t, srv.Exists(key))
}

func TestSumActiveByClientID_CancelledCallerDoesNotAbortLoad(t *testing.T) {
	_, redisClient := newRedis(t)
	repo, mock := newRepo(t, redisClient)
	now := time.Now()

	mock.ExpectQuery("SELECT COALESCE").WithArgs(clientID, sqlmock.AnyArg()).
		WillDelayFor(20 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows(sumColumns).AddRow("4000.50", nil))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = repo.SumActiveByClientID(cancelled, clientID, now)

	sum, err := repo.SumActiveByClientID(context.Background(), clientID, now)

	require.NoError(t, err)
	assert.Equal(t, "4000.50", sum.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet(), "uma única consulta atende os dois chamadores")
}
