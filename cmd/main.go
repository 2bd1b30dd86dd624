package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"gocontracts/config"
	"gocontracts/internal/domain"
	"gocontracts/internal/pkg/cache"
	"gocontracts/internal/pkg/database"
	"gocontracts/internal/pkg/logger"
	"gocontracts/internal/pkg/token"
	"gocontracts/migrations"

	// Camadas para Injeção de Dependências
	"gocontracts/internal/api/client"
	"gocontracts/internal/api/contract"
	"gocontracts/internal/api/router"
	"gocontracts/internal/repository/clientrepo"
	"gocontracts/internal/repository/contractrepo"
	"gocontracts/internal/repository/memory"
	"gocontracts/internal/service/clientservice"
	"gocontracts/internal/service/contractservice"
)

// repositories agrupa as portas de persistência escolhidas pelo STORAGE_DRIVER.
type repositories struct {
	clients   domain.ClientRepository
	contracts domain.ContractRepository
	tx        domain.Transactor
	close     func()
}

func main() {
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	// 1. Configuração e Inicialização
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("configuração inválida: %v", err)
	}
	appLog := logger.NewLogger(cfg.LogLevel)
	if zl, ok := appLog.(*logger.ZapLogger); ok {
		defer zl.Sync()
	}
	appLog.Info("Inicializando serviço GoContracts...", map[string]interface{}{"storage": cfg.StorageDriver})

	ctx := context.Background()

	// 2. Cache (Redis), opcional
	var cacheClient cache.Client
	if cfg.CacheEnabled() {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			appLog.Fatal("Falha ao conectar ao Redis.", err)
		}
		defer redisClient.Close()
		cacheClient = redisClient
		appLog.Info("Conexão Redis estabelecida.", nil)
	}

	// 3. Persistência
	repos, err := buildRepositories(ctx, cfg, cacheClient, appLog)
	if err != nil {
		appLog.Fatal("Falha ao inicializar a persistência.", err)
	}
	defer repos.close()

	// 4. INJEÇÃO DE DEPENDÊNCIAS: Repository -> Service -> Handler
	clientSvc := clientservice.NewService(repos.clients, repos.contracts, repos.tx, appLog)
	contractSvc := contractservice.NewService(repos.contracts, repos.clients, repos.tx, appLog)

	opts := router.Options{
		ClientHandler:   client.NewHandler(clientSvc, appLog),
		ContractHandler: contract.NewHandler(contractSvc, appLog),
		Logger:          appLog,
		RateLimitCache:  cacheClient,
		RateLimit:       cfg.RateLimitMaxRequests,
		RateLimitPeriod: cfg.RateLimitPeriod,
		RequestTimeout:  cfg.RequestTimeout,
		Production:      cfg.IsProduction(),
	}
	if cfg.AuthEnabled() {
		opts.TokenValidator = token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
		appLog.Debug("Autenticação JWT ativada.", nil)
	} else {
		appLog.Warn("JWT_SECRET_KEY vazia: rotas /v1 sem autenticação.", nil)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(opts),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor GoContracts ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}

func buildRepositories(ctx context.Context, cfg *config.Config, cacheClient cache.Client, appLog logger.Logger) (*repositories, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.NewStore()
		appLog.Warn("Usando armazenamento em memória. Os dados não sobrevivem ao reinício.", nil)
		return &repositories{
			clients:   memory.NewClientRepository(store),
			contracts: memory.NewContractRepository(store),
			tx:        memory.NewTransactor(store),
			close:     func() {},
		}, nil
	}

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	if cfg.MigrateOnStart {
		if err := migrations.Up(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		appLog.Info("Migrações aplicadas.", nil)
	}

	return &repositories{
		clients:   clientrepo.NewClientRepository(db, cfg.DBTimeout, appLog),
		contracts: contractrepo.NewContractRepository(db, cacheClient, cfg.CacheTTL, cfg.DBTimeout, appLog),
		tx:        database.NewTxManager(db, appLog),
		close:     func() { _ = db.Close() },
	}, nil
}
