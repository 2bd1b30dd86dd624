package memory

import (
	"context"
	"sync"

	"gocontracts/internal/domain"
)

// Store guarda clientes e contratos em memória. É usado pelo driver
// STORAGE_DRIVER=memory e pelos testes de serviço e de aceitação.
type Store struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	clients   map[string]domain.Client
	contracts map[string]domain.Contract
}

func NewStore() *Store {
	return &Store{
		clients:   make(map[string]domain.Client),
		contracts: make(map[string]domain.Contract),
	}
}

type snapshot struct {
	clients   map[string]domain.Client
	contracts map[string]domain.Contract
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		clients:   make(map[string]domain.Client, len(s.clients)),
		contracts: make(map[string]domain.Contract, len(s.contracts)),
	}
	for k, v := range s.clients {
		snap.clients[k] = v
	}
	for k, v := range s.contracts {
		snap.contracts[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = snap.clients
	s.contracts = snap.contracts
}

type txKey struct{}

func inTransaction(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// lockForWrite trava o Store para uma escrita. Fora de transação a escrita
// também espera txMu, assim um rollback nunca apaga o que já foi confirmado.
func (s *Store) lockForWrite(ctx context.Context) (unlock func()) {
	if inTransaction(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// Transactor implementa domain.Transactor: as transações são serializadas entre si
// e com as escritas avulsas; um erro em fn restaura o estado anterior.
type Transactor struct {
	store *Store
}

func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTransaction(ctx) {
		return fn(ctx)
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}
