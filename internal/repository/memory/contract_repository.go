package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
)

// ContractRepository implementa domain.ContractRepository sobre o Store.
type ContractRepository struct {
	store *Store
}

func NewContractRepository(store *Store) *ContractRepository {
	return &ContractRepository{store: store}
}

func (r *ContractRepository) FindByID(_ context.Context, id string) (domain.Contract, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	contract, ok := r.store.contracts[id]
	if !ok {
		return domain.Contract{}, apperror.NewContractNotFoundError(id)
	}
	return contract, nil
}

func (r *ContractRepository) Save(ctx context.Context, contract domain.Contract) (domain.Contract, error) {
	defer r.store.lockForWrite(ctx)()

	id, version := contract.ID(), int64(1)
	if contract.IsPersisted() {
		current, ok := r.store.contracts[id]
		if !ok {
			return domain.Contract{}, apperror.NewContractNotFoundError(id)
		}
		if current.Version() != contract.Version() {
			return domain.Contract{}, apperror.NewConcurrentModificationError("contrato", id)
		}
		version = current.Version() + 1
	} else {
		id = uuid.New().String()
	}

	saved, err := domain.ReconstituteContract(id, contract.ClientID(), version, contract.Period(), contract.Cost(), contract.LastModified())
	if err != nil {
		return domain.Contract{}, err
	}
	r.store.contracts[id] = saved
	return saved, nil
}

func (r *ContractRepository) FindActiveByClientID(_ context.Context, clientID string, now time.Time, updatedSince *time.Time, page domain.PageRequest) (domain.Page[domain.Contract], error) {
	active := r.active(clientID, now)

	filtered := active[:0]
	for _, c := range active {
		if updatedSince != nil && c.LastModified().Before(domain.Instant(*updatedSince)) {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].LastModified().Equal(filtered[j].LastModified()) {
			return filtered[i].LastModified().After(filtered[j].LastModified())
		}
		return filtered[i].ID() < filtered[j].ID()
	})

	total := len(filtered)
	from := page.Offset()
	if from > total {
		from = total
	}
	to := from + page.Limit()
	if to > total || to < from {
		to = total
	}
	return domain.NewPage(filtered[from:to], page, total), nil
}

func (r *ContractRepository) CloseAllActiveByClientID(ctx context.Context, clientID string, now time.Time) (int64, error) {
	defer r.store.lockForWrite(ctx)()

	var closed int64
	for id, c := range r.store.contracts {
		if c.ClientID() != clientID || !c.IsActiveAt(now) {
			continue
		}
		next := c.Close(now)
		saved, err := domain.ReconstituteContract(id, next.ClientID(), c.Version()+1, next.Period(), next.Cost(), next.LastModified())
		if err != nil {
			return closed, err
		}
		r.store.contracts[id] = saved
		closed++
	}
	return closed, nil
}

func (r *ContractRepository) SumActiveByClientID(_ context.Context, clientID string, now time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range r.active(clientID, now) {
		sum = sum.Add(c.Cost().Value())
	}
	return sum, nil
}

func (r *ContractRepository) active(clientID string, now time.Time) []domain.Contract {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []domain.Contract
	for _, c := range r.store.contracts {
		if c.ClientID() == clientID && c.IsActiveAt(now) {
			out = append(out, c)
		}
	}
	return out
}
