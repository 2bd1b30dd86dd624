package memory

import (
	"context"

	"github.com/google/uuid"

	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
)

// ClientRepository implementa domain.ClientRepository sobre o Store,
// com as mesmas restrições únicas e checagem de versão do PostgreSQL.
type ClientRepository struct {
	store *Store
}

func NewClientRepository(store *Store) *ClientRepository {
	return &ClientRepository{store: store}
}

func (r *ClientRepository) FindByID(_ context.Context, id string) (domain.Client, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	client, ok := r.store.clients[id]
	if !ok {
		return domain.Client{}, apperror.NewClientNotFoundError(id)
	}
	return client, nil
}

func (r *ClientRepository) Save(ctx context.Context, client domain.Client) (domain.Client, error) {
	defer r.store.lockForWrite(ctx)()

	id, version := client.ID(), int64(1)
	if client.IsPersisted() {
		current, ok := r.store.clients[id]
		if !ok {
			return domain.Client{}, apperror.NewClientNotFoundError(id)
		}
		if current.Version() != client.Version() {
			return domain.Client{}, apperror.NewConcurrentModificationError("cliente", id)
		}
		version = current.Version() + 1
	} else {
		id = uuid.New().String()
	}

	if err := r.checkUnique(id, client); err != nil {
		return domain.Client{}, err
	}

	saved, err := domain.ReconstituteClient(id, version, client.Name(), client.Email(), client.Phone(), client.Details())
	if err != nil {
		return domain.Client{}, err
	}
	r.store.clients[id] = saved
	return saved, nil
}

// checkUnique deve ser chamado com o lock de escrita.
func (r *ClientRepository) checkUnique(id string, client domain.Client) error {
	identifier, isCompany := client.Details().(domain.CompanyDetails)
	for otherID, other := range r.store.clients {
		if otherID == id {
			continue
		}
		if other.Email() == client.Email() {
			return apperror.NewClientAlreadyExistsError(client.Email().Value())
		}
		if !isCompany {
			continue
		}
		if d, ok := other.Details().(domain.CompanyDetails); ok && d.Identifier == identifier.Identifier {
			return apperror.NewCompanyIdentifierAlreadyExistsError(identifier.Identifier.Value())
		}
	}
	return nil
}

func (r *ClientRepository) DeleteByID(ctx context.Context, id string) error {
	defer r.store.lockForWrite(ctx)()

	if _, ok := r.store.clients[id]; !ok {
		return apperror.NewClientNotFoundError(id)
	}
	delete(r.store.clients, id)
	return nil
}

func (r *ClientRepository) ExistsByID(_ context.Context, id string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, ok := r.store.clients[id]
	return ok, nil
}

func (r *ClientRepository) ExistsByEmail(_ context.Context, email domain.Email) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, c := range r.store.clients {
		if c.Email() == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *ClientRepository) ExistsByCompanyIdentifier(_ context.Context, identifier domain.CompanyIdentifier) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, c := range r.store.clients {
		if d, ok := c.Details().(domain.CompanyDetails); ok && d.Identifier == identifier {
			return true, nil
		}
	}
	return false, nil
}
