package domain

import (
	apperror "gocontracts/internal/errors"
)

// EnsureContractBelongsTo impede o acesso a contratos de outro cliente por
// adivinhação de ID em rotas com escopo de cliente.
func EnsureContractBelongsTo(contract Contract, clientID string) error {
	if contract.ClientID() != clientID {
		return apperror.NewContractNotOwnedByClientError(contract.ID(), clientID)
	}
	return nil
}
