package domain

import (
	"context"

	apperror "gocontracts/internal/errors"
)

// ClientUniquenessChecker faz a verificação antecipada de unicidade.
// As restrições únicas do banco continuam sendo a garantia final.
type ClientUniquenessChecker struct {
	repo ClientRepository
}

func NewClientUniquenessChecker(repo ClientRepository) *ClientUniquenessChecker {
	return &ClientUniquenessChecker{repo: repo}
}

// EnsureEmailUnique falha com CLIENT_ALREADY_EXISTS se qualquer cliente (pessoa ou empresa) já usa o e-mail.
func (c *ClientUniquenessChecker) EnsureEmailUnique(ctx context.Context, email Email) error {
	exists, err := c.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewClientAlreadyExistsError(email.Value())
	}
	return nil
}

// EnsureCompanyIdentifierUnique falha com COMPANY_IDENTIFIER_ALREADY_EXISTS se outra empresa já usa o identificador.
func (c *ClientUniquenessChecker) EnsureCompanyIdentifierUnique(ctx context.Context, identifier CompanyIdentifier) error {
	exists, err := c.repo.ExistsByCompanyIdentifier(ctx, identifier)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewCompanyIdentifierAlreadyExistsError(identifier.Value())
	}
	return nil
}

// EnsureNewClientUnique roda as verificações que a variante exige.
func (c *ClientUniquenessChecker) EnsureNewClientUnique(ctx context.Context, client Client) error {
	if err := c.EnsureEmailUnique(ctx, client.Email()); err != nil {
		return err
	}
	switch d := client.Details().(type) {
	case PersonDetails:
		return nil
	case CompanyDetails:
		return c.EnsureCompanyIdentifierUnique(ctx, d.Identifier)
	default:
		return apperror.NewInternalError("variante de cliente não suportada", nil)
	}
}
