package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperror "gocontracts/internal/errors"
)

const CompanyIdentifierMaxLength = 64

// CompanyIdentifier é o identificador registral de uma empresa (e.g., CNPJ, SIREN).
// A unicidade entre empresas é garantida pelo ClientUniquenessChecker e pelo banco.
type CompanyIdentifier struct {
	value string
}

func NewCompanyIdentifier(raw string) (CompanyIdentifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CompanyIdentifier{}, apperror.NewFieldValidationError(apperror.KindRequired, "companyIdentifier", "o identificador da empresa é obrigatório")
	}
	if utf8.RuneCountInString(trimmed) > CompanyIdentifierMaxLength {
		return CompanyIdentifier{}, apperror.NewFieldValidationError(apperror.KindTooLong, "companyIdentifier",
			fmt.Sprintf("o identificador deve ter no máximo %d caracteres", CompanyIdentifierMaxLength))
	}
	return CompanyIdentifier{value: trimmed}, nil
}

func (c CompanyIdentifier) Value() string  { return c.value }
func (c CompanyIdentifier) String() string { return c.value }
func (c CompanyIdentifier) IsZero() bool   { return c.value == "" }
