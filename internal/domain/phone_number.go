package domain

import (
	"regexp"
	"strings"

	apperror "gocontracts/internal/errors"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 .()/-]{7,20}$`)

// PhoneNumberMaxLength é o maior telefone aceito: "+" seguido de 20 caracteres.
const PhoneNumberMaxLength = 21

// PhoneNumber é um telefone com formatação livre (dígitos, espaço, . ( ) / -).
type PhoneNumber struct {
	value string
}

// NewPhoneNumber valida um telefone após remover espaços nas pontas.
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PhoneNumber{}, apperror.NewFieldValidationError(apperror.KindRequired, "phone", "o telefone é obrigatório")
	}
	if !phonePattern.MatchString(trimmed) {
		return PhoneNumber{}, apperror.NewFieldValidationError(apperror.KindInvalidFormat, "phone", "formato de telefone inválido")
	}
	return PhoneNumber{value: trimmed}, nil
}

func (p PhoneNumber) Value() string  { return p.value }
func (p PhoneNumber) String() string { return p.value }
func (p PhoneNumber) IsZero() bool   { return p.value == "" }
