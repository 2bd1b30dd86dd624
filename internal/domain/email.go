package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	apperror "gocontracts/internal/errors"
)

// EmailMaxLength é o limite de caracteres de um endereço (RFC 5321).
const EmailMaxLength = 254

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email é um endereço normalizado (sem espaços nas pontas, minúsculo).
// O valor zero não é um Email válido; use NewEmail.
type Email struct {
	value string
}

// NewEmail normaliza e valida um endereço de e-mail.
func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Email{}, apperror.NewFieldValidationError(apperror.KindRequired, "email", "o e-mail é obrigatório")
	}
	if utf8.RuneCountInString(normalized) > EmailMaxLength {
		return Email{}, apperror.NewFieldValidationError(apperror.KindTooLong, "email",
			fmt.Sprintf("o e-mail deve ter no máximo %d caracteres", EmailMaxLength))
	}
	if !emailPattern.MatchString(normalized) {
		return Email{}, apperror.NewFieldValidationError(apperror.KindInvalidFormat, "email", "formato de e-mail inválido")
	}
	return Email{value: normalized}, nil
}

func (e Email) Value() string  { return e.value }
func (e Email) String() string { return e.value }
func (e Email) IsZero() bool   { return e.value == "" }
