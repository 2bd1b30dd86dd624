package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperror "gocontracts/internal/errors"
)

const ClientNameMaxLength = 200

// ClientName é o nome de exibição de uma pessoa ou empresa.
type ClientName struct {
	value string
}

func NewClientName(raw string) (ClientName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ClientName{}, apperror.NewFieldValidationError(apperror.KindRequired, "name", "o nome é obrigatório")
	}
	if utf8.RuneCountInString(trimmed) > ClientNameMaxLength {
		return ClientName{}, apperror.NewFieldValidationError(apperror.KindTooLong, "name",
			fmt.Sprintf("o nome deve ter no máximo %d caracteres", ClientNameMaxLength))
	}
	return ClientName{value: trimmed}, nil
}

func (n ClientName) Value() string  { return n.value }
func (n ClientName) String() string { return n.value }
func (n ClientName) IsZero() bool   { return n.value == "" }
