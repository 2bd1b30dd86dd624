package domain

import (
	"strings"
	"time"

	apperror "gocontracts/internal/errors"
)

// BirthDateLayout é o formato aceito na borda (ISO-8601, apenas data).
const BirthDateLayout = "2006-01-02"

// BirthDate é uma data civil de nascimento que não pode estar no futuro.
type BirthDate struct {
	date time.Time
}

// NewBirthDate valida a data contra o dia de hoje. Horário e fuso são descartados.
func NewBirthDate(date, today time.Time) (BirthDate, error) {
	if date.IsZero() {
		return BirthDate{}, apperror.NewFieldValidationError(apperror.KindRequired, "birthDate", "a data de nascimento é obrigatória")
	}
	d := civilDate(date)
	if d.After(civilDate(today)) {
		return BirthDate{}, apperror.NewFieldValidationError(apperror.KindBirthDateInFuture, "birthDate",
			"a data de nascimento não pode estar no futuro")
	}
	return BirthDate{date: d}, nil
}

// ParseBirthDate decodifica "AAAA-MM-DD" e valida.
func ParseBirthDate(raw string, today time.Time) (BirthDate, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BirthDate{}, apperror.NewFieldValidationError(apperror.KindRequired, "birthDate", "a data de nascimento é obrigatória")
	}
	parsed, err := time.Parse(BirthDateLayout, trimmed)
	if err != nil {
		return BirthDate{}, apperror.NewFieldValidationError(apperror.KindInvalidFormat, "birthDate", "a data de nascimento deve estar no formato AAAA-MM-DD")
	}
	return NewBirthDate(parsed, today)
}

func (b BirthDate) Value() time.Time           { return b.date }
func (b BirthDate) IsZero() bool               { return b.date.IsZero() }
func (b BirthDate) Equal(other BirthDate) bool { return b.date.Equal(other.date) }
func (b BirthDate) String() string             { return b.date.Format(BirthDateLayout) }

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
