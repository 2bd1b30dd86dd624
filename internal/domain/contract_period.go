package domain

import (
	"time"

	apperror "gocontracts/internal/errors"
)

// ContractPeriod é o intervalo de vigência [start, end) de um contrato.
// end ausente significa vigência aberta.
type ContractPeriod struct {
	start  time.Time
	end    time.Time
	hasEnd bool
}

// NewContractPeriod valida um período informado pelo chamador.
// start ausente assume now; end, se presente, deve ser estritamente posterior a start.
func NewContractPeriod(start, end *time.Time, now time.Time) (ContractPeriod, error) {
	p := ContractPeriod{start: Instant(now)}
	if start != nil && !start.IsZero() {
		p.start = Instant(*start)
	}
	if end != nil && !end.IsZero() {
		p.end = Instant(*end)
		p.hasEnd = true
		if !p.end.After(p.start) {
			return ContractPeriod{}, apperror.NewFieldValidationError(apperror.KindPeriodOrder, "endDate",
				"a data de término deve ser posterior à data de início")
		}
	}
	return p, nil
}

// ReconstituteContractPeriod reconstrói um período persistido.
// Aceita período vazio (end == start), estado de um contrato encerrado antes de começar.
func ReconstituteContractPeriod(start time.Time, end *time.Time) (ContractPeriod, error) {
	if start.IsZero() {
		return ContractPeriod{}, apperror.NewFieldValidationError(apperror.KindRequired, "startDate", "a data de início é obrigatória")
	}
	p := ContractPeriod{start: Instant(start)}
	if end != nil {
		p.end = Instant(*end)
		p.hasEnd = true
		if p.end.Before(p.start) {
			return ContractPeriod{}, apperror.NewFieldValidationError(apperror.KindPeriodOrder, "endDate",
				"a data de término não pode ser anterior à data de início")
		}
	}
	return p, nil
}

func (p ContractPeriod) Start() time.Time { return p.start }

// End devolve a data de término e se ela existe.
func (p ContractPeriod) End() (time.Time, bool) { return p.end, p.hasEnd }

// EndPtr é conveniente para adaptadores que persistem colunas anuláveis.
func (p ContractPeriod) EndPtr() *time.Time {
	if !p.hasEnd {
		return nil
	}
	end := p.end
	return &end
}

func (p ContractPeriod) IsOpenEnded() bool { return !p.hasEnd }
func (p ContractPeriod) IsZero() bool      { return p.start.IsZero() }

// IsActiveAt: ativo em t sse end ausente ou t < end.
func (p ContractPeriod) IsActiveAt(t time.Time) bool {
	return !p.hasEnd || t.Before(p.end)
}

func (p ContractPeriod) IsActive() bool { return p.IsActiveAt(time.Now()) }

func (p ContractPeriod) Equal(other ContractPeriod) bool {
	if !p.start.Equal(other.start) || p.hasEnd != other.hasEnd {
		return false
	}
	return !p.hasEnd || p.end.Equal(other.end)
}

// closedAt fixa end em now mantendo start; se o contrato ainda não começou,
// start recua para now e o período fica vazio.
func (p ContractPeriod) closedAt(now time.Time) ContractPeriod {
	now = Instant(now)
	start := p.start
	if start.After(now) {
		start = now
	}
	return ContractPeriod{start: start, end: now, hasEnd: true}
}

// Instant normaliza um horário para UTC com precisão de microssegundos (a do Postgres).
func Instant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
