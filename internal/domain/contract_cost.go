package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperror "gocontracts/internal/errors"
)

// ContractCostMaxScale é o número máximo de casas decimais aceitas.
const ContractCostMaxScale = 2

// ContractCost é um valor monetário fixo, não negativo, com no máximo 2 casas decimais.
// Não carrega moeda: não há conversão cambial no domínio.
type ContractCost struct {
	amount decimal.Decimal
	set    bool
}

// NewContractCost valida um montante já decodificado.
func NewContractCost(amount decimal.Decimal) (ContractCost, error) {
	if amount.IsNegative() {
		return ContractCost{}, apperror.NewFieldValidationError(apperror.KindNegative, "costAmount", "o custo não pode ser negativo")
	}
	if scale := -amount.Exponent(); scale > ContractCostMaxScale {
		return ContractCost{}, apperror.NewFieldValidationError(apperror.KindInvalidScale, "costAmount",
			fmt.Sprintf("o custo deve ter no máximo %d casas decimais", ContractCostMaxScale))
	}
	return ContractCost{amount: amount, set: true}, nil
}

// NewContractCostFromPtr trata a ausência do montante como campo obrigatório.
func NewContractCostFromPtr(amount *decimal.Decimal) (ContractCost, error) {
	if amount == nil {
		return ContractCost{}, apperror.NewFieldValidationError(apperror.KindRequired, "costAmount", "o custo é obrigatório")
	}
	return NewContractCost(*amount)
}

// ParseContractCost decodifica e valida um montante textual (e.g., "1500.50").
func ParseContractCost(raw string) (ContractCost, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ContractCost{}, apperror.NewFieldValidationError(apperror.KindRequired, "costAmount", "o custo é obrigatório")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return ContractCost{}, apperror.NewFieldValidationError(apperror.KindInvalidFormat, "costAmount", "o custo deve ser um número decimal")
	}
	return NewContractCost(amount)
}

func (c ContractCost) Value() decimal.Decimal { return c.amount }
func (c ContractCost) IsZero() bool           { return !c.set }

// Equal compara por valor: 100.0 e 100.00 são o mesmo custo.
func (c ContractCost) Equal(other ContractCost) bool {
	return c.set == other.set && c.amount.Equal(other.amount)
}

func (c ContractCost) String() string { return c.amount.StringFixed(ContractCostMaxScale) }
