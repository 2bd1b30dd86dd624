package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do serviço.
// Ela permite que o código externo (Handler) acesse a Categoria, o Código e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND", "CONFLICT")
	Code() string     // Tipo exato do erro (e.g., "CLIENT_NOT_FOUND")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// Códigos de erro expostos ao chamador.
const (
	CodeValidation                     = "VALIDATION_ERROR"
	CodeClientNotFound                 = "CLIENT_NOT_FOUND"
	CodeContractNotFound               = "CONTRACT_NOT_FOUND"
	CodeClientAlreadyExists            = "CLIENT_ALREADY_EXISTS"
	CodeCompanyIdentifierAlreadyExists = "COMPANY_IDENTIFIER_ALREADY_EXISTS"
	CodeContractNotOwnedByClient       = "CONTRACT_NOT_OWNED_BY_CLIENT"
	CodeConcurrentModification         = "CONCURRENT_MODIFICATION"
	CodeUnauthorized                   = "UNAUTHORIZED"
	CodeInternal                       = "INTERNAL_ERROR"
)

// ValidationKind identifica a regra exata violada por um Value Object.
type ValidationKind string

const (
	KindRequired          ValidationKind = "required"
	KindTooLong           ValidationKind = "too_long"
	KindInvalidFormat     ValidationKind = "invalid_format"
	KindNegative          ValidationKind = "negative"
	KindInvalidScale      ValidationKind = "invalid_scale"
	KindPeriodOrder       ValidationKind = "period_order"
	KindBirthDateInFuture ValidationKind = "birth_date_in_future"
	KindMissingIdentity   ValidationKind = "missing_identity"
)

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("Erro de Validação: %s", e.Msg)
	}
	return fmt.Sprintf("Erro de Validação (%s): %s", e.Field, e.Msg)
}
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) Code() string     { return CodeValidation }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação sem campo associado.
func NewValidationError(msg string) AppError {
	return &ValidationError{Kind: KindInvalidFormat, Msg: msg}
}

// NewFieldValidationError cria um erro de validação apontando o campo e a regra violada.
func NewFieldValidationError(kind ValidationKind, field, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	code     string
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Recurso não encontrado: %s com ID %s", e.Resource, e.ID)
}
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) Code() string     { return e.code }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewClientNotFoundError cria o erro devolvido quando o cliente não existe.
func NewClientNotFoundError(id string) AppError {
	return &NotFoundError{code: CodeClientNotFound, Resource: "cliente", ID: id}
}

// NewContractNotFoundError cria o erro devolvido quando o contrato não existe.
func NewContractNotFoundError(id string) AppError {
	return &NotFoundError{code: CodeContractNotFound, Resource: "contrato", ID: id}
}

// ConflictError representa um conflito na regra de negócio (e.g., OCC, recurso duplicado).
type ConflictError struct {
	code string
	Msg  string
	Err  error
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) Code() string     { return e.code }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return e.Err }

// NewClientAlreadyExistsError indica que o e-mail já pertence a outro cliente.
func NewClientAlreadyExistsError(email string) AppError {
	return &ConflictError{code: CodeClientAlreadyExists, Msg: fmt.Sprintf("já existe um cliente com o e-mail '%s'", email)}
}

// NewCompanyIdentifierAlreadyExistsError indica que o identificador já pertence a outra empresa.
func NewCompanyIdentifierAlreadyExistsError(identifier string) AppError {
	return &ConflictError{code: CodeCompanyIdentifierAlreadyExists, Msg: fmt.Sprintf("já existe uma empresa com o identificador '%s'", identifier)}
}

// NewConcurrentModificationError indica que a versão lida ficou desatualizada (OCC).
func NewConcurrentModificationError(resource, id string) AppError {
	return &ConflictError{code: CodeConcurrentModification, Msg: fmt.Sprintf("%s %s foi modificado por outra operação. Tente novamente.", resource, id)}
}

// ForbiddenError representa um acesso a recurso de outro dono.
// É exposto como 404 para não revelar a existência do contrato.
type ForbiddenError struct {
	ContractID string
	ClientID   string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("Contrato %s não pertence ao cliente %s", e.ContractID, e.ClientID)
}
func (e *ForbiddenError) Category() string { return "NOT_FOUND" }
func (e *ForbiddenError) Code() string     { return CodeContractNotOwnedByClient }
func (e *ForbiddenError) HTTPStatus() int  { return http.StatusNotFound }
func (e *ForbiddenError) Unwrap() error    { return nil }

// NewContractNotOwnedByClientError cria o erro de verificação de posse.
func NewContractNotOwnedByClientError(contractID, clientID string) AppError {
	return &ForbiddenError{ContractID: contractID, ClientID: clientID}
}

// UnauthorizedError representa falhas de autenticação/autorização na borda HTTP.
type UnauthorizedError struct {
	Msg       string
	Forbidden bool
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) Code() string     { return CodeUnauthorized }
func (e *UnauthorizedError) HTTPStatus() int {
	if e.Forbidden {
		return http.StatusForbidden // 403
	}
	return http.StatusUnauthorized // 401
}
func (e *UnauthorizedError) Unwrap() error { return nil }

// NewUnauthorizedError cria um erro 401.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// NewForbiddenError cria um erro 403 (token válido, papel insuficiente).
func NewForbiddenError(msg string) AppError {
	return &UnauthorizedError{Msg: msg, Forbidden: true}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) Code() string     { return CodeInternal }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helpers ---

// CodeOf devolve o código do primeiro AppError na cadeia, ou "" se não houver.
func CodeOf(err error) string {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code()
	}
	return ""
}

// HasCode informa se a cadeia de erros contém um AppError com o código indicado.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			// Não vazamos detalhes do driver para o cliente.
			return appErr.HTTPStatus(), appErr.Category(), "Ocorreu um erro inesperado."
		}
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
