package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/logger"
)

// ErrorBody é o corpo JSON de toda resposta de erro.
type ErrorBody struct {
	Code      int    `json:"code"`
	Category  string `json:"category"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}

// Responder padroniza a serialização de sucesso e de erro dos handlers.
type Responder struct {
	Logger   logger.Logger
	validate *validator.Validate
}

func NewResponder(log logger.Logger) *Responder {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return jsonName(f.Tag.Get("json"), f.Name) })
	return &Responder{Logger: log, validate: v}
}

// Respond processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Responder) Respond(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		if data == nil {
			w.WriteHeader(successStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
			h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
		}
		return
	}

	// TRATAMENTO DE ERROS
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= http.StatusInternalServerError {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	WriteError(w, status, ErrorBody{
		Code:      status,
		Category:  category,
		ErrorCode: apperror.CodeOf(err),
		Message:   message,
	})
}

// WriteError serializa um ErrorBody com o status indicado.
func WriteError(w http.ResponseWriter, status int, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Decode lê o corpo JSON e valida as tags `validate` do destino.
func (h *Responder) Decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	return h.Validate(dst)
}

// Validate aplica as regras declaradas nas tags `validate`.
func (h *Responder) Validate(v interface{}) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.NewValidationError(err.Error())
	}

	fe := fieldErrs[0]
	kind := apperror.KindInvalidFormat
	if fe.Tag() == "required" {
		kind = apperror.KindRequired
	}
	return apperror.NewFieldValidationError(kind, fe.Field(), fmt.Sprintf("falhou na regra '%s'", fe.Tag()))
}

func jsonName(tag, fallback string) string {
	name := strings.SplitN(tag, ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fallback
	}
	return name
}
