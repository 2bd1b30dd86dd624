package client

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"gocontracts/internal/api/response"
	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/logger"
	"gocontracts/internal/service/clientservice"
)

// ClientService define o contrato que o Handler espera da camada de Serviço.
type ClientService interface {
	CreatePerson(ctx context.Context, in clientservice.CreatePersonInput) (domain.Client, error)
	CreateCompany(ctx context.Context, in clientservice.CreateCompanyInput) (domain.Client, error)
	GetClient(ctx context.Context, id string) (domain.Client, error)
	UpdateCommonFields(ctx context.Context, id string, in clientservice.CommonFieldsInput) (domain.Client, error)
	PatchClient(ctx context.Context, id string, in clientservice.PatchInput) (domain.Client, error)
	DeleteClientAndCloseContracts(ctx context.Context, id string) (int64, error)
}

// Handler agrupa todos os métodos de Handler de clientes.
type Handler struct {
	Service ClientService
	*response.Responder
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ClientService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Responder: response.NewResponder(log)}
}

type personRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	BirthDate string `json:"birthDate" validate:"required"`
}

type companyRequest struct {
	Name              string `json:"name" validate:"required"`
	Email             string `json:"email" validate:"required"`
	Phone             string `json:"phone" validate:"required"`
	CompanyIdentifier string `json:"companyIdentifier" validate:"required"`
}

type commonFieldsRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

type patchRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// ClientResponse é a representação JSON de um cliente.
type ClientResponse struct {
	ID                string  `json:"id"`
	Type              string  `json:"type"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Phone             string  `json:"phone"`
	BirthDate         *string `json:"birthDate,omitempty"`
	CompanyIdentifier *string `json:"companyIdentifier,omitempty"`
	Version           int64   `json:"version"`
}

type deleteResponse struct {
	ClientID        string `json:"clientId"`
	ClosedContracts int64  `json:"closedContracts"`
}

func toResponse(c domain.Client) ClientResponse {
	resp := ClientResponse{
		ID:      c.ID(),
		Type:    string(c.Kind()),
		Name:    c.Name().Value(),
		Email:   c.Email().Value(),
		Phone:   c.Phone().Value(),
		Version: c.Version(),
	}
	switch d := c.Details().(type) {
	case domain.PersonDetails:
		bd := d.BirthDate.String()
		resp.BirthDate = &bd
	case domain.CompanyDetails:
		id := d.Identifier.Value()
		resp.CompanyIdentifier = &id
	}
	return resp
}

// respondClient escreve o cliente com o ETag da versão atual.
func (h *Handler) respondClient(w http.ResponseWriter, r *http.Request, c domain.Client, err error, status int) {
	if err == nil {
		w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(c.Version(), 10)))
		h.Respond(w, r, toResponse(c), nil, status)
		return
	}
	h.Respond(w, r, nil, err, status)
}

// CreatePersonHandler lida com a requisição POST /v1/clients/persons.
func (h *Handler) CreatePersonHandler(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := h.Decode(r, &req); err != nil {
		h.Respond(w, r, nil, err, http.StatusBadRequest)
		return
	}

	c, err := h.Service.CreatePerson(r.Context(), clientservice.CreatePersonInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone, BirthDate: req.BirthDate,
	})
	h.respondClient(w, r, c, err, http.StatusCreated)
}

// CreateCompanyHandler lida com a requisição POST /v1/clients/companies.
func (h *Handler) CreateCompanyHandler(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := h.Decode(r, &req); err != nil {
		h.Respond(w, r, nil, err, http.StatusBadRequest)
		return
	}

	c, err := h.Service.CreateCompany(r.Context(), clientservice.CreateCompanyInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone, CompanyIdentifier: req.CompanyIdentifier,
	})
	h.respondClient(w, r, c, err, http.StatusCreated)
}

// GetClientHandler lida com a requisição GET /v1/clients/{clientID}.
func (h *Handler) GetClientHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetClient(r.Context(), chi.URLParam(r, "clientID"))
	h.respondClient(w, r, c, err, http.StatusOK)
}

// UpdateClientHandler lida com a requisição PUT /v1/clients/{clientID}.
// Um cabeçalho If-Match com a versão lida ativa a checagem otimista explícita.
func (h *Handler) UpdateClientHandler(w http.ResponseWriter, r *http.Request) {
	var req commonFieldsRequest
	if err := h.Decode(r, &req); err != nil {
		h.Respond(w, r, nil, err, http.StatusBadRequest)
		return
	}

	expected, err := expectedVersion(r.Header.Get("If-Match"))
	if err != nil {
		h.Respond(w, r, nil, err, http.StatusBadRequest)
		return
	}

	in := clientservice.CommonFieldsInput{Name: req.Name, Email: req.Email, Phone: req.Phone, ExpectedVersion: expected}

	c, err := h.Service.UpdateCommonFields(r.Context(), chi.URLParam(r, "clientID"), in)
	h.respondClient(w, r, c, err, http.StatusOK)
}

// expectedVersion lê o If-Match ("<versão>"). Vazio ou "*" dispensa a checagem.
func expectedVersion(header string) (*int64, error) {
	match := strings.TrimSpace(header)
	if match == "" || match == "*" {
		return nil, nil
	}
	version, err := strconv.ParseInt(strings.Trim(match, `"`), 10, 64)
	if err != nil || version < 1 {
		return nil, apperror.NewFieldValidationError(apperror.KindInvalidFormat, "If-Match", "deve conter a versão do cliente, ex.: \"3\"")
	}
	return &version, nil
}

// PatchClientHandler lida com a requisição PATCH /v1/clients/{clientID}.
func (h *Handler) PatchClientHandler(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := h.Decode(r, &req); err != nil {
		h.Respond(w, r, nil, err, http.StatusBadRequest)
		return
	}

	c, err := h.Service.PatchClient(r.Context(), chi.URLParam(r, "clientID"), clientservice.PatchInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone,
	})
	h.respondClient(w, r, c, err, http.StatusOK)
}

// DeleteClientHandler lida com a requisição DELETE /v1/clients/{clientID}.
func (h *Handler) DeleteClientHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "clientID")
	closed, err := h.Service.DeleteClientAndCloseContracts(r.Context(), id)
	if err != nil {
		h.Respond(w, r, nil, err, http.StatusOK)
		return
	}
	h.Respond(w, r, deleteResponse{ClientID: id, ClosedContracts: closed}, nil, http.StatusOK)
}
