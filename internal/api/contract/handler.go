package contract

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"gocontracts/internal/api/response"
	"gocontracts/internal/domain"
	apperror "gocontracts/internal/errors"
	"gocontracts/internal/pkg/logger"
	"gocontracts/internal/service/contractservice"
)

// ContractService define o contrato que o Handler espera da camada de Serviço.
type ContractService interface {
	CreateContractForClient(ctx context.Context, clientID string, in contractservice.CreateContractInput) (domain.Contract, error)
	UpdateCostForClient(ctx context.Context, clientID, contractID string, amount *decimal.Decimal) (domain.Contract, error)
	GetContractForClient(ctx context.Context, clientID, contractID string) (domain.Contract, error)
	CloseContractForClient(ctx context.Context, clientID, contractID string) (domain.Contract, error)
	GetActiveContracts(ctx context.Context, clientID string, updatedSince *time.Time, page domain.PageRequest) (domain.Page[domain.Contract], error)
	SumActiveContracts(ctx context.Context, clientID string) (decimal.Decimal, error)
}

// Handler agrupa todos os métodos de Handler de contratos.
type Handler struct {
	Service ContractService
	*response.Responder
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ContractService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Responder: response.NewResponder(log)}
}

type createRequest struct {
	StartDate  *time.Time       `json:"startDate"`
	EndDate    *time.Time       `json:"endDate"`
	CostAmount *decimal.Decimal `json:"costAmount" validate:"required"`
}

type costRequest struct {
	CostAmount *decimal.Decimal `json:"costAmount" validate:"required"`
}

type listQuery struct {
	Page int `json:"page" validate:"gte=0,lte=1000000"`
	Size int `json:"size" validate:"gte=1,lte=100"`
}

// ContractResponse é a representação JSON de um contrato. Valores monetários
// saem como número JSON com duas casas decimais.
type ContractResponse struct {
	ID           string      `json:"id"`
	ClientID     string      `json:"clientId"`
	StartDate    time.Time   `json:"startDate"`
	EndDate      *time.Time  `json:"endDate"`
	CostAmount   json.Number `json:"costAmount"`
	Active       bool        `json:"active"`
	LastModified time.Time   `json:"lastModified"`
	Version      int64       `json:"version"`
}

// PageResponse é a página de contratos ativos.
type PageResponse struct {
	Items      []ContractResponse `json:"items"`
	Page       int                `json:"page"`
	Size       int                `json:"size"`
	TotalItems int                `json:"totalItems"`
	TotalPages int                `json:"totalPages"`
}

// SumResponse é o total dos contratos ativos do cliente.
type SumResponse struct {
	ClientID string      `json:"clientId"`
	Total    json.Number `json:"total"`
}

func toResponse(c domain.Contract, now time.Time) ContractResponse {
	return ContractResponse{
		ID:           c.ID(),
		ClientID:     c.ClientID(),
		StartDate:    c.Period().Start(),
		EndDate:      c.Period().EndPtr(),
		CostAmount:   json.Number(c.Cost().String()),
		Active:       c.IsActiveAt(now),
		LastModified: c.LastModified(),
		Version:      c.Version(),
	}
}

func (h *Handler) respondContract(w http.ResponseWriter, r *http.Request, c domain.Contract, err error, status int) {
	if err != nil {
		h.Respond(w, r, nil, err, status)
		return
	}
	h.Respond(w, r, toResponse(c, time.Now()), nil, status)
}

// CreateContractHandler lida com a requisição POST /v1/clients/{clientID}/contracts.
func (h *Handler) CreateContractHandler(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := h.Decode(r, &req); err != nil {
		h.Respond(w, r, nil, err, http.StatusBadRequest)
		return
	}

	c, err := h.Service.CreateContractForClient(r.Context(), chi.URLParam(r, "clientID"), contractservice.CreateContractInput{
		StartDate: req.StartDate, EndDate: req.EndDate, CostAmount: req.CostAmount,
	})
	h.respondContract(w, r, c, err, http.StatusCreated)
}

// GetContractHandler lida com a requisição GET /v1/clients/{clientID}/contracts/{contractID}.
func (h *Handler) GetContractHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetContractForClient(r.Context(), chi.URLParam(r, "clientID"), chi.URLParam(r, "contractID"))
	h.respondContract(w, r, c, err, http.StatusOK)
}

// UpdateCostHandler lida com a requisição PATCH /v1/clients/{clientID}/contracts/{contractID}/cost.
func (h *Handler) UpdateCostHandler(w http.ResponseWriter, r *http.Request) {
	var req costRequest
	if err := h.Decode(r, &req); err != nil {
		h.Respond(w, r, nil, err, http.StatusBadRequest)
		return
	}

	c, err := h.Service.UpdateCostForClient(r.Context(), chi.URLParam(r, "clientID"), chi.URLParam(r, "contractID"), req.CostAmount)
	h.respondContract(w, r, c, err, http.StatusOK)
}

// CloseContractHandler lida com a requisição POST /v1/clients/{clientID}/contracts/{contractID}/close.
func (h *Handler) CloseContractHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.CloseContractForClient(r.Context(), chi.URLParam(r, "clientID"), chi.URLParam(r, "contractID"))
	h.respondContract(w, r, c, err, http.StatusOK)
}

// ListActiveHandler lida com a requisição GET /v1/clients/{clientID}/contracts.
func (h *Handler) ListActiveHandler(w http.ResponseWriter, r *http.Request) {
	q := listQuery{Page: 0, Size: domain.DefaultPageSize}
	values := r.URL.Query()

	for _, param := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"size", &q.Size}} {
		name, dst := param.name, param.dst
		raw := values.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.Respond(w, r, nil, apperror.NewFieldValidationError(apperror.KindInvalidFormat, name, "deve ser um número inteiro"), http.StatusBadRequest)
			return
		}
		*dst = n
	}
	if err := h.Validate(q); err != nil {
		h.Respond(w, r, nil, err, http.StatusBadRequest)
		return
	}

	var updatedSince *time.Time
	if raw := values.Get("updatedSince"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Respond(w, r, nil, apperror.NewFieldValidationError(apperror.KindInvalidFormat, "updatedSince", "deve estar no formato RFC3339"), http.StatusBadRequest)
			return
		}
		updatedSince = &t
	}

	page, err := h.Service.GetActiveContracts(r.Context(), chi.URLParam(r, "clientID"), updatedSince, domain.PageRequest{Page: q.Page, Size: q.Size})
	if err != nil {
		h.Respond(w, r, nil, err, http.StatusOK)
		return
	}

	now := time.Now()
	items := make([]ContractResponse, 0, len(page.Items))
	for _, c := range page.Items {
		items = append(items, toResponse(c, now))
	}
	h.Respond(w, r, PageResponse{
		Items:      items,
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}, nil, http.StatusOK)
}

// SumActiveHandler lida com a requisição GET /v1/clients/{clientID}/contracts/sum.
func (h *Handler) SumActiveHandler(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	sum, err := h.Service.SumActiveContracts(r.Context(), clientID)
	if err != nil {
		h.Respond(w, r, nil, err, http.StatusOK)
		return
	}
	h.Respond(w, r, SumResponse{ClientID: clientID, Total: json.Number(sum.StringFixed(2))}, nil, http.StatusOK)
}
