package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
)

// ClientHandler serves the customer registry.
type ClientHandler struct {
	clients domain.ClientService
}

func NewClientHandler(clients domain.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

type clientResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name"`
}

func clientResponseFrom(c *domain.Client) clientResponse {
	return clientResponse{
		ID:          c.ID.String(),
		Type:        c.Type,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		CompanyName: c.CompanyName,
		Phone:       c.Phone,
		Email:       c.Email,
		DisplayName: c.DisplayName(),
	}
}

// Search handles GET /api/clients?q=term.
func (h *ClientHandler) Search(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.Search(r.Context(), r.URL.Query().Get("q"), 20)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]clientResponse, len(clients))
	for i := range clients {
		resp[i] = clientResponseFrom(&clients[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/clients/{id}.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, r, domain.Invalid("client.get", "invalid client id"))
		return
	}

	client, err := h.clients.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, clientResponseFrom(client))
}

type createClientRequest struct {
	Type        string `json:"type" validate:"required,oneof=individual business"`
	FirstName   string `json:"first_name" validate:"required_if=Type individual"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name" validate:"required_if=Type business"`
	Phone       string `json:"phone"`
	Email       string `json:"email" validate:"omitempty,email"`
}

// Create handles POST /api/clients.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if !decodeBody(w, r, &req) {
		return
	}

	client, err := h.clients.Create(r.Context(), domain.Client{
		Type:        req.Type,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
		Phone:       req.Phone,
		Email:       req.Email,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, clientResponseFrom(client))
}
