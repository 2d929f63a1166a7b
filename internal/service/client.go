package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
)

// clientService implements domain.ClientService using PostgreSQL.
type clientService struct {
	pool *pgxpool.Pool
}

var _ domain.ClientService = (*clientService)(nil)

// NewClientService creates a PostgreSQL-backed client service.
func NewClientService(pool *pgxpool.Pool) domain.ClientService {
	return &clientService{pool: pool}
}

// Get retrieves a client by id.
func (s *clientService) Get(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	var c domain.Client
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, first_name, last_name, company_name, phone, email
		FROM clients WHERE id = $1`, id).Scan(
		&c.ID, &c.Type, &c.FirstName, &c.LastName, &c.CompanyName, &c.Phone, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrClientNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "client.get", "failed to get client")
	}
	return &c, nil
}

// Search returns clients matching the term against name, company or phone.
func (s *clientService) Search(ctx context.Context, term string, limit int) ([]domain.Client, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	term = strings.TrimSpace(term)

	rows, err := s.pool.Query(ctx, `
		SELECT id, type, first_name, last_name, company_name, phone, email
		FROM clients
		WHERE $1 = ''
		   OR first_name ILIKE '%' || $1 || '%'
		   OR last_name ILIKE '%' || $1 || '%'
		   OR company_name ILIKE '%' || $1 || '%'
		   OR phone LIKE '%' || $1 || '%'
		ORDER BY last_name, first_name
		LIMIT $2`, term, limit)
	if err != nil {
		return nil, domain.Internal(err, "client.search", "failed to search clients")
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Type, &c.FirstName, &c.LastName,
			&c.CompanyName, &c.Phone, &c.Email); err != nil {
			return nil, domain.Internal(err, "client.search", "failed to scan client")
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "client.search", "failed to read clients")
	}

	return clients, nil
}

// Create registers a new client.
func (s *clientService) Create(ctx context.Context, client domain.Client) (*domain.Client, error) {
	if client.Type == "" {
		client.Type = "individual"
	}
	if client.Type != "individual" && client.Type != "business" {
		return nil, domain.Invalid("client.create", "client type must be individual or business")
	}
	if client.Type == "business" && client.CompanyName == "" {
		return nil, domain.Invalid("client.create", "business clients require a company name")
	}
	if client.Type == "individual" && client.FirstName == "" && client.LastName == "" {
		return nil, domain.Invalid("client.create", "individual clients require a name")
	}

	client.ID = uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clients (id, type, first_name, last_name, company_name, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		client.ID, client.Type, client.FirstName, client.LastName,
		client.CompanyName, client.Phone, client.Email)
	if err != nil {
		return nil, domain.Internal(err, "client.create", "failed to create client")
	}

	return &client, nil
}
