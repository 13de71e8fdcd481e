package services

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/gate"
	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/internal/policy"
	"github.com/contractpro/contractpro/validation"
)

func errClientNotFound() error { return errors.NotFoundf("Client") }

// ClientInput is the writable part of a client.
type ClientInput struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Company string         `json:"company"`
	Phone   string         `json:"phone"`
	Address models.Address `json:"address"`
	Notes   string         `json:"notes"`
}

// Validate trims the input in place and reports violations.
func (in *ClientInput) Validate() validation.Violations {
	in.Name = strings.TrimSpace(in.Name)
	in.Company = strings.TrimSpace(in.Company)
	in.Email = models.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.Length("name", in.Name, 1, 100, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("company", in.Company, v)
	validation.Length("company", in.Company, 1, 100, v)
	if in.Phone != "" {
		validation.Phone("phone", in.Phone, v)
	}
	validation.MaxLength("notes", in.Notes, 500, v)
	return v
}

func (in *ClientInput) apply(c *models.Client) {
	c.Name = in.Name
	c.Email = in.Email
	c.Company = in.Company
	c.Phone = in.Phone
	c.Address = in.Address
	if c.Address.Country == "" {
		c.Address.Country = models.DefaultCountry
	}
	c.Notes = in.Notes
}

// ClientService manages a freelancer's clients.
type ClientService struct {
	Deps
}

func NewClientService(d Deps) *ClientService {
	return &ClientService{Deps: d}
}

// List returns the caller's active clients, newest first. Search matches
// name, company or email.
func (s *ClientService) List(ctx context.Context, p ListParams) ([]models.Client, int64, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, 0, err
	}
	p = p.normalized()
	q := s.DB.WithContext(ctx).Model(&models.Client{}).Where("user_id = ? AND is_active = ?", userID, true)
	if p.Search != "" {
		like := likePattern(p.Search)
		q = q.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(company) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Annotate(err, "count clients")
	}
	clients := []models.Client{}
	if err := q.Order("created_at DESC").Limit(p.Limit).Offset(p.offset()).Find(&clients).Error; err != nil {
		return nil, 0, errors.Annotate(err, "list clients")
	}
	return clients, total, nil
}

// Get loads one active client the caller may see.
func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	return s.load(ctx, s.DB, id, gate.ActionView)
}

func (s *ClientService) load(ctx context.Context, tx *gorm.DB, id string, action gate.Action) (*models.Client, error) {
	var c models.Client
	err := tx.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&c).Error
	if isNotFound(err) {
		return nil, errClientNotFound()
	}
	if err != nil {
		return nil, errors.Annotate(err, "load client")
	}
	if err := authorize(ctx, s.Gate, action, policy.ResourceClient, &c, errClientNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create adds a client owned by the caller. The email must be unique among
// the caller's clients.
func (s *ClientService) Create(ctx context.Context, in ClientInput) (*models.Client, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if v := in.Validate(); !v.Empty() {
		return nil, v
	}
	now := s.now()
	c := models.Client{UserID: userID, IsActive: true, CreatedAt: now, UpdatedAt: now}
	in.apply(&c)
	if err := s.DB.WithContext(ctx).Create(&c).Error; err != nil {
		if isDuplicate(err) {
			return nil, errors.AlreadyExistsf("Client with this email")
		}
		return nil, errors.Annotate(err, "create client")
	}
	s.Log.Info().Str("client_id", c.ID).Str("user_id", userID).Msg("client created")
	return &c, nil
}

// Update replaces the writable fields of a client.
func (s *ClientService) Update(ctx context.Context, id string, in ClientInput) (*models.Client, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, v
	}
	c, err := s.load(ctx, s.DB, id, gate.ActionUpdate)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	c.UpdatedAt = s.now()
	err = s.DB.WithContext(ctx).Model(c).Select(
		"name", "email", "company", "phone",
		"address_street", "address_city", "address_state", "address_zip_code", "address_country",
		"notes", "updated_at",
	).Updates(c).Error
	if err != nil {
		if isDuplicate(err) {
			return nil, errors.AlreadyExistsf("Client with this email")
		}
		return nil, errors.Annotate(err, "update client")
	}
	return c, nil
}

// Delete deactivates a client. Its contracts and invoices are kept.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	c, err := s.load(ctx, s.DB, id, gate.ActionDelete)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Model(c).Updates(map[string]any{
		"is_active":  false,
		"updated_at": s.now(),
	}).Error
	if err != nil {
		return errors.Annotate(err, "delete client")
	}
	s.Log.Info().Str("client_id", c.ID).Msg("client deactivated")
	return nil
}

// Contracts lists the active contracts of one of the caller's clients.
func (s *ClientService) Contracts(ctx context.Context, id string) ([]models.Contract, error) {
	c, err := s.load(ctx, s.DB, id, gate.ActionView)
	if err != nil {
		return nil, err
	}
	if err := expireContracts(ctx, s.DB, c.UserID, s.now()); err != nil {
		return nil, err
	}
	contracts := []models.Contract{}
	err = s.DB.WithContext(ctx).
		Where("client_id = ? AND user_id = ? AND is_active = ?", c.ID, c.UserID, true).
		Order("created_at DESC").Find(&contracts).Error
	if err != nil {
		return nil, errors.Annotate(err, "list client contracts")
	}
	return contracts, nil
}

// Invoices lists the active invoices of one of the caller's clients.
func (s *ClientService) Invoices(ctx context.Context, id string) ([]models.Invoice, error) {
	c, err := s.load(ctx, s.DB, id, gate.ActionView)
	if err != nil {
		return nil, err
	}
	if err := markInvoicesOverdue(ctx, s.DB, c.UserID, s.now()); err != nil {
		return nil, err
	}
	invoices := []models.Invoice{}
	err = s.DB.WithContext(ctx).Preload("Items", orderByPosition).
		Where("client_id = ? AND user_id = ? AND is_active = ?", c.ID, c.UserID, true).
		Order("created_at DESC").Find(&invoices).Error
	if err != nil {
		return nil, errors.Annotate(err, "list client invoices")
	}
	return invoices, nil
}

// activeOwnedClient checks that clientID is an active client of userID.
func activeOwnedClient(ctx context.Context, tx *gorm.DB, userID, clientID string) (*models.Client, error) {
	var c models.Client
	err := tx.WithContext(ctx).Where("id = ? AND user_id = ? AND is_active = ?", clientID, userID, true).First(&c).Error
	if isNotFound(err) {
		return nil, errClientNotFound()
	}
	if err != nil {
		return nil, errors.Annotate(err, "load client")
	}
	return &c, nil
}
