package services

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/gate"
	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/internal/policy"
	"github.com/contractpro/contractpro/validation"
)

func errContractNotFound() error { return errors.NotFoundf("Contract") }

// ContractInput is the writable part of a contract. Status, timestamps and
// the signature id are driven by the lifecycle only.
type ContractInput struct {
	ClientID  string          `json:"clientId"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Terms     string          `json:"terms"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  models.Currency `json:"currency"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Validate checks the input. The expiry must lie after now only when
// creating; an update may keep a date that has since passed.
func (in *ContractInput) Validate(now time.Time, creating bool) validation.Violations {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Currency == "" {
		in.Currency = models.CurrencyUSD
	}

	v := make(validation.Violations)
	validation.ID("clientId", in.ClientID, v)
	validation.Required("title", in.Title, v)
	validation.Length("title", in.Title, 1, 200, v)
	validation.Required("content", in.Content, v)
	validation.Length("content", in.Content, 1, 10000, v)
	validation.MaxLength("terms", in.Terms, 2000, v)
	validation.MinDecimal("amount", in.Amount, decimal.Zero, v)
	validation.OneOf("currency", string(in.Currency), models.Currencies, v)
	validation.RequiredTime("expiresAt", in.ExpiresAt, v)
	if creating {
		validation.After("expiresAt", in.ExpiresAt, now, v)
	}
	return v
}

func (in *ContractInput) apply(c *models.Contract) {
	c.ClientID = in.ClientID
	c.Title = in.Title
	c.Content = in.Content
	c.Terms = in.Terms
	c.Amount = in.Amount
	c.Currency = in.Currency
	c.ExpiresAt = in.ExpiresAt.UTC()
}

// ContractService runs the contract lifecycle.
type ContractService struct {
	Deps
}

func NewContractService(d Deps) *ContractService {
	return &ContractService{Deps: d}
}

func preloadClientSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "user_id", "name", "company", "email")
}

// List returns one page of the caller's active contracts, newest first.
// Search matches title or content; Status filters exactly.
func (s *ContractService) List(ctx context.Context, p ListParams) ([]models.Contract, int64, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := expireContracts(ctx, s.DB, userID, s.now()); err != nil {
		return nil, 0, err
	}
	p = p.normalized()
	q := s.DB.WithContext(ctx).Model(&models.Contract{}).Where("user_id = ? AND is_active = ?", userID, true)
	if p.Status != "" {
		q = q.Where("status = ?", p.Status)
	}
	if p.Search != "" {
		like := likePattern(p.Search)
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\')", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Annotate(err, "count contracts")
	}
	contracts := []models.Contract{}
	err = q.Preload("Client", preloadClientSummary).
		Order("created_at DESC").Limit(p.Limit).Offset(p.offset()).Find(&contracts).Error
	if err != nil {
		return nil, 0, errors.Annotate(err, "list contracts")
	}
	return contracts, total, nil
}

// Get loads one contract, expiring it first if its deadline passed.
func (s *ContractService) Get(ctx context.Context, id string) (*models.Contract, error) {
	return s.load(ctx, id, gate.ActionView)
}

func (s *ContractService) load(ctx context.Context, id string, action gate.Action) (*models.Contract, error) {
	var c models.Contract
	err := s.DB.WithContext(ctx).Preload("Client").
		Where("id = ? AND is_active = ?", id, true).First(&c).Error
	if isNotFound(err) {
		return nil, errContractNotFound()
	}
	if err != nil {
		return nil, errors.Annotate(err, "load contract")
	}
	if err := authorize(ctx, s.Gate, action, policy.ResourceContract, &c, errContractNotFound); err != nil {
		return nil, err
	}
	if c.AutoExpire(s.now()) {
		// A concurrent writer leaves the stale version in c, so the next
		// save conflicts as it should.
		if err := s.save(ctx, s.DB, &c); err != nil && !errors.Is(err, ErrConflict) {
			return nil, err
		}
	}
	return &c, nil
}

// save persists every mutable column with an optimistic version check,
// applying auto-expiry first.
func (s *ContractService) save(ctx context.Context, tx *gorm.DB, c *models.Contract) error {
	now := s.now()
	c.AutoExpire(now)
	err := casUpdate(tx.WithContext(ctx), &models.Contract{}, c.ID, c.Version, map[string]any{
		"client_id":    c.ClientID,
		"title":        c.Title,
		"content":      c.Content,
		"terms":        c.Terms,
		"amount":       c.Amount,
		"currency":     c.Currency,
		"status":       c.Status,
		"signature_id": c.SignatureID,
		"sent_at":      c.SentAt,
		"signed_at":    c.SignedAt,
		"expires_at":   c.ExpiresAt,
		"is_active":    c.IsActive,
		"updated_at":   now,
	})
	if errors.Is(err, ErrConflict) {
		s.Log.Warn().Str("contract_id", c.ID).Int("version", c.Version).Msg("contract update conflict")
		return err
	}
	if err != nil {
		return errors.Annotate(err, "save contract")
	}
	c.Version++
	c.UpdatedAt = now
	return nil
}

// Create stores a draft contract for one of the caller's active clients.
func (s *ContractService) Create(ctx context.Context, in ContractInput) (*models.Contract, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if v := in.Validate(now, true); !v.Empty() {
		return nil, v
	}
	client, err := activeOwnedClient(ctx, s.DB, userID, in.ClientID)
	if err != nil {
		return nil, err
	}
	c := models.Contract{
		UserID:    userID,
		Status:    models.ContractStatusDraft,
		IsActive:  true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&c)
	if err := s.DB.WithContext(ctx).Omit("Client").Create(&c).Error; err != nil {
		return nil, errors.Annotate(err, "create contract")
	}
	c.Client = client
	s.Log.Info().Str("contract_id", c.ID).Str("user_id", userID).Msg("contract created")
	return &c, nil
}

// Update replaces the writable fields. The lifecycle state is untouched.
func (s *ContractService) Update(ctx context.Context, id string, in ContractInput) (*models.Contract, error) {
	if v := in.Validate(s.now(), false); !v.Empty() {
		return nil, v
	}
	c, err := s.load(ctx, id, gate.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if in.ClientID != c.ClientID {
		client, err := activeOwnedClient(ctx, s.DB, c.UserID, in.ClientID)
		if err != nil {
			return nil, err
		}
		c.Client = client
	}
	in.apply(c)
	if err := s.save(ctx, s.DB, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete deactivates the contract.
func (s *ContractService) Delete(ctx context.Context, id string) error {
	c, err := s.load(ctx, id, gate.ActionDelete)
	if err != nil {
		return err
	}
	c.IsActive = false
	if err := s.save(ctx, s.DB, c); err != nil {
		return err
	}
	s.Log.Info().Str("contract_id", c.ID).Msg("contract deactivated")
	return nil
}

// SendForSignature moves a draft to sent and opens a signature request.
func (s *ContractService) SendForSignature(ctx context.Context, id string) (*models.Contract, error) {
	return s.transition(ctx, id, gate.ActionSend, func(c *models.Contract, now time.Time) error {
		return c.SendForSignature(now, models.NewSignatureID())
	})
}

// Sign completes a sent contract.
func (s *ContractService) Sign(ctx context.Context, id string) (*models.Contract, error) {
	return s.transition(ctx, id, gate.ActionSign, func(c *models.Contract, now time.Time) error {
		return c.Sign(now)
	})
}

func (s *ContractService) transition(ctx context.Context, id string, action gate.Action, step func(*models.Contract, time.Time) error) (*models.Contract, error) {
	c, err := s.load(ctx, id, action)
	if err != nil {
		return nil, err
	}
	err = step(c, s.now())
	if err == nil {
		err = s.save(ctx, s.DB, c)
	}
	s.Metrics.Transition(policy.ResourceContract, string(action), err)
	if err != nil {
		return nil, err
	}
	s.Log.Info().Str("contract_id", c.ID).Str("action", string(action)).Str("status", string(c.Status)).Msg("contract transition")
	return c, nil
}

// ExportPDF returns the contract with the download location of its
// document. Rendering happens elsewhere; only the location is produced here.
func (s *ContractService) ExportPDF(ctx context.Context, id string) (*models.Contract, string, error) {
	c, err := s.load(ctx, id, gate.ActionExport)
	if err != nil {
		return nil, "", err
	}
	return c, "/api/files/contracts/" + c.ID + ".pdf", nil
}

// expireContracts flips every overdue sent contract of userID to expired in
// one statement, so filters and counts see current statuses.
func expireContracts(ctx context.Context, db *gorm.DB, userID string, now time.Time) error {
	q := db.WithContext(ctx).Model(&models.Contract{}).
		Where("status = ? AND expires_at < ?", models.ContractStatusSent, now)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Updates(map[string]any{
		"status":     models.ContractStatusExpired,
		"version":    gorm.Expr("version + 1"),
		"updated_at": now,
	}).Error
	return errors.Annotate(err, "expire contracts")
}
