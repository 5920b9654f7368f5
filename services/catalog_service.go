package services

import (
	"context"
	"errors"
	"strings"

	"github.com/anjiri1684/liquidity/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CurrencyProductInput struct {
	Code     string
	Name     string
	PriceKES decimal.Decimal
	Active   *bool
}

// CatalogService manages the rentable currencies and their KES prices.
type CatalogService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCatalogService(db *gorm.DB, log *zap.Logger) *CatalogService {
	return &CatalogService{db: db, log: log}
}

func (s *CatalogService) List(ctx context.Context, includeInactive bool) ([]models.CurrencyProduct, error) {
	q := s.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	var products []models.CurrencyProduct
	err := q.Order("price_kes asc").Find(&products).Error
	return products, err
}

func (s *CatalogService) Create(ctx context.Context, in CurrencyProductInput) (*models.CurrencyProduct, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" || strings.TrimSpace(in.Name) == "" {
		return nil, newError(ErrValidation, "Currency code and name are required.")
	}
	if !in.PriceKES.IsPositive() {
		return nil, newError(ErrValidation, "Price must be greater than zero.")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CurrencyProduct{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, newError(ErrConflict, "Currency already exists.")
	}

	product := models.CurrencyProduct{
		Code:     code,
		Name:     strings.TrimSpace(in.Name),
		PriceKES: in.PriceKES.Round(2),
		Active:   true,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	if in.Active != nil && !*in.Active {
		if err := s.db.WithContext(ctx).Model(&product).Update("active", false).Error; err != nil {
			return nil, err
		}
		product.Active = false
	}

	s.log.Info("currency product created", zap.String("code", code))
	return &product, nil
}

// Update changes name, price or availability. The code is immutable because
// payments reference it.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, in CurrencyProductInput) (*models.CurrencyProduct, error) {
	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
		product.Name = name
	}
	if !in.PriceKES.IsZero() {
		if !in.PriceKES.IsPositive() {
			return nil, newError(ErrValidation, "Price must be greater than zero.")
		}
		updates["price_kes"] = in.PriceKES.Round(2)
		product.PriceKES = in.PriceKES.Round(2)
	}
	if in.Active != nil {
		updates["active"] = *in.Active
		product.Active = *in.Active
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Deactivate hides a currency from new top-ups. Existing payments and rentals keep their code.
func (s *CatalogService) Deactivate(ctx context.Context, id uuid.UUID) error {
	product, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(product).Update("active", false).Error
}

func (s *CatalogService) get(ctx context.Context, id uuid.UUID) (*models.CurrencyProduct, error) {
	var product models.CurrencyProduct
	err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, "Currency not found.")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
