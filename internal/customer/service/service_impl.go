package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/cache"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/config"
	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	// resolved maps a sanitized raw ref onto its canonical customer id.
	resolved *cache.TTLMap[string, string]
}

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

func NewService(p ServiceParam) customerdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.service"),
		resolved: cache.NewTTLMap[string, string](p.Cfg.ResolverCacheTTL),
	}
}

func (s *Service) Resolve(ctx context.Context, rawRef string) (*customerdomain.Customer, error) {
	ref := customerdomain.SanitizeRef(rawRef)
	if ref == "" {
		return nil, customerdomain.ErrInvalidCustomerRef
	}

	if id, ok := s.resolved.Get(ref); ok {
		return s.Get(ctx, id)
	}

	// Canonical id first.
	customer, err := s.load(ctx, ref)
	if err != nil && !errors.Is(err, customerdomain.ErrNotFound) {
		return nil, err
	}
	if customer != nil {
		s.resolved.Put(ref, customer.CustomerID)
		return customer, nil
	}

	// Then the alias table.
	var alias customerdomain.CustomerAlias
	err = s.db.WithContext(ctx).
		Where("alias = ?", ref).
		First(&alias).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerdomain.ErrNotFound
		}
		return nil, err
	}

	customer, err = s.load(ctx, alias.CustomerID)
	if err != nil {
		return nil, err
	}
	s.resolved.Put(ref, customer.CustomerID)
	return customer, nil
}

func (s *Service) Get(ctx context.Context, customerID string) (*customerdomain.Customer, error) {
	customer, err := s.load(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, req customerdomain.ListRequest) ([]*customerdomain.Customer, error) {
	query := s.db.WithContext(ctx).Model(&customerdomain.Customer{})
	if req.Name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(req.Name))+"%")
	}
	if req.AccountType != "" {
		if !customerdomain.ValidAccountType(req.AccountType) {
			return nil, customerdomain.ErrInvalidAccountType
		}
		query = query.Where("account_type = ?", req.AccountType)
	}
	if !req.IncludeArchived {
		query = query.Where("archived = ?", false)
	}
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var customers []*customerdomain.Customer
	if err := query.Order("name ASC").Limit(limit).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Service) Upsert(ctx context.Context, req customerdomain.UpsertRequest) (*customerdomain.Customer, error) {
	var result *customerdomain.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := UpsertTx(ctx, tx, req)
		if err != nil {
			return err
		}
		result = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpsertTx creates or refreshes a customer inside an enclosing
// transaction. Bulk imports call it on the batch transaction so a
// rolled back batch leaves no half-created customers behind.
func UpsertTx(ctx context.Context, tx *gorm.DB, req customerdomain.UpsertRequest) (*customerdomain.Customer, error) {
	customerID := customerdomain.SanitizeRef(req.CustomerID)
	if customerID == "" {
		return nil, customerdomain.ErrInvalidCustomerRef
	}
	accountType := req.AccountType
	if accountType == "" {
		accountType = customerdomain.AccountTypeWholesale
	}
	if !customerdomain.ValidAccountType(accountType) {
		return nil, customerdomain.ErrInvalidAccountType
	}

	var existing customerdomain.Customer
	err := tx.WithContext(ctx).Where("customer_id = ?", customerID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created := customerdomain.Customer{
			CustomerID:     customerID,
			Name:           strings.TrimSpace(req.Name),
			AccountType:    accountType,
			FirstOrderDate: req.OrderDate,
			TotalSales:     decimal.Zero,
			CreatedAt:      time.Now().UTC(),
			UpdatedAt:      time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Create(&created).Error; err != nil {
			return nil, err
		}
		return &created, nil
	case err != nil:
		return nil, err
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if name := strings.TrimSpace(req.Name); name != "" && name != existing.Name {
		updates["name"] = name
	}
	if req.AccountType != "" && req.AccountType != existing.AccountType {
		updates["account_type"] = req.AccountType
	}
	if req.OrderDate != nil &&
		(existing.FirstOrderDate == nil || req.OrderDate.Before(*existing.FirstOrderDate)) {
		updates["first_order_date"] = *req.OrderDate
	}
	if err := tx.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// ResolveTx resolves a raw reference inside an enclosing transaction,
// bypassing the resolver cache so mid-batch lookups see rows the same
// transaction just wrote.
func ResolveTx(ctx context.Context, tx *gorm.DB, rawRef string) (*customerdomain.Customer, error) {
	ref := customerdomain.SanitizeRef(rawRef)
	if ref == "" {
		return nil, customerdomain.ErrInvalidCustomerRef
	}

	var customer customerdomain.Customer
	err := tx.WithContext(ctx).Where("customer_id = ?", ref).First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var alias customerdomain.CustomerAlias
	err = tx.WithContext(ctx).Where("alias = ?", ref).First(&alias).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerdomain.ErrNotFound
		}
		return nil, err
	}

	err = tx.WithContext(ctx).Where("customer_id = ?", alias.CustomerID).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerdomain.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Service) AddAlias(ctx context.Context, customerID, alias string) error {
	customerID = customerdomain.SanitizeRef(customerID)
	alias = customerdomain.SanitizeRef(alias)
	if customerID == "" || alias == "" || alias == customerID {
		return customerdomain.ErrInvalidCustomerRef
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return addAliasTx(ctx, tx, customerID, alias)
	})
	if err != nil {
		return err
	}
	s.resolved.Forget(alias)
	return nil
}

// AddAliasTx appends an alias inside an enclosing transaction. The
// customer-correction flow uses it to keep the order rewrite, line
// item rewrite and alias memorization atomic.
func AddAliasTx(ctx context.Context, tx *gorm.DB, customerID, alias string) error {
	return addAliasTx(ctx, tx, customerdomain.SanitizeRef(customerID), customerdomain.SanitizeRef(alias))
}

func addAliasTx(ctx context.Context, tx *gorm.DB, customerID, alias string) error {
	if customerID == "" || alias == "" || alias == customerID {
		return customerdomain.ErrInvalidCustomerRef
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&customerdomain.Customer{}).
		Where("customer_id = ?", customerID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return customerdomain.ErrNotFound
	}

	// An alias must never be a canonical id of another customer.
	if err := tx.WithContext(ctx).Model(&customerdomain.Customer{}).
		Where("customer_id = ?", alias).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return customerdomain.ErrAliasTaken
	}

	var existing customerdomain.CustomerAlias
	err := tx.WithContext(ctx).Where("alias = ?", alias).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.WithContext(ctx).Create(&customerdomain.CustomerAlias{
			Alias:      alias,
			CustomerID: customerID,
			CreatedAt:  time.Now().UTC(),
		}).Error
	case err != nil:
		return err
	}
	if existing.CustomerID != customerID {
		return customerdomain.ErrAliasTaken
	}
	// Already mapped to this customer; append-only set stays deduped.
	return nil
}

func (s *Service) Archive(ctx context.Context, customerID string, archived bool) error {
	id := customerdomain.SanitizeRef(customerID)
	result := s.db.WithContext(ctx).Model(&customerdomain.Customer{}).
		Where("customer_id = ?", id).
		Updates(map[string]any{"archived": archived, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return customerdomain.ErrNotFound
	}
	// Every cached ref pointing at this customer is stale now.
	s.resolved.Evict(id)
	return nil
}

func (s *Service) RecomputeTotalSales(ctx context.Context, customerIDs []string) error {
	if len(customerIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Exec(
		`UPDATE customers SET total_sales = (
			SELECT COALESCE(SUM(total_price), 0)
			FROM sales_order_line_items
			WHERE sales_order_line_items.customer_id = customers.customer_id
		)
		WHERE customer_id IN ?`,
		customerIDs,
	).Error
}

func (s *Service) load(ctx context.Context, customerID string) (*customerdomain.Customer, error) {
	if customerID == "" {
		return nil, customerdomain.ErrNotFound
	}
	var customer customerdomain.Customer
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerdomain.ErrNotFound
		}
		return nil, err
	}

	var aliases []customerdomain.CustomerAlias
	if err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("alias ASC").
		Find(&aliases).Error; err != nil {
		return nil, err
	}
	for _, a := range aliases {
		customer.Aliases = append(customer.Aliases, a.Alias)
	}
	return &customer, nil
}
