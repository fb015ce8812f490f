package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	ratedomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/domain"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) ratedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("rate.service"),
		genID: p.GenID,
	}
}

func (s *Service) LoadSnapshot(ctx context.Context) (*ratedomain.Snapshot, error) {
	var rules []ratedomain.RateRule
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return ratedomain.NewSnapshot(rules), nil
}

func (s *Service) ListRules(ctx context.Context) ([]*ratedomain.RateRule, error) {
	var rules []*ratedomain.RateRule
	err := s.db.WithContext(ctx).
		Order("title ASC, segment ASC, status ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *Service) UpsertRule(ctx context.Context, req ratedomain.UpsertRuleRequest) (*ratedomain.RateRule, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ratedomain.ErrInvalidRate
	}
	if req.Segment != customerdomain.AccountTypeWholesale && req.Segment != customerdomain.AccountTypeDistributor {
		return nil, ratedomain.ErrInvalidSegment
	}
	if req.Status != ratedomain.StatusNewBusiness && req.Status != ratedomain.StatusEstablished {
		return nil, ratedomain.ErrInvalidStatus
	}
	if req.Percentage.IsNegative() || req.Percentage.GreaterThan(hundred) {
		return nil, ratedomain.ErrInvalidRate
	}

	var result *ratedomain.RateRule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing ratedomain.RateRule
		err := tx.Where("title = ? AND segment = ? AND status = ?", title, req.Segment, req.Status).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created := ratedomain.RateRule{
				ID:         s.genID.Generate(),
				Title:      title,
				Segment:    req.Segment,
				Status:     req.Status,
				Percentage: req.Percentage,
				Active:     req.Active,
				CreatedAt:  time.Now().UTC(),
				UpdatedAt:  time.Now().UTC(),
			}
			if err := tx.Create(&created).Error; err != nil {
				return err
			}
			result = &created
			return nil
		case err != nil:
			return err
		}

		if err := tx.Model(&existing).Updates(map[string]any{
			"percentage": req.Percentage,
			"active":     req.Active,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		result = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

var hundred = decimal.NewFromInt(100)
