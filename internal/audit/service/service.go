package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/audit/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/auditcontext"
)

// Service appends and lists audit records. Append failures are logged
// but never fail the mutation they describe.
type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo auditdomain.Repository

	genID *snowflake.Node
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  auditdomain.Repository
	GenID *snowflake.Node
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

// Append records an action. When tx is non-nil the record joins that
// transaction so the audit row commits with the mutation it describes.
func (s *Service) Append(ctx context.Context, tx *gorm.DB, action, targetType, targetID, actor, reason string, metadata map[string]any) error {
	db := tx
	if db == nil {
		db = s.db
	}
	if actor == "" {
		actor = auditcontext.ActorFromContext(ctx)
	}
	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Actor:      actor,
		Reason:     reason,
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		metadata["request_id"] = requestID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		metadata["ip_address"] = ip
	}
	entry.Metadata = datatypes.JSONMap(metadata)
	if err := s.repo.Insert(ctx, db, entry); err != nil {
		s.log.Error("audit append failed",
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// List returns audit records matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) ([]*auditdomain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}
