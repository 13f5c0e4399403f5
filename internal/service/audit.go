package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// AuditServiceOptions groups dependencies for AuditService.
type AuditServiceOptions struct {
	Repo   core.AuditRepository // Required: audit repository
	Logger *slog.Logger         // Optional: structured logger
}

// AuditService records and lists mutating admin actions.
type AuditService struct {
	repo   core.AuditRepository
	logger *slog.Logger
}

// NewAuditService constructs a new AuditService.
func NewAuditService(opts AuditServiceOptions) (*AuditService, error) {
	if opts.Repo == nil {
		return nil, errors.New("AuditRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AuditService{
		repo:   opts.Repo,
		logger: logger.With("component", "audit_service"),
	}, nil
}

// Record validates and persists one audit entry.
func (s *AuditService) Record(ctx context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return apperrors.Validation("audit entry is required")
	}
	if err := entry.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns audit entries matching the given filters, newest first.
func (s *AuditService) List(ctx context.Context, opts model.AuditListOptions) ([]*model.AuditEntry, error) {
	return s.repo.List(ctx, opts)
}
