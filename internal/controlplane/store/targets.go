package store

import (
	"context"
	"time"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
)

func (s *GORMStore) CreateTarget(ctx context.Context, iqn string) error {
	now := time.Now()
	target := &models.Target{IQN: iqn, CreatedAt: now, UpdatedAt: now}
	if err := s.db.WithContext(ctx).Create(target).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicateTarget
		}
		return err
	}
	return nil
}

func (s *GORMStore) DeleteTarget(ctx context.Context, iqn string) error {
	result := s.db.WithContext(ctx).Where("iqn = ?", iqn).Delete(&models.Target{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTargetNotFound
	}
	return nil
}

func (s *GORMStore) GetTarget(ctx context.Context, iqn string) (*models.Target, error) {
	var target models.Target
	err := s.db.WithContext(ctx).
		Preload("TPGs").Preload("TPGs.Portals").Preload("TPGs.NodeACLs").Preload("TPGs.Params").
		Where("iqn = ?", iqn).
		First(&target).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrTargetNotFound)
	}
	return &target, nil
}

func (s *GORMStore) ListTargets(ctx context.Context) ([]*models.Target, error) {
	var targets []*models.Target
	if err := s.db.WithContext(ctx).Preload("TPGs").Find(&targets).Error; err != nil {
		return nil, err
	}
	return targets, nil
}
