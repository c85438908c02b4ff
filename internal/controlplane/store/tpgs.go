package store

import (
	"context"
	"time"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
)

func (s *GORMStore) CreateTPG(ctx context.Context, targetIQN string, tag uint16) (*models.TPG, error) {
	now := time.Now()
	tpg := &models.TPG{TargetIQN: targetIQN, Tag: tag, CreatedAt: now, UpdatedAt: now}
	if err := s.db.WithContext(ctx).Create(tpg).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.ErrDuplicateTPG
		}
		return nil, err
	}
	return tpg, nil
}

func (s *GORMStore) EnableTPG(ctx context.Context, tpgID uint, enabled bool) error {
	result := s.db.WithContext(ctx).Model(&models.TPG{}).
		Where("id = ?", tpgID).
		Updates(map[string]any{"enabled": enabled, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTPGNotFound
	}
	return nil
}

func (s *GORMStore) DeleteTPG(ctx context.Context, tpgID uint) error {
	result := s.db.WithContext(ctx).Where("id = ?", tpgID).Delete(&models.TPG{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTPGNotFound
	}
	return nil
}

func (s *GORMStore) GetTPG(ctx context.Context, targetIQN string, tag uint16) (*models.TPG, error) {
	var tpg models.TPG
	err := s.db.WithContext(ctx).
		Preload("Portals").Preload("NodeACLs").Preload("Params").
		Where("target_iqn = ? AND tag = ?", targetIQN, tag).
		First(&tpg).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrTPGNotFound)
	}
	return &tpg, nil
}

func (s *GORMStore) ListTPGs(ctx context.Context, targetIQN string) ([]*models.TPG, error) {
	var tpgs []*models.TPG
	err := s.db.WithContext(ctx).
		Preload("Portals").Preload("NodeACLs").Preload("Params").
		Where("target_iqn = ?", targetIQN).
		Find(&tpgs).Error
	if err != nil {
		return nil, err
	}
	return tpgs, nil
}
