package store

import (
	"context"
	"time"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
)

func (s *GORMStore) AddPortal(ctx context.Context, p *models.Portal) error {
	p.CreatedAt = time.Now()
	if p.Transport == "" {
		p.Transport = "tcp"
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicatePortal
		}
		return err
	}
	return nil
}

func (s *GORMStore) DeletePortal(ctx context.Context, tpgID uint, address string) error {
	result := s.db.WithContext(ctx).
		Where("tpg_id = ? AND address = ?", tpgID, address).
		Delete(&models.Portal{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrPortalNotFound
	}
	return nil
}

func (s *GORMStore) ListPortals(ctx context.Context, tpgID uint) ([]*models.Portal, error) {
	var portals []*models.Portal
	if err := s.db.WithContext(ctx).Where("tpg_id = ?", tpgID).Find(&portals).Error; err != nil {
		return nil, err
	}
	return portals, nil
}
