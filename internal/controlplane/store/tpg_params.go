package store

import (
	"context"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
)

// SetTPGParam is an upsert keyed by (tpgID, key), mirroring SetNodeACL.
func (s *GORMStore) SetTPGParam(ctx context.Context, tpgID uint, key, value string) error {
	var existing models.TPGParam
	err := s.db.WithContext(ctx).
		Where("tpg_id = ? AND key = ?", tpgID, key).
		First(&existing).Error

	if err == nil {
		existing.Value = value
		return s.db.WithContext(ctx).Save(&existing).Error
	}

	return s.db.WithContext(ctx).Create(&models.TPGParam{TPGID: tpgID, Key: key, Value: value}).Error
}

func (s *GORMStore) ListTPGParams(ctx context.Context, tpgID uint) ([]*models.TPGParam, error) {
	var params []*models.TPGParam
	if err := s.db.WithContext(ctx).Where("tpg_id = ?", tpgID).Find(&params).Error; err != nil {
		return nil, err
	}
	return params, nil
}
