package store

import (
	"context"
	"time"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
)

// SetNodeACL is an upsert keyed by (tpgID, initiatorIQN): set_node_acl is
// idempotent, used both to add and to update LUN map/window.
func (s *GORMStore) SetNodeACL(ctx context.Context, acl *models.NodeACL) error {
	now := time.Now()
	var existing models.NodeACL
	err := s.db.WithContext(ctx).
		Where("tpg_id = ? AND initiator_iqn = ?", acl.TPGID, acl.InitiatorIQN).
		First(&existing).Error

	if err == nil {
		acl.ID = existing.ID
		acl.CreatedAt = existing.CreatedAt
		acl.UpdatedAt = now
		return s.db.WithContext(ctx).Save(acl).Error
	}

	acl.CreatedAt = now
	acl.UpdatedAt = now
	return s.db.WithContext(ctx).Create(acl).Error
}

func (s *GORMStore) DeleteNodeACL(ctx context.Context, tpgID uint, initiatorIQN string) error {
	result := s.db.WithContext(ctx).
		Where("tpg_id = ? AND initiator_iqn = ?", tpgID, initiatorIQN).
		Delete(&models.NodeACL{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNodeACLNotFound
	}
	return nil
}

func (s *GORMStore) ListNodeACLs(ctx context.Context, tpgID uint) ([]*models.NodeACL, error) {
	var acls []*models.NodeACL
	if err := s.db.WithContext(ctx).Where("tpg_id = ?", tpgID).Find(&acls).Error; err != nil {
		return nil, err
	}
	return acls, nil
}
