package store

import (
	"context"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
)

// Store is the control-plane persistence surface: CRUD for targets, TPGs,
// portals, node ACLs, and per-TPG parameter overrides.
type Store interface {
	TargetStore
	TPGStore
	PortalStore
	NodeACLStore
	TPGParamStore
}

// TargetStore manages target nodes.
type TargetStore interface {
	CreateTarget(ctx context.Context, iqn string) error
	DeleteTarget(ctx context.Context, iqn string) error
	GetTarget(ctx context.Context, iqn string) (*models.Target, error)
	ListTargets(ctx context.Context) ([]*models.Target, error)
}

// TPGStore manages target portal groups.
type TPGStore interface {
	CreateTPG(ctx context.Context, targetIQN string, tag uint16) (*models.TPG, error)
	EnableTPG(ctx context.Context, tpgID uint, enabled bool) error
	DeleteTPG(ctx context.Context, tpgID uint) error
	GetTPG(ctx context.Context, targetIQN string, tag uint16) (*models.TPG, error)
	ListTPGs(ctx context.Context, targetIQN string) ([]*models.TPG, error)
}

// PortalStore manages network portals bound into a TPG.
type PortalStore interface {
	AddPortal(ctx context.Context, p *models.Portal) error
	DeletePortal(ctx context.Context, tpgID uint, address string) error
	ListPortals(ctx context.Context, tpgID uint) ([]*models.Portal, error)
}

// NodeACLStore manages per-initiator authorization under a TPG.
type NodeACLStore interface {
	SetNodeACL(ctx context.Context, acl *models.NodeACL) error
	DeleteNodeACL(ctx context.Context, tpgID uint, initiatorIQN string) error
	ListNodeACLs(ctx context.Context, tpgID uint) ([]*models.NodeACL, error)
}

// TPGParamStore manages negotiation-default overrides per TPG.
type TPGParamStore interface {
	SetTPGParam(ctx context.Context, tpgID uint, key, value string) error
	ListTPGParams(ctx context.Context, tpgID uint) ([]*models.TPGParam, error)
}
