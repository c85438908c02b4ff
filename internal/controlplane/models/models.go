// Package models defines the persisted control-plane configuration: target
// nodes, their portal groups, bound network portals, and per-initiator node
// ACLs. None of this is consulted by the data-path core at runtime; it is
// read once at startup (and on explicit API mutation) to populate the
// in-memory portal.Registry the core actually serves from.
package models

import (
	"errors"
	"time"
)

// AllModels returns every type GORM should AutoMigrate, mirroring the
// teacher's models.AllModels used by GORMStore.New.
func AllModels() []any {
	return []any{
		&Target{},
		&TPG{},
		&Portal{},
		&NodeACL{},
		&TPGParam{},
	}
}

var (
	ErrTargetNotFound      = errors.New("target not found")
	ErrDuplicateTarget     = errors.New("target already exists")
	ErrTPGNotFound         = errors.New("tpg not found")
	ErrDuplicateTPG        = errors.New("tpg already exists")
	ErrPortalNotFound      = errors.New("portal not found")
	ErrDuplicatePortal     = errors.New("portal already exists")
	ErrNodeACLNotFound     = errors.New("node acl not found")
)

// Target is a persisted iSCSI target node: a stable IQN with zero or more
// target portal groups.
type Target struct {
	IQN       string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TPGs []TPG `gorm:"foreignKey:TargetIQN;references:IQN"`
}

// TPG is a persisted target portal group: a tag scoped to a target, a set
// of bound portal addresses, and the node ACLs and negotiation parameters
// that apply to sessions formed through it.
type TPG struct {
	ID         uint   `gorm:"primaryKey"`
	TargetIQN  string `gorm:"index:idx_tpg_target_tag,unique,priority:1"`
	Tag        uint16 `gorm:"index:idx_tpg_target_tag,unique,priority:2"`
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Portals  []Portal   `gorm:"foreignKey:TPGID"`
	NodeACLs []NodeACL  `gorm:"foreignKey:TPGID"`
	Params   []TPGParam `gorm:"foreignKey:TPGID"`
}

// Portal is a network address bound into a TPG. ExternalAddress/Port cover
// the NAT/port-forward case where the advertised SendTargets address
// differs from the bind address.
type Portal struct {
	ID             uint `gorm:"primaryKey"`
	TPGID          uint `gorm:"index:idx_portal_tpg_addr,unique,priority:1"`
	Address        string `gorm:"index:idx_portal_tpg_addr,unique,priority:2"`
	Port           int
	Transport      string // "tcp" or "sctp"
	ExternalAddress string
	ExternalPort    int
	CreatedAt      time.Time
}

// NodeACL authorizes one initiator IQN under a TPG, with an optional LUN
// map and a per-initiator CmdSN window override.
type NodeACL struct {
	ID            uint   `gorm:"primaryKey"`
	TPGID         uint   `gorm:"index:idx_acl_tpg_iqn,unique,priority:1"`
	InitiatorIQN  string `gorm:"index:idx_acl_tpg_iqn,unique,priority:2"`
	AuthRequired  bool
	LUNMap        string // JSON-encoded map[uint64]uint64, logical LUN -> backend LUN
	CmdSNWindow   uint32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TPGParam is a single key/value negotiation default override for a TPG
// (set_tpg_param), e.g. "MaxBurstLength" -> "262144".
type TPGParam struct {
	ID    uint   `gorm:"primaryKey"`
	TPGID uint   `gorm:"index:idx_param_tpg_key,unique,priority:1"`
	Key   string `gorm:"index:idx_param_tpg_key,unique,priority:2"`
	Value string
}
