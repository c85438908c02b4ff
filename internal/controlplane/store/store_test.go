//go:build integration

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
)

func createTestStore(t *testing.T) *GORMStore {
	t.Helper()
	s, err := New(&Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: ":memory:"}})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	t.Run("default config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()
		if config.Type != DatabaseTypeSQLite {
			t.Errorf("expected sqlite, got %s", config.Type)
		}
	})

	t.Run("invalid config returns error", func(t *testing.T) {
		_, err := New(&Config{Type: "invalid"})
		if err == nil {
			t.Error("expected error for invalid config")
		}
	})
}

func TestTargetLifecycle(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	defer s.Close()

	const iqn = "iqn.2026-01.org.iscsitgt:disk0"

	if err := s.CreateTarget(ctx, iqn); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}

	if err := s.CreateTarget(ctx, iqn); !errors.Is(err, models.ErrDuplicateTarget) {
		t.Errorf("expected ErrDuplicateTarget, got %v", err)
	}

	target, err := s.GetTarget(ctx, iqn)
	if err != nil {
		t.Fatalf("GetTarget: %v", err)
	}
	if target.IQN != iqn {
		t.Errorf("expected iqn %q, got %q", iqn, target.IQN)
	}

	targets, err := s.ListTargets(ctx)
	if err != nil {
		t.Fatalf("ListTargets: %v", err)
	}
	if len(targets) != 1 {
		t.Errorf("expected 1 target, got %d", len(targets))
	}

	if err := s.DeleteTarget(ctx, iqn); err != nil {
		t.Fatalf("DeleteTarget: %v", err)
	}
	if _, err := s.GetTarget(ctx, iqn); !errors.Is(err, models.ErrTargetNotFound) {
		t.Errorf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestTPGAndPortalLifecycle(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	defer s.Close()

	const iqn = "iqn.2026-01.org.iscsitgt:disk0"
	if err := s.CreateTarget(ctx, iqn); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}

	tpg, err := s.CreateTPG(ctx, iqn, 1)
	if err != nil {
		t.Fatalf("CreateTPG: %v", err)
	}
	if tpg.Enabled {
		t.Error("expected TPG to start disabled")
	}

	if err := s.EnableTPG(ctx, tpg.ID, true); err != nil {
		t.Fatalf("EnableTPG: %v", err)
	}
	got, err := s.GetTPG(ctx, iqn, 1)
	if err != nil {
		t.Fatalf("GetTPG: %v", err)
	}
	if !got.Enabled {
		t.Error("expected TPG to be enabled")
	}

	if err := s.AddPortal(ctx, &models.Portal{TPGID: tpg.ID, Address: "0.0.0.0", Port: 3260}); err != nil {
		t.Fatalf("AddPortal: %v", err)
	}
	portals, err := s.ListPortals(ctx, tpg.ID)
	if err != nil {
		t.Fatalf("ListPortals: %v", err)
	}
	if len(portals) != 1 || portals[0].Transport != "tcp" {
		t.Errorf("unexpected portals: %+v", portals)
	}

	if err := s.DeletePortal(ctx, tpg.ID, "0.0.0.0"); err != nil {
		t.Fatalf("DeletePortal: %v", err)
	}

	if err := s.DeleteTPG(ctx, tpg.ID); err != nil {
		t.Fatalf("DeleteTPG: %v", err)
	}
}

func TestNodeACLUpsert(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	defer s.Close()

	const iqn = "iqn.2026-01.org.iscsitgt:disk0"
	if err := s.CreateTarget(ctx, iqn); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	tpg, err := s.CreateTPG(ctx, iqn, 1)
	if err != nil {
		t.Fatalf("CreateTPG: %v", err)
	}

	const initiator = "iqn.2026-01.org.initiator:host0"
	if err := s.SetNodeACL(ctx, &models.NodeACL{TPGID: tpg.ID, InitiatorIQN: initiator, CmdSNWindow: 16}); err != nil {
		t.Fatalf("SetNodeACL (create): %v", err)
	}
	if err := s.SetNodeACL(ctx, &models.NodeACL{TPGID: tpg.ID, InitiatorIQN: initiator, CmdSNWindow: 32}); err != nil {
		t.Fatalf("SetNodeACL (update): %v", err)
	}

	acls, err := s.ListNodeACLs(ctx, tpg.ID)
	if err != nil {
		t.Fatalf("ListNodeACLs: %v", err)
	}
	if len(acls) != 1 || acls[0].CmdSNWindow != 32 {
		t.Errorf("expected single upserted acl with window 32, got %+v", acls)
	}

	if err := s.DeleteNodeACL(ctx, tpg.ID, initiator); err != nil {
		t.Fatalf("DeleteNodeACL: %v", err)
	}
	if err := s.DeleteNodeACL(ctx, tpg.ID, initiator); !errors.Is(err, models.ErrNodeACLNotFound) {
		t.Errorf("expected ErrNodeACLNotFound, got %v", err)
	}
}

func TestTPGParamUpsert(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	defer s.Close()

	const iqn = "iqn.2026-01.org.iscsitgt:disk0"
	if err := s.CreateTarget(ctx, iqn); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	tpg, err := s.CreateTPG(ctx, iqn, 1)
	if err != nil {
		t.Fatalf("CreateTPG: %v", err)
	}

	if err := s.SetTPGParam(ctx, tpg.ID, "MaxBurstLength", "262144"); err != nil {
		t.Fatalf("SetTPGParam (create): %v", err)
	}
	if err := s.SetTPGParam(ctx, tpg.ID, "MaxBurstLength", "524288"); err != nil {
		t.Fatalf("SetTPGParam (update): %v", err)
	}

	params, err := s.ListTPGParams(ctx, tpg.ID)
	if err != nil {
		t.Fatalf("ListTPGParams: %v", err)
	}
	if len(params) != 1 || params[0].Value != "524288" {
		t.Errorf("expected single upserted param with value 524288, got %+v", params)
	}
}
