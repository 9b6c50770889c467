package repository

import (
	"context"
	"fmt"

	"github.com/nfvmesh/sfcd/common/db"
)

// Schema DDL applied on startup via the bootstrap db-init hook.
// delta_record is append-only; the unique (tenant_id, version) index is the
// per-tenant total-order guarantee.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS chain (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		auto_boot BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS appliance_template (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		category TEXT NOT NULL,
		vendor TEXT NOT NULL,
		image_ref TEXT NOT NULL,
		flavor TEXT NOT NULL,
		security_group_ref TEXT NOT NULL,
		load_share INTEGER NOT NULL DEFAULT 1,
		config_handle TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS chain_step (
		id UUID PRIMARY KEY,
		chain_id UUID NOT NULL REFERENCES chain(id),
		appliance_template_id UUID NOT NULL REFERENCES appliance_template(id),
		sequence_number INTEGER NOT NULL,
		tenant_id TEXT NOT NULL,
		UNIQUE (chain_id, sequence_number)
	)`,
	`CREATE TABLE IF NOT EXISTS step_instance (
		id UUID PRIMARY KEY,
		chain_step_id UUID NOT NULL REFERENCES chain_step(id),
		external_instance_id TEXT NOT NULL,
		network_id TEXT NOT NULL,
		vlan_in INTEGER,
		vlan_out INTEGER,
		status TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_step_instance_network ON step_instance (network_id)`,
	`CREATE INDEX IF NOT EXISTS idx_step_instance_external ON step_instance (external_instance_id)`,
	`CREATE TABLE IF NOT EXISTS delta_record (
		id BIGSERIAL PRIMARY KEY,
		entity_kind TEXT NOT NULL,
		operation TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		version BIGINT NOT NULL,
		snapshot JSONB NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (tenant_id, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_delta_record_kind ON delta_record (entity_kind, tenant_id, version)`,
	`CREATE TABLE IF NOT EXISTS tenant_version (
		tenant_id TEXT PRIMARY KEY,
		current BIGINT NOT NULL DEFAULT 0
	)`,
}

// InitSchema creates all tables if they do not exist
func InitSchema(ctx context.Context, database *db.DB) error {
	for _, stmt := range schema {
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
