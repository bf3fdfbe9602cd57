package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS teams (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		fine_permission VARCHAR(20) NOT NULL DEFAULT 'everyone',
		dispute_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		dispute_mode VARCHAR(20),
		dispute_votes_required INTEGER,
		is_closed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS team_members (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL DEFAULT 'member',
		credit NUMERIC(12,2) NOT NULL DEFAULT 0,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(team_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS team_invites (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		inviter_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		invitee_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(team_id, invitee_id)
	)`,

	// Rules are soft-deleted via is_active so historical fines keep their reference.
	`CREATE TABLE IF NOT EXISTS fine_rules (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		label VARCHAR(255) NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		category VARCHAR(100) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// Label and amount are snapshotted at creation; rule_id is kept for traceability.
	`CREATE TABLE IF NOT EXISTS fines (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		offender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		issuer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		rule_id UUID REFERENCES fine_rules(id) ON DELETE SET NULL,
		label VARCHAR(255) NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		amount_paid NUMERIC(12,2) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'unpaid',
		note TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// Payments are append-only. fine_id is NULL for credit payments and is
	// kept NULL when a fine is hard-deleted so the financial record survives.
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		fine_id UUID REFERENCES fines(id) ON DELETE SET NULL,
		payer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount NUMERIC(12,2) NOT NULL,
		method VARCHAR(20) NOT NULL DEFAULT 'cash',
		note TEXT,
		recorded_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS fine_disputes (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		fine_id UUID NOT NULL REFERENCES fines(id) ON DELETE CASCADE,
		disputer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		reason TEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		votes_count INTEGER NOT NULL DEFAULT 0,
		votes_required INTEGER NOT NULL DEFAULT 1,
		resolved_by UUID REFERENCES users(id),
		resolution_note TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// At most one live dispute per fine.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_fine_disputes_pending
		ON fine_disputes(fine_id) WHERE status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS fine_dispute_votes (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		dispute_id UUID NOT NULL REFERENCES fine_disputes(id) ON DELETE CASCADE,
		voter_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		vote BOOLEAN NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(dispute_id, voter_id)
	)`,

	`CREATE TABLE IF NOT EXISTS activities (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		actor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_members_team_id ON team_members(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_members_user_id ON team_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_invites_team_id ON team_invites(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_invites_invitee_id ON team_invites(invitee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fine_rules_team_id ON fine_rules(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fines_team_id ON fines(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fines_offender_id ON fines(offender_id)`,
	// Distributed payments walk a payer's open fines oldest-first.
	`CREATE INDEX IF NOT EXISTS idx_fines_open ON fines(team_id, offender_id, created_at) WHERE status != 'paid'`,
	`CREATE INDEX IF NOT EXISTS idx_payments_team_id ON payments(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_fine_id ON payments(fine_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fine_disputes_fine_id ON fine_disputes(fine_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fine_dispute_votes_dispute_id ON fine_dispute_votes(dispute_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_team_id ON activities(team_id, created_at DESC)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
