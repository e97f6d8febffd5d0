package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Warrant store (PostgreSQL).
var Migrations = migrate.NewGroup("warrant")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_objects",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS warrant_objects (
    pid                 TEXT PRIMARY KEY,
    series_id           TEXT NOT NULL DEFAULT '',
    format_id           TEXT NOT NULL,
    checksum_algorithm  TEXT NOT NULL,
    checksum_value      TEXT NOT NULL,
    size                BIGINT NOT NULL DEFAULT 0,
    submitter           TEXT NOT NULL DEFAULT '',
    rights_holder       TEXT NOT NULL,
    origin_node         TEXT NOT NULL DEFAULT '',
    authoritative_node  TEXT NOT NULL DEFAULT '',
    serial_version      BIGINT NOT NULL DEFAULT 1,
    obsoletes           TEXT NOT NULL DEFAULT '',
    obsoleted_by        TEXT NOT NULL DEFAULT '',
    archived            BOOLEAN NOT NULL DEFAULT FALSE,
    deleted             BOOLEAN NOT NULL DEFAULT FALSE,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    modified_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_warrant_objects_series ON warrant_objects (series_id);
CREATE INDEX IF NOT EXISTS idx_warrant_objects_format ON warrant_objects (format_id);
CREATE INDEX IF NOT EXISTS idx_warrant_objects_rights ON warrant_objects (rights_holder);
CREATE INDEX IF NOT EXISTS idx_warrant_objects_modified ON warrant_objects (modified_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS warrant_objects`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_series",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS warrant_series (
    sid     TEXT PRIMARY KEY,
    pid     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_warrant_series_pid ON warrant_series (pid);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS warrant_series`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_access_rules",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS warrant_access_rules (
    id          TEXT PRIMARY KEY,
    pid         TEXT NOT NULL,
    subjects    JSONB NOT NULL DEFAULT '[]',
    permission  TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_warrant_rules_pid ON warrant_access_rules (pid);
CREATE INDEX IF NOT EXISTS idx_warrant_rules_subjects ON warrant_access_rules USING gin (subjects);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS warrant_access_rules`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_replicas",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS warrant_replicas (
    id              TEXT PRIMARY KEY,
    pid             TEXT NOT NULL,
    node_id         TEXT NOT NULL,
    status          TEXT NOT NULL,
    last_verified   TIMESTAMPTZ NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(pid, node_id)
);

CREATE INDEX IF NOT EXISTS idx_warrant_replicas_pid ON warrant_replicas (pid);
CREATE INDEX IF NOT EXISTS idx_warrant_replicas_status ON warrant_replicas (status, last_verified);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS warrant_replicas`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_events",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS warrant_events (
    id          TEXT PRIMARY KEY,
    pid         TEXT NOT NULL,
    node_id     TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL,
    subject     TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL DEFAULT '',
    request_ip  TEXT NOT NULL DEFAULT '',
    user_agent  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_warrant_events_pid ON warrant_events (pid);
CREATE INDEX IF NOT EXISTS idx_warrant_events_type ON warrant_events (type);
CREATE INDEX IF NOT EXISTS idx_warrant_events_subject ON warrant_events (subject);
CREATE INDEX IF NOT EXISTS idx_warrant_events_created ON warrant_events (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS warrant_events`)
				return err
			},
		},
	)
}
