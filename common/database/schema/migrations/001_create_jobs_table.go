package migrations

import "github.com/nathangreen1632/CareerGistPRO/common/database/schema"

var CreateJobsTable = schema.Migration{
	Version:     1,
	Description: "Create jobs table",
	Up: `
		CREATE TABLE IF NOT EXISTS jobs (
			id            UUID PRIMARY KEY,
			source_id     TEXT NOT NULL,
			title         TEXT NOT NULL DEFAULT '',
			company       TEXT NOT NULL DEFAULT '',
			location      TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			summary       TEXT NOT NULL DEFAULT '',
			apply_url     TEXT NOT NULL DEFAULT '',
			logo_url      TEXT NOT NULL DEFAULT '',
			posted_at     TIMESTAMPTZ,
			salary_min    DOUBLE PRECISION,
			salary_max    DOUBLE PRECISION,
			salary_period TEXT NOT NULL DEFAULT '',
			benefits      TEXT[] NOT NULL DEFAULT '{}',
			saved         BOOLEAN NOT NULL DEFAULT false,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT jobs_source_id_key UNIQUE (source_id)
		);
		CREATE INDEX IF NOT EXISTS jobs_unseen_recent_idx ON jobs (created_at DESC, id) WHERE saved = false;
	`,
	Down: `DROP TABLE IF EXISTS jobs`,
}
