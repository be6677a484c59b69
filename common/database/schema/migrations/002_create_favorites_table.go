package migrations

import "github.com/nathangreen1632/CareerGistPRO/common/database/schema"

// Favorites rows are snapshots; they reference jobs but do not follow later edits.
var CreateFavoritesTable = schema.Migration{
	Version:     2,
	Description: "Create favorites table",
	Up: `
		CREATE TABLE IF NOT EXISTS favorites (
			user_id       TEXT NOT NULL,
			job_id        UUID NOT NULL REFERENCES jobs (id),
			title         TEXT NOT NULL DEFAULT '',
			company       TEXT NOT NULL DEFAULT '',
			location      TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			summary       TEXT NOT NULL DEFAULT '',
			salary_min    DOUBLE PRECISION,
			salary_max    DOUBLE PRECISION,
			salary_period TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, job_id)
		)
	`,
	Down: `DROP TABLE IF EXISTS favorites`,
}

// All lists every migration in version order.
var All = []schema.Migration{
	CreateJobsTable,
	CreateFavoritesTable,
}
