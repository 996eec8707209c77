package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the enrollment store.
var Migrations = migrate.NewGroup("enroll")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_enroll_users",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS enroll_users (
    id          TEXT PRIMARY KEY,
    external_id TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL DEFAULT '',
    image_url   TEXT NOT NULL DEFAULT '',
    metadata    JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_enroll_users_external_id ON enroll_users (external_id) WHERE external_id != '';
CREATE INDEX IF NOT EXISTS idx_enroll_users_email ON enroll_users (email);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS enroll_users`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_enroll_courses",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS enroll_courses (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    thumbnail        TEXT NOT NULL DEFAULT '',
    educator_id      TEXT NOT NULL DEFAULT '',
    list_price_cents BIGINT NOT NULL DEFAULT 0,
    list_price_cur   TEXT NOT NULL DEFAULT '',
    discount_percent INT NOT NULL DEFAULT 0,
    published        BOOLEAN NOT NULL DEFAULT FALSE,
    chapters         JSONB NOT NULL DEFAULT '[]',
    metadata         JSONB NOT NULL DEFAULT '{}',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_enroll_courses_educator ON enroll_courses (educator_id);
CREATE INDEX IF NOT EXISTS idx_enroll_courses_published ON enroll_courses (published);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS enroll_courses`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_enroll_ratings",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS enroll_ratings (
    key       TEXT PRIMARY KEY,
    course_id TEXT NOT NULL DEFAULT '',
    user_id   TEXT NOT NULL DEFAULT '',
    score     INT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_enroll_ratings_course ON enroll_ratings (course_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS enroll_ratings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_enroll_purchases",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS enroll_purchases (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL DEFAULT '',
    course_id      TEXT NOT NULL DEFAULT '',
    amount_cents   BIGINT NOT NULL DEFAULT 0,
    amount_cur     TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'pending',
    correlation_id TEXT NOT NULL DEFAULT '',
    completed_at   TIMESTAMPTZ,
    metadata       JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_enroll_purchases_pair ON enroll_purchases (user_id, course_id, status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_enroll_purchases_correlation ON enroll_purchases (correlation_id) WHERE correlation_id != '';
CREATE INDEX IF NOT EXISTS idx_enroll_purchases_status_created ON enroll_purchases (status, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS enroll_purchases`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_enroll_enrollments",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS enroll_enrollments (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL DEFAULT '',
    course_id   TEXT NOT NULL DEFAULT '',
    purchase_id TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_enroll_enrollments_pair ON enroll_enrollments (user_id, course_id);
CREATE INDEX IF NOT EXISTS idx_enroll_enrollments_course ON enroll_enrollments (course_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS enroll_enrollments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_enroll_progress",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS enroll_progress (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL DEFAULT '',
    course_id   TEXT NOT NULL DEFAULT '',
    completed   BOOLEAN NOT NULL DEFAULT FALSE,
    lecture_ids JSONB NOT NULL DEFAULT '[]',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_enroll_progress_pair ON enroll_progress (user_id, course_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS enroll_progress`)
				return err
			},
		},
	)
}
