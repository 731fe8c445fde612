package database

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/trainingbot/core/logger"
)

const migrateComponent = "db.migrate"

// migration is one up file of the source, named <version>_<title>.up.sql.
type migration struct {
	version uint64
	name    string
}

// listMigrations returns the up files under dir ordered by version.
func listMigrations(fsys fs.FS, dir string) []migration {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil
	}
	var out []migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, migration{version: v, name: name})
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	return out
}

// between returns the names of migrations in (from, to].
func between(all []migration, from, to uint64) []string {
	var names []string
	for _, m := range all {
		if m.version > from && m.version <= to {
			names = append(names, m.name)
		}
	}
	return names
}

// RunMigrations applies every pending up migration found in fsys under
// the directory named after the driver, e.g. "sqlite/0001_trainings.up.sql".
func RunMigrations(ctx context.Context, cfg Config, fsys fs.FS) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	fail := func(event string, err error) error {
		logger.Error(ctx, migrateComponent, event,
			slog.String("status", "fail"),
			slog.String("driver", cfg.Driver),
			slog.String("err", err.Error()),
		)
		return err
	}

	files := listMigrations(fsys, cfg.Driver)
	m, err := newMigrator(ctx, cfg, fsys)
	if err != nil {
		return fail("init", fmt.Errorf("failed to initialize migrations: %w", err))
	}
	defer m.Close()

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fail("version", err)
	}
	if dirty {
		return fail("version", fmt.Errorf("schema version %d is dirty; fix it by hand and force the version", from))
	}

	start := time.Now()
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fail("apply", fmt.Errorf("migration execution failed: %w", err))
	}
	to, _, _ := m.Version()

	applied := between(files, uint64(from), uint64(to))
	status := "ok"
	if len(applied) == 0 {
		status = "skip"
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("driver", cfg.Driver),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.Took(start)),
	}
	if preview, truncated := logger.SummarizeStrings(applied, 6); preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview), slog.Bool("files_truncated", truncated))
	}
	logger.Info(ctx, migrateComponent, "summary", attrs...)
	return nil
}

// newMigrator opens a dedicated handle; closing the migrator closes it.
func newMigrator(ctx context.Context, cfg Config, fsys fs.FS) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("open migration source %q: %w", cfg.Driver, err)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if err := waitReady(ctx, db, cfg.Driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	var driver migratedb.Driver
	switch cfg.Driver {
	case DriverSQLite:
		driver, err = sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	default:
		driver, err = pgmigrate.WithInstance(db, &pgmigrate.Config{})
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init %s migration driver: %w", cfg.Driver, err)
	}
	return migrate.NewWithInstance("iofs", src, cfg.Driver, driver)
}
