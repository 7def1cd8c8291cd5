package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// EmbeddedDir is the directory of the migrations compiled into the binary
const EmbeddedDir = "sql"

//go:embed sql/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary
func Embedded() embed.FS {
	return embedded
}

// Source returns the migration files under dir, or the embedded ones when dir is empty
func Source(dir string) (fs.FS, string) {
	if dir == "" {
		return embedded, EmbeddedDir
	}
	return os.DirFS(dir), "."
}

// Migrator applies the versioned postgres schema with golang-migrate.
// Sqlite databases are created by GORM AutoMigrate instead.
type Migrator struct {
	migrate *migrate.Migrate
	files   fs.FS
	root    string
	logger  *zap.Logger
}

// New creates a Migrator over db reading migrations from dir, or from the
// embedded set when dir is empty.
func New(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres migration driver: %w", err)
	}
	files, root := Source(dir)
	source, err := iofs.New(files, root)
	if err != nil {
		return nil, fmt.Errorf("open migrations in %s: %w", displayDir(dir), err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &Migrator{
		migrate: m,
		files:   files,
		root:    root,
		logger:  logger.Named("migration").With(zap.String("source", displayDir(dir))),
	}, nil
}

func displayDir(dir string) string {
	if dir == "" {
		return "embedded"
	}
	return dir
}

// apply runs one golang-migrate operation, treating "nothing to do" as success,
// and logs the schema version it leaves behind
func (m *Migrator) apply(op string, fn func() error, fields ...zap.Field) error {
	log := m.logger.With(append(fields, zap.String("operation", op))...)
	log.Info("migration started")

	if err := fn(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("schema already current")
			return nil
		}
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("migration finished", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down rolls every migration back
func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps applies n migrations forward, or -n backward when n is negative
func (m *Migrator) Steps(n int) error {
	return m.apply("step", func() error { return m.migrate.Steps(n) }, zap.Int("steps", n))
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.apply("goto", func() error { return m.migrate.Migrate(version) }, zap.Uint("target_version", version))
}

// Version returns the applied schema version, zero when nothing was applied
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. It is only
// for clearing the dirty flag a failed migration leaves.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Status pairs a known migration with whether the database has it
type Status struct {
	Migration
	Applied bool
}

// Status lists every migration of the source with its applied state
func (m *Migrator) Status() ([]Status, bool, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, false, err
	}
	known, err := ListMigrations(m.files, m.root)
	if err != nil {
		return nil, false, err
	}
	statuses := make([]Status, len(known))
	for i, mig := range known {
		statuses[i] = Status{Migration: mig, Applied: mig.Version <= version}
	}
	return statuses, dirty, nil
}

// Close releases the source and the database driver
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
