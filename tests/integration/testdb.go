// Package integration runs the installments service against a real PostgreSQL
// database started with testcontainers. The schema comes from the embedded
// golang-migrate migrations, the same files the service applies in production.
package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/backoffice/installments/internal/infrastructure/config"
	"github.com/backoffice/installments/internal/infrastructure/migration"
	"github.com/backoffice/installments/internal/infrastructure/persistence"
	"github.com/backoffice/installments/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	postgresImage = "postgres:16-alpine"
	testDBName    = "installments_test"
)

// postgresServer is the container every test in the package shares. It is
// started and migrated once; a failed start is remembered so later tests
// fail fast instead of retrying.
type postgresServer struct {
	mu        sync.Mutex
	container *tcpostgres.PostgresContainer
	cfg       config.DatabaseConfig
	tables    []string
	err       error
}

var server postgresServer

// TestDB is one test's connection to the shared database
type TestDB struct {
	DB     *gorm.DB
	tables []string
	t      *testing.T
}

// NewSharedTestDB connects to the shared PostgreSQL container, starting and
// migrating it on first use, and empties every table so the test starts clean.
// The connection is opened the way the server opens it.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	cfg, tables, err := server.ensure(context.Background())
	require.NoError(t, err, "shared PostgreSQL container unavailable")

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	database, err := persistence.NewDatabase(&cfg, persistence.WithGormLogger(logger.Default.LogMode(level)))
	require.NoError(t, err, "connect to test database")
	t.Cleanup(func() { _ = database.Close() })

	tdb := &TestDB{DB: database.DB, tables: tables, t: t}
	tdb.CleanTables()
	return tdb
}

// CleanTables empties every table the models map to
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	stmt := "TRUNCATE TABLE " + strings.Join(tdb.tables, ", ") + " RESTART IDENTITY CASCADE"
	require.NoError(tdb.t, tdb.DB.Exec(stmt).Error, "truncate tables")
}

func (s *postgresServer) ensure(ctx context.Context) (config.DatabaseConfig, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.container == nil && s.err == nil {
		s.err = s.start(ctx)
	}
	return s.cfg, s.tables, s.err
}

func (s *postgresServer) start(ctx context.Context) error {
	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return fmt.Errorf("start postgres: %w", err)
	}
	s.container = container

	host, err := container.Host(ctx)
	if err != nil {
		return fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return fmt.Errorf("container port: %w", err)
	}
	s.cfg = config.DatabaseConfig{
		Driver:          persistence.DriverPostgres,
		Host:            host,
		Port:            port.Int(),
		User:            "postgres",
		Password:        "postgres",
		DBName:          testDBName,
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
	}

	database, err := persistence.NewDatabase(&s.cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrateSchema(database); err != nil {
		return err
	}
	s.tables, err = tableNames(database.DB)
	return err
}

// migrateSchema applies the embedded migrations and checks none is left pending
func migrateSchema(database *persistence.Database) error {
	sqlDB, err := database.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", nil)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	statuses, dirty, err := m.Status()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("schema left dirty after migrating")
	}
	for _, st := range statuses {
		if !st.Applied {
			return fmt.Errorf("migration %d %s still pending", st.Version, st.Name)
		}
	}
	return nil
}

// tableNames resolves the table of every model, children first
func tableNames(db *gorm.DB) ([]string, error) {
	all := models.AllModels()
	tables := make([]string, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(all[i]); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", all[i], err)
		}
		tables = append(tables, stmt.Schema.Table)
	}
	return tables, nil
}

// CleanupSharedContainer terminates the shared container.
// Call it from TestMain after the tests have run.
func CleanupSharedContainer() {
	server.mu.Lock()
	defer server.mu.Unlock()

	if server.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = server.container.Terminate(ctx)
	server.container = nil
	server.err = nil
}
