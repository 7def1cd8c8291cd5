package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/backoffice/installments/internal/infrastructure/config"
	"github.com/backoffice/installments/internal/infrastructure/logger"
	"github.com/backoffice/installments/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// sourceDir is where create writes new migrations; the same files are embedded into the binary
const sourceDir = "internal/infrastructure/migration/sql"

var errUsage = errors.New("usage")

// env is what a command runs with. migrator is nil for file-only commands.
type env struct {
	dir      string
	log      *zap.Logger
	migrator *migration.Migrator
}

type command struct {
	usage   string
	needsDB bool
	minArgs int
	run     func(e *env, args []string) error
}

var commands = map[string]command{
	"up":      {usage: "up", needsDB: true, run: func(e *env, _ []string) error { return e.migrator.Up() }},
	"down":    {usage: "down", needsDB: true, run: func(e *env, _ []string) error { return e.migrator.Down() }},
	"step":    {usage: "step <n>", needsDB: true, minArgs: 1, run: runStep},
	"goto":    {usage: "goto <version>", needsDB: true, minArgs: 1, run: runGoTo},
	"force":   {usage: "force <version>", needsDB: true, minArgs: 1, run: runForce},
	"version": {usage: "version", needsDB: true, run: runVersion},
	"status":  {usage: "status", needsDB: true, run: runStatus},
	"create":  {usage: "create <name> [description]", minArgs: 1, run: runCreate},
	"list":    {usage: "list", run: runList},
}

func main() {
	dir := flag.String("path", "", "migrations directory (default: the migrations embedded in the binary)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	name, args := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok || len(args) < cmd.minArgs {
		printUsage()
		os.Exit(2)
	}

	logCfg := logger.ForEnvironment(os.Getenv("INST_APP_ENV"))
	logCfg.Level = *logLevel
	logCfg.Service = "installments-migrate"
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cmd, name, *dir, args, log); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "usage: migrate %s\n", cmd.usage)
			os.Exit(2)
		}
		log.Error("migrate command failed", zap.String("command", name), zap.Error(err))
		os.Exit(1)
	}
}

func run(cmd command, name, dir string, args []string, log *zap.Logger) error {
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		dir = abs
	}
	e := &env{dir: dir, log: log.With(zap.String("command", name))}
	if !cmd.needsDB {
		return cmd.run(e, args)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("versioned migrations run against postgres only, got driver %q; sqlite schemas are created by the server", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	e.migrator, err = migration.New(db, dir, log)
	if err != nil {
		return err
	}
	defer e.migrator.Close()
	return cmd.run(e, args)
}

func runStep(e *env, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n == 0 {
		return errUsage
	}
	return e.migrator.Steps(n)
}

func runGoTo(e *env, args []string) error {
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return errUsage
	}
	return e.migrator.GoTo(uint(version))
}

func runForce(e *env, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return errUsage
	}
	return e.migrator.Force(version)
}

func runVersion(e *env, _ []string) error {
	version, dirty, err := e.migrator.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		e.log.Info("no migrations applied")
		return nil
	}
	e.log.Info("current schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func runStatus(e *env, _ []string) error {
	statuses, dirty, err := e.migrator.Status()
	if err != nil {
		return err
	}
	if dirty {
		e.log.Warn("schema is dirty; fix the failed migration and run force <version>")
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATE\tROLLBACK")
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%06d\t%s\t%s\t%t\n", s.Version, s.Name, state, s.HasDown)
	}
	return w.Flush()
}

func runCreate(e *env, args []string) error {
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	dir := e.dir
	if dir == "" {
		dir = sourceDir
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	e.log.Info("migration created",
		zap.Uint("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(e *env, _ []string) error {
	migrations, err := migration.ListMigrations(migration.Source(e.dir))
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		e.log.Info("no migrations found")
		return nil
	}
	for _, m := range migrations {
		rollback := ""
		if !m.HasDown {
			rollback = " (no rollback)"
		}
		fmt.Printf("%06d %s%s\n", m.Version, m.Name, rollback)
	}
	return nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Installments schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    apply all pending migrations
  down                  roll back all migrations
  step <n>              apply n migrations, negative n rolls back
  goto <version>        migrate up or down to version
  version               print the applied version
  status                list migrations with their applied state
  force <version>       record version without running it (repairs a dirty schema)
  create <name> [desc]  write a new up/down pair
  list                  list the available migrations

Flags:
  -path string          migrations directory (default: embedded; create writes to `+sourceDir+`)
  -log-level string     debug, info, warn or error (default: info)

The database is configured like the server:
  INST_DATABASE_HOST, INST_DATABASE_PORT, INST_DATABASE_USER,
  INST_DATABASE_PASSWORD, INST_DATABASE_DBNAME, INST_DATABASE_SSLMODE

Examples:
  migrate up
  migrate step -1
  migrate create add_payment_date_index "Index payments by date for daily totals"
`)
}
