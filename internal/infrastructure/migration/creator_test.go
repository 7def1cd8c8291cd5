package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add payments table", "add_payments_table"},
		{"Add-Payments-Table", "add_payments_table"},
		{"ADD_PAYMENTS_TABLE", "add_payments_table"},
		{"add__payments__table", "add_payments_table"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestParseFileName(t *testing.T) {
	tests := []struct {
		file      string
		version   uint
		name      string
		direction string
		ok        bool
	}{
		{"000001_create_obligations.up.sql", 1, "create_obligations", "up", true},
		{"000012_add_index.down.sql", 12, "add_index", "down", true},
		{"000001_create_obligations.sql", 0, "", "", false},
		{"create_obligations.up.sql", 0, "", "", false},
		{"000001_notes.up.txt", 0, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, direction, ok := parseFileName(tt.file)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.direction, direction)
		})
	}
}

func TestCreateMigration(t *testing.T) {
	tmpDir := t.TempDir()

	first, err := CreateMigration(tmpDir, "add payment index", "Speeds up daily totals")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "000001_add_payment_index.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_add_payment_index.down.sql", filepath.Base(first.DownPath))

	content, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "-- Migration: add_payment_index\n"))
	assert.Contains(t, string(content), "-- Speeds up daily totals")

	second, err := CreateMigration(tmpDir, "Drop Legacy Column", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.Equal(t, "000002_drop_legacy_column.up.sql", filepath.Base(second.UpPath))

	_, err = CreateMigration(tmpDir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory is empty", func(t *testing.T) {
		migrations, err := ListMigrations(os.DirFS(t.TempDir()), "nope")
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("pairs and orders by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/000010_later.up.sql":    {},
			"m/000002_second.up.sql":   {},
			"m/000002_second.down.sql": {},
			"m/000001_first.up.sql":    {},
			"m/README.md":              {},
		}
		migrations, err := ListMigrations(fsys, "m")
		require.NoError(t, err)
		assert.Equal(t, []Migration{
			{Version: 1, Name: "first"},
			{Version: 2, Name: "second", HasDown: true},
			{Version: 10, Name: "later"},
		}, migrations)
	})
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := ListMigrations(Embedded(), EmbeddedDir)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, uint(i+1), m.Version, "versions are contiguous")
		assert.True(t, m.HasDown, "migration %d has a rollback", m.Version)
	}

	var schema strings.Builder
	for _, m := range migrations {
		matches, err := fs.Glob(Embedded(), fmt.Sprintf("%s/%0*d_*.up.sql", EmbeddedDir, versionWidth, m.Version))
		require.NoError(t, err)
		require.Len(t, matches, 1)
		content, err := Embedded().ReadFile(matches[0])
		require.NoError(t, err)
		schema.Write(content)
	}
	for _, table := range []string{"obligations", "payments", "outbox_events"} {
		assert.Contains(t, schema.String(), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestSource(t *testing.T) {
	files, root := Source("")
	assert.Equal(t, EmbeddedDir, root)
	embeddedList, err := ListMigrations(files, root)
	require.NoError(t, err)
	assert.NotEmpty(t, embeddedList)

	dir := t.TempDir()
	_, err = CreateMigration(dir, "add index", "")
	require.NoError(t, err)
	files, root = Source(dir)
	assert.Equal(t, ".", root)
	onDisk, err := ListMigrations(files, root)
	require.NoError(t, err)
	assert.Equal(t, []Migration{{Version: 1, Name: "add_index", HasDown: true}}, onDisk)

	assert.Equal(t, "embedded", displayDir(""))
	assert.Equal(t, dir, displayDir(dir))
}
