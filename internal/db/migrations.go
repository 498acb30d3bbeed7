package db

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrMigrationChecksumMismatch = errors.New("applied migration was modified")

var (
	migrationNamePattern = regexp.MustCompile(`^(\d+)_[\w-]+\.sql$`)
	addColumnPattern     = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+("?[\w]+"?)\s+ADD\s+COLUMN\s+("?[\w]+"?)`)
)

type schemaMigration struct {
	Version  string
	Order    int
	Name     string
	SQL      string
	Checksum string
}

// migrator applies forward-only SQL files from source, recording each version
// with the checksum of its text.
type migrator struct {
	database *gorm.DB
	source   fs.FS
	logger   logrus.FieldLogger
}

func newMigrator(database *gorm.DB, source fs.FS, logger logrus.FieldLogger) migrator {
	return migrator{database: database, source: source, logger: logger}
}

func (m migrator) run() error {
	if err := ensureSchemaMigrationsTable(m.database); err != nil {
		return err
	}

	pending, err := readMigrations(m.source)
	if err != nil {
		return err
	}
	applied, err := m.appliedChecksums()
	if err != nil {
		return err
	}

	for _, migration := range pending {
		checksum, done := applied[migration.Version]
		if done {
			if checksum != "" && checksum != migration.Checksum {
				return fmt.Errorf("%w: %s", ErrMigrationChecksumMismatch, migration.Name)
			}
			continue
		}
		if err := m.apply(migration); err != nil {
			return err
		}
		m.logger.WithField("migration", migration.Name).Info("migration applied")
	}
	return nil
}

func ensureSchemaMigrationsTable(database *gorm.DB) error {
	err := database.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  checksum TEXT NOT NULL DEFAULT '',
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`).Error
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func readMigrations(source fs.FS) ([]schemaMigration, error) {
	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[string]string, len(names))
	migrations := make([]schemaMigration, 0, len(names))
	for _, name := range names {
		match := migrationNamePattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version := match[1]
		if previous, ok := byVersion[version]; ok {
			return nil, fmt.Errorf("migration version %s used by %s and %s", version, previous, name)
		}
		byVersion[version] = name

		order, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version: %w", name, err)
		}
		body, err := fs.ReadFile(source, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(body)
		migrations = append(migrations, schemaMigration{
			Version:  version,
			Order:    order,
			Name:     name,
			SQL:      string(body),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Order < migrations[j].Order
	})
	return migrations, nil
}

func (m migrator) appliedChecksums() (map[string]string, error) {
	var rows []struct {
		Version  string `gorm:"column:version"`
		Checksum string `gorm:"column:checksum"`
	}
	if err := m.database.Raw(`SELECT version, checksum FROM schema_migrations`).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}

	applied := make(map[string]string, len(rows))
	for _, row := range rows {
		applied[row.Version] = row.Checksum
	}
	return applied, nil
}

func (m migrator) apply(migration schemaMigration) error {
	statements := splitSQLStatements(migration.SQL)
	if len(statements) == 0 {
		return fmt.Errorf("migration %s is empty", migration.Name)
	}

	return m.database.Transaction(func(tx *gorm.DB) error {
		for _, statement := range statements {
			exists, err := columnAlreadyExists(tx, statement)
			if err != nil {
				return fmt.Errorf("migration %s: %w", migration.Name, err)
			}
			if exists {
				continue
			}
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("migration %s: %q: %w", migration.Name, statement, err)
			}
		}

		return tx.Exec(
			`INSERT INTO schema_migrations(version, name, checksum) VALUES (?, ?, ?)`,
			migration.Version,
			migration.Name,
			migration.Checksum,
		).Error
	})
}

// splitSQLStatements drops "--" comment lines and splits on semicolons.
func splitSQLStatements(text string) []string {
	var kept strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept.WriteString(line)
		kept.WriteByte('\n')
	}

	var statements []string
	for _, part := range strings.Split(kept.String(), ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

// columnAlreadyExists lets ADD COLUMN statements be replayed against a schema
// that already has the column.
func columnAlreadyExists(database *gorm.DB, statement string) (bool, error) {
	match := addColumnPattern.FindStringSubmatch(strings.TrimSpace(statement))
	if match == nil {
		return false, nil
	}
	table := strings.Trim(match[1], `"`)
	column := strings.Trim(match[2], `"`)

	var columns []struct {
		Name string `gorm:"column:name"`
	}
	if err := database.Raw(fmt.Sprintf(`PRAGMA table_info("%s")`, table)).Scan(&columns).Error; err != nil {
		return false, fmt.Errorf("inspect table %s: %w", table, err)
	}
	for _, existing := range columns {
		if strings.EqualFold(existing.Name, column) {
			return true, nil
		}
	}
	return false, nil
}
