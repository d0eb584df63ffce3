package testhelpers

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ApplyMigrations выполняет все *.up.sql из каталога в порядке имён
func ApplyMigrations(db *sql.DB, migrationsPath string) error {
	entries, err := os.ReadDir(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)

	return execFiles(db, migrationsPath, files, "migration")
}

// LoadFixtures выполняет перечисленные SQL-файлы фикстур в заданном порядке
func LoadFixtures(db *sql.DB, fixturesPath string, files []string) error {
	return execFiles(db, fixturesPath, files, "fixture")
}

func execFiles(db *sql.DB, dir string, files []string, kind string) error {
	for _, file := range files {
		content, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return fmt.Errorf("read %s %s: %w", kind, file, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply %s %s: %w", kind, file, err)
		}
	}
	return nil
}
