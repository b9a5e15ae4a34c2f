// Package migrations содержит SQL-схему сервиса и применяет ее к базе данных
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed *.sql
var files embed.FS

// Apply применяет все up-миграции по порядку. Миграции идемпотентны
func Apply(ctx context.Context, db *pgxpool.Pool) error {
	names, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Down возвращает SQL отката для указанной версии (например "000001")
func Down(version string) (string, error) {
	names, err := fs.Glob(files, version+"_*.down.sql")
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no down migration for version %s", version)
	}
	body, err := files.ReadFile(names[0])
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
