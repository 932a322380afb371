package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/quadratic-poll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/quadratic-poll/internal/config"
)

func main() {
	logger := config.NewLogger("info")
	log := logger.WithField("component", "migrations")

	if len(os.Args) < 2 {
		log.Fatal("a migration name is required, e.g. init.up")
	}
	migrationName := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	db, err := postgres.Open(context.Background(), cfg.Postgres.DSN(), 1, 1, logger)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	basePath := filepath.Join(".", "internal", "adapters", "repository", "postgres", "migrations")
	fileName, err := migrationFilePath(basePath, migrationName)
	if err != nil {
		log.WithError(err).Fatal("failed to locate migration")
	}

	fileContent, err := os.ReadFile(filepath.Join(basePath, fileName))
	if err != nil {
		log.WithError(err).Fatal("failed to read migration")
	}

	if _, err = db.Exec(string(fileContent)); err != nil {
		log.WithError(err).WithField("file", fileName).Fatal("failed to execute SQL file")
	}

	log.WithField("file", fileName).Info("migration file executed successfully")
}

func migrationFilePath(basePath string, migrationName string) (string, error) {
	regex, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(migrationName)))
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	files, err := os.ReadDir(basePath)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}

		if regex.MatchString(f.Name()) {
			return f.Name(), nil
		}
	}

	return "", fmt.Errorf("migration file %q not found", migrationName)
}
