package database

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// gooseLogger routes goose output through zap
type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) { l.sugar.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.sugar.Fatalf(format, v...) }

// Migrate applies all pending embedded migrations
func (db *DB) Migrate() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{sugar: db.logger.Named("migrate").Sugar()})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	version, err := goose.GetDBVersion(db.DB)
	if err != nil {
		return fmt.Errorf("goose version: %w", err)
	}
	db.logger.Info("Database schema up to date", zap.Int64("version", version))

	return nil
}
