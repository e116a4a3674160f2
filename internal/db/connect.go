package db

import (
	"context"
	"time"

	"mindcascade/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens the progress database. An empty dsn means no durable storage
// and returns nil.
func Connect(dsn string) *pgxpool.Pool {
	if dsn == "" {
		logger.Info("DATABASE_URL not set, progress kept in memory")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Fatal("failed to create database pool", "error", err)
	}

	if err := db.Ping(ctx); err != nil {
		logger.Fatal("failed to ping database", "error", err)
	}

	logger.Info("database connected")
	return db
}
