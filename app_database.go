package webrouter

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseConfiguration describes the Postgres server whose pool is handed to route
// handlers through RouteRequest.Database.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DatabaseFromEnvironmentWithFallback reads DATABASE_HOST, DATABASE_PORT,
// DATABASE_USERNAME, DATABASE_PASSWORD and DATABASE_DATABASE, using the given values
// for whichever are unset or empty.
func DatabaseFromEnvironmentWithFallback(host string, port int, username string, password string, database string) DatabaseConfiguration {
	return DatabaseConfiguration{
		Host:     envOr("DATABASE_HOST", host),
		Port:     envOr("DATABASE_PORT", strconv.Itoa(port)),
		Username: envOr("DATABASE_USERNAME", username),
		Password: envOr("DATABASE_PASSWORD", password),
		Database: envOr("DATABASE_DATABASE", database),
	}
}

func envOr(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetConnectionString renders the configuration as a postgres:// URL with the
// credentials escaped.
func (self *DatabaseConfiguration) GetConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(self.Username, self.Password),
		Host:   self.Host + ":" + self.Port,
		Path:   "/" + self.Database,
	}
	return u.String()
}

// openDatabase creates the pool. pgxpool connects lazily, so an unreachable server
// only surfaces on first use by a handler.
func openDatabase(ctx context.Context, cfg DatabaseConfiguration) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database configuration: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	return pool, nil
}
