package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// Postgres describes a throwaway test database.
type Postgres struct {
	Container string
	Host      string
	Port      string
	User      string
	Password  string
	Name      string
}

// ConnString returns a postgresql:// URI for p.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s/%s?sslmode=disable", p.User, p.Password, net.JoinHostPort(p.Host, p.Port), p.Name)
}

// StartPostgres starts a postgres container on a random host port, waits
// until it accepts connections and removes it when t ends. The image can be
// overridden with PGAGENT_TEST_POSTGRES_IMAGE.
func StartPostgres(t testing.TB) Postgres {
	t.Helper()
	RequireDocker(t)

	image := os.Getenv("PGAGENT_TEST_POSTGRES_IMAGE")
	if image == "" {
		image = "postgres:16-alpine"
	}
	p := Postgres{User: "postgres", Password: "pgagent-test", Name: "testdb"}
	p.Container = StartContainer(t,
		"-e", "POSTGRES_PASSWORD="+p.Password,
		"-e", "POSTGRES_DB="+p.Name,
		"-p", "127.0.0.1::5432",
		image,
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	addr, err := HostPort(ctx, p.Container, "5432/tcp")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	p.Host, p.Port, _ = net.SplitHostPort(addr)

	if err := WaitForPostgres(ctx, p.ConnString()); err != nil {
		t.Fatalf("postgres not ready: %v", err)
	}
	return p
}

// WaitForPostgres polls until connStr accepts a connection or ctx ends.
func WaitForPostgres(ctx context.Context, connStr string) error {
	var lastErr error
	for {
		conn, err := pgx.Connect(ctx, connStr)
		if err == nil {
			err = conn.Ping(ctx)
			conn.Close(ctx)
			if err == nil {
				return nil
			}
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// RunSQL executes a SQL script file against the database.
func RunSQL(ctx context.Context, connStr, scriptPath string) error {
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading SQL script %s: %v", scriptPath, err)
	}
	return RunSQLString(ctx, connStr, string(script))
}

// RunSQLString executes a SQL string against the database.
func RunSQLString(ctx context.Context, connStr, sql string) error {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)
	if _, err := conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}
