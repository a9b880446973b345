//go:build integration

package dbcheck

import (
	"context"
	"testing"

	"pgagent/internal/config"
	"pgagent/testing/testutil"
)

func TestCheck_RealPostgres(t *testing.T) {
	pg := testutil.StartPostgres(t)
	ctx := context.Background()
	if err := testutil.RunSQLString(ctx, pg.ConnString(), `
		CREATE TABLE users (id serial PRIMARY KEY, username text NOT NULL);
		INSERT INTO users (username) VALUES ('alice'), ('bob');
	`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	db := config.DBConfig{Host: pg.Host, Port: pg.Port, User: pg.User, Password: pg.Password, Name: pg.Name, ProbeTable: "users"}
	res := Check(ctx, db)
	if !res.OK || !res.Counted || res.Rows != 2 {
		t.Fatalf("Check = %+v", res)
	}

	db.ProbeTable = "no_such_table"
	res = Check(ctx, db)
	if !res.OK || res.Counted || res.Version == "" {
		t.Fatalf("fallback Check = %+v", res)
	}
}
