package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/kawilabs/go-kawi/env"
	_ "github.com/lib/pq"
)

func connectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		env.GetString("POSTGRES_HOST"),
		env.GetInt("POSTGRES_PORT"),
		env.GetString("POSTGRES_USER"),
		env.GetString("POSTGRES_PASSWORD"),
		env.GetString("POSTGRES_DB"),
	)
}

// MustCreateClient panics if a database connection cannot be established
func MustCreateClient() *sql.DB {
	db, err := sql.Open("postgres", connectionString())
	checkNoErr(err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	checkNoErr(db.PingContext(ctx))

	db.SetMaxOpenConns(env.GetInt("POSTGRES_MAX_OPEN_CONNS"))
	return db
}

// NewPgxClient creates a pgx connection pool
func NewPgxClient() *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.Connect(ctx, connectionString())
	checkNoErr(err)
	return pool
}

func checkNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
