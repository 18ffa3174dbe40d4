package services

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// PostgresConfig is the address and credentials used when probing a
// PostgreSQL service and when telling jobs where to find it.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     uint16 `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ConnString returns a postgres:// connection URL for this config.
func (c PostgresConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port))),
		Path:   "/" + c.Database,
	}
	return u.String()
}

func (c PostgresConfig) env() map[string]string {
	return map[string]string{
		"POSTGRES_HOST":     c.Host,
		"POSTGRES_PORT":     strconv.Itoa(int(c.Port)),
		"POSTGRES_USER":     c.User,
		"POSTGRES_PASSWORD": c.Password,
		"POSTGRES_DB":       c.Database,
		"DATABASE_URL":      c.ConnString(),
	}
}

// pgPinger is the subset of *pgx.Conn the prober needs, so tests can swap in
// a mocked connection.
type pgPinger interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var pgConnect = func(ctx context.Context, connString string) (pgPinger, error) {
	return pgx.Connect(ctx, connString)
}

// NewPostgresProber returns a prober that connects and pings a PostgreSQL
// server.
func NewPostgresProber(cfg PostgresConfig) Prober {
	return postgresProber{cfg}
}

type postgresProber struct {
	cfg PostgresConfig
}

func (p postgresProber) Probe(ctx context.Context) error {
	conn, err := pgConnect(ctx, p.cfg.ConnString())
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer conn.Close(ctx)
	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}
