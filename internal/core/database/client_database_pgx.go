package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
	"github.com/markdave123-py/genai-chat/internal/models"
)

// ConnInfo describes how to reach the database.
type ConnInfo struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	// RootCert is a CA bundle path for verify-ca/verify-full.
	RootCert string
}

// DSN renders the connection info as a postgres URL.
func (c ConnInfo) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.RootCert != "" {
		q.Set("sslrootcert", c.RootCert)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// DatabaseClient implements core.TableStore on PostgreSQL.
type DatabaseClient struct {
	pool PgxPool
	log  *zap.Logger
}

// NewDatabaseClient opens a pool, runs pending migrations and returns the table store.
func NewDatabaseClient(ctx context.Context, info ConnInfo, log *zap.Logger) (*DatabaseClient, error) {
	if info.Host == "" {
		return nil, fmt.Errorf("database host is empty")
	}
	dsn := info.DSN()

	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}
	pcfg.MaxConns = 20
	pcfg.MaxConnLifetime = 30 * time.Minute
	pcfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	log.Info("database ready", zap.String("host", info.Host), zap.String("db", info.Name))
	return NewWithPool(pool, log), nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool PgxPool, log *zap.Logger) *DatabaseClient {
	return &DatabaseClient{pool: pool, log: log}
}

func (c *DatabaseClient) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

// CreateRow inserts one row.
func (c *DatabaseClient) CreateRow(ctx context.Context, table string, fields models.Row) error {
	if len(fields) == 0 {
		return errors.New("create row: no fields")
	}
	cols := sortedKeys(fields)
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		names[i] = quote(col)
		marks[i] = "$" + strconv.Itoa(i+1)
		args[i] = fields[col]
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table), strings.Join(names, ", "), strings.Join(marks, ", "))

	if _, err := c.pool.Exec(ctx, q, args...); err != nil {
		c.log.Error("insert failed", zap.String("table", table), zap.Error(err))
		return errs.Upstream("insert into", table, err)
	}
	c.log.Debug("row inserted", zap.String("table", table))
	return nil
}

// ReadAllRows returns every row of table in the order the database yields them.
func (c *DatabaseClient) ReadAllRows(ctx context.Context, table string) ([]models.Row, error) {
	rows, err := c.pool.Query(ctx, "SELECT * FROM "+quote(table))
	if err != nil {
		c.log.Error("select failed", zap.String("table", table), zap.Error(err))
		return nil, errs.Upstream("select from", table, err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	out := make([]models.Row, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errs.Upstream("scan", table, err)
		}
		r := make(models.Row, len(fds))
		for i, fd := range fds {
			r[fd.Name] = vals[i]
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		c.log.Error("select failed", zap.String("table", table), zap.Error(err))
		return nil, errs.Upstream("select from", table, err)
	}
	c.log.Debug("rows read", zap.String("table", table), zap.Int("count", len(out)))
	return out, nil
}

// UpdateRows sets columns on every row matching where.
func (c *DatabaseClient) UpdateRows(ctx context.Context, table string, set, where models.Row) error {
	if len(set) == 0 || len(where) == 0 {
		return errors.New("update rows: set and where must not be empty")
	}
	var (
		args    []any
		setSQL  []string
		whereSQ string
	)
	for _, col := range sortedKeys(set) {
		args = append(args, set[col])
		setSQL = append(setSQL, fmt.Sprintf("%s = $%d", quote(col), len(args)))
	}
	whereSQ, args = whereClause(where, args)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s", quote(table), strings.Join(setSQL, ", "), whereSQ)

	tag, err := c.pool.Exec(ctx, q, args...)
	if err != nil {
		c.log.Error("update failed", zap.String("table", table), zap.Error(err))
		return errs.Upstream("update", table, err)
	}
	c.log.Debug("rows updated", zap.String("table", table), zap.Int64("affected", tag.RowsAffected()))
	return nil
}

// DeleteRows removes every row matching where.
func (c *DatabaseClient) DeleteRows(ctx context.Context, table string, where models.Row) error {
	if len(where) == 0 {
		return errors.New("delete rows: where must not be empty")
	}
	whereSQL, args := whereClause(where, nil)
	q := fmt.Sprintf("DELETE FROM %s WHERE %s", quote(table), whereSQL)

	tag, err := c.pool.Exec(ctx, q, args...)
	if err != nil {
		c.log.Error("delete failed", zap.String("table", table), zap.Error(err))
		return errs.Upstream("delete from", table, err)
	}
	c.log.Debug("rows deleted", zap.String("table", table), zap.Int64("affected", tag.RowsAffected()))
	return nil
}

func whereClause(where models.Row, args []any) (string, []any) {
	parts := make([]string, 0, len(where))
	for _, col := range sortedKeys(where) {
		args = append(args, where[col])
		parts = append(parts, fmt.Sprintf("%s = $%d", quote(col), len(args)))
	}
	return strings.Join(parts, " AND "), args
}

func sortedKeys(r models.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

var _ core.TableStore = (*DatabaseClient)(nil)
