package dbagent

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"flowmind/internal/contextutil"
)

// connectTimeout bounds the initial reachability check of a user-supplied
// database.
const connectTimeout = 5 * time.Second

// Params describes a user-supplied database connection for the analysis agent.
type Params struct {
	Driver   string `json:"driver"` // "mysql" or "postgres"
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// Inspector holds an open connection to a user database and produces schema
// summaries used as chat context. Query correctness beyond introspection is
// out of scope; the database is an external collaborator.
type Inspector struct {
	db     *sql.DB
	driver string
	name   string
}

// Connect opens and verifies a connection to the described database.
func Connect(ctx context.Context, params Params) (*Inspector, error) {
	var driverName, dsn string
	switch strings.ToLower(params.Driver) {
	case "mysql":
		driverName = "mysql"
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", params.User, params.Password, params.Host, params.Port, params.Database)
	case "postgres", "postgresql":
		driverName = "pgx"
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s", params.User, params.Password, params.Host, params.Port, params.Database)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", params.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &Inspector{
		db:     db,
		driver: driverName,
		name:   params.Database,
	}, nil
}

// Close releases the underlying connection.
func (i *Inspector) Close() error {
	return i.db.Close()
}

// Inspect lists tables and their columns and renders the schema as text
// suitable for inclusion in a prompt.
func (i *Inspector) Inspect(ctx context.Context) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	tables, err := i.listTables(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Database %s schema:\n", i.name))
	for _, table := range tables {
		columns, err := i.listColumns(ctx, table)
		if err != nil {
			logger.WarnContext(ctx, "failed to describe table", "table", table, "error", err)
			continue
		}
		sb.WriteString(fmt.Sprintf("- table %s: %s\n", table, strings.Join(columns, ", ")))
	}

	logger.InfoContext(ctx, "database inspected", "database", i.name, "tables", len(tables))
	return sb.String(), nil
}

func (i *Inspector) listTables(ctx context.Context) ([]string, error) {
	var query string
	switch i.driver {
	case "mysql":
		query = "SHOW TABLES"
	default:
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'"
	}

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table names: %w", err)
	}
	return tables, nil
}

func (i *Inspector) listColumns(ctx context.Context, table string) ([]string, error) {
	var rows *sql.Rows
	var err error
	switch i.driver {
	case "mysql":
		rows, err = i.db.QueryContext(ctx,
			"SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?", table)
	default:
		rows, err = i.db.QueryContext(ctx,
			"SELECT column_name, data_type FROM information_schema.columns WHERE table_name = $1", table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []string
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, fmt.Sprintf("%s %s", name, dataType))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	return columns, nil
}
