// Package archive persists finished run records. The queue keeps its own
// in-memory view; this is durable retention only, written once per run on
// the terminal transition.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-viper/mapstructure/v2"

	// import the postgres driver - "pgx"
	_ "github.com/jackc/pgx/v5/stdlib"

	// import the sqlite driver - "sqlite"
	_ "modernc.org/sqlite"

	"github.com/eval-bench/eval-bench/internal/abstractions"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/eval-bench/eval-bench/pkg/api"
)

const (
	// These are the only drivers currently supported
	SQLITE_DRIVER   = "sqlite"
	POSTGRES_DRIVER = "pgx"
)

type SQLDatabaseConfig struct {
	Driver          string         `mapstructure:"driver"`
	URL             string         `mapstructure:"url"`
	ConnMaxLifetime *time.Duration `mapstructure:"conn_max_lifetime,omitempty"`
	MaxIdleConns    *int           `mapstructure:"max_idle_conns,omitempty"`
	MaxOpenConns    *int           `mapstructure:"max_open_conns,omitempty"`
}

type SQLArchive struct {
	sqlConfig *SQLDatabaseConfig
	pool      *sql.DB
	logger    *slog.Logger
}

// NewArchive creates the SQL archive from the database config section.
// A nil config disables archiving and returns a nil Archive.
func NewArchive(databaseConfig *map[string]any, logger *slog.Logger) (abstractions.Archive, error) {
	if databaseConfig == nil {
		logger.Info("No database configured, run archive disabled")
		return nil, nil
	}

	var sqlConfig SQLDatabaseConfig
	if err := mapstructure.Decode(*databaseConfig, &sqlConfig); err != nil {
		return nil, err
	}

	// check that the driver is supported
	switch sqlConfig.Driver {
	case SQLITE_DRIVER, POSTGRES_DRIVER:
	default:
		return nil, getUnsupportedDriverError(sqlConfig.Driver)
	}

	logger.Info("Creating run archive", "driver", sqlConfig.Driver, "url", sqlConfig.URL)

	pool, err := sql.Open(sqlConfig.Driver, sqlConfig.URL)
	if err != nil {
		return nil, err
	}

	if sqlConfig.ConnMaxLifetime != nil {
		pool.SetConnMaxLifetime(*sqlConfig.ConnMaxLifetime)
	}
	if sqlConfig.MaxIdleConns != nil {
		pool.SetMaxIdleConns(*sqlConfig.MaxIdleConns)
	}
	if sqlConfig.MaxOpenConns != nil {
		pool.SetMaxOpenConns(*sqlConfig.MaxOpenConns)
	}

	a := &SQLArchive{
		sqlConfig: &sqlConfig,
		pool:      pool,
		logger:    logger,
	}

	// ping the database to verify the DSN provided by the user is valid and the server is accessible
	if err := a.Ping(1 * time.Second); err != nil {
		return nil, err
	}

	// ensure the schema is created
	if err := a.ensureSchema(); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *SQLArchive) GetDatasourceName() string {
	return a.sqlConfig.Driver
}

func (a *SQLArchive) Ping(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.pool.PingContext(ctx)
}

func (a *SQLArchive) ensureSchema() error {
	schema, err := schemaForDriver(a.sqlConfig.Driver)
	if err != nil {
		return err
	}
	_, err = a.pool.Exec(schema)
	return err
}

// SaveRun upserts the record; a run forced terminal by the cancellation
// grace timer gets written again when its executor finally returns.
func (a *SQLArchive) SaveRun(ctx context.Context, record *api.RunRecord) error {
	entityJSON, err := json.Marshal(record)
	if err != nil {
		return serviceerrors.NewServiceError(messages.DatabaseOperationFailed, "Type", "run", "ResourceId", record.ID, "Error", err.Error())
	}
	statement, err := createUpsertRunStatement(a.sqlConfig.Driver)
	if err != nil {
		return err
	}
	var completedAt any
	if record.CompletedAt != nil {
		completedAt = *record.CompletedAt
	}
	_, err = a.pool.ExecContext(ctx, statement, record.ID, string(record.Status), record.CreatedAt, completedAt, string(entityJSON))
	if err != nil {
		a.logger.Error("Failed to save run to archive", "id", record.ID, "error", err.Error())
		return serviceerrors.NewServiceError(messages.DatabaseOperationFailed, "Type", "run", "ResourceId", record.ID, "Error", err.Error())
	}
	return nil
}

func (a *SQLArchive) GetRun(ctx context.Context, id string) (*api.RunRecord, error) {
	statement, err := createGetRunStatement(a.sqlConfig.Driver)
	if err != nil {
		return nil, err
	}

	var entityJSON string
	err = a.pool.QueryRowContext(ctx, statement, id).Scan(&entityJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, serviceerrors.NewServiceError(messages.ResourceNotFound, "Type", "archived run", "ResourceId", id)
		}
		return nil, serviceerrors.NewServiceError(messages.DatabaseOperationFailed, "Type", "archived run", "ResourceId", id, "Error", err.Error())
	}

	var record api.RunRecord
	if err := json.Unmarshal([]byte(entityJSON), &record); err != nil {
		return nil, serviceerrors.NewServiceError(messages.JSONUnmarshalFailed, "Type", "archived run", "Error", err.Error())
	}
	return &record, nil
}

func (a *SQLArchive) ListRuns(ctx context.Context, limit int, offset int, statusFilter string) (*abstractions.QueryResults[api.RunRecord], error) {
	countStatement, countArgs, err := createCountRunsStatement(a.sqlConfig.Driver, statusFilter)
	if err != nil {
		return nil, err
	}
	var total int
	if err := a.pool.QueryRowContext(ctx, countStatement, countArgs...).Scan(&total); err != nil {
		return nil, serviceerrors.NewServiceError(messages.QueryFailed, "Type", "archived runs", "Error", err.Error())
	}

	listStatement, listArgs, err := createListRunsStatement(a.sqlConfig.Driver, limit, offset, statusFilter)
	if err != nil {
		return nil, err
	}
	rows, err := a.pool.QueryContext(ctx, listStatement, listArgs...)
	if err != nil {
		return nil, serviceerrors.NewServiceError(messages.QueryFailed, "Type", "archived runs", "Error", err.Error())
	}
	defer rows.Close()

	results := &abstractions.QueryResults[api.RunRecord]{TotalStored: total}
	for rows.Next() {
		var entityJSON string
		if err := rows.Scan(&entityJSON); err != nil {
			return nil, serviceerrors.NewServiceError(messages.QueryFailed, "Type", "archived runs", "Error", err.Error())
		}
		var record api.RunRecord
		if err := json.Unmarshal([]byte(entityJSON), &record); err != nil {
			return nil, serviceerrors.NewServiceError(messages.JSONUnmarshalFailed, "Type", "archived run", "Error", err.Error())
		}
		results.Items = append(results.Items, record)
	}
	if err := rows.Err(); err != nil {
		return nil, serviceerrors.NewServiceError(messages.QueryFailed, "Type", "archived runs", "Error", err.Error())
	}
	return results, nil
}

func (a *SQLArchive) Close() error {
	return a.pool.Close()
}
