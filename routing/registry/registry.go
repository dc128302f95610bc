package registry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/geosrv/live-dataset-routing-go/routing"
	"github.com/geosrv/live-dataset-routing-go/routing/registry/internal/adapters"
)

const (
	defaultSnapshotTableName = "snapshots"
	gateTableName            = "query_gate"

	dialectPostgres = "postgres"

	colSnapshotID  = "snapshot_id"
	colRegionName  = "region_name"
	colVersion     = "version"
	colPath        = "path"
	colPublishedAt = "published_at"

	logMsgBuildQueryFailed    = "failed to build registry query"
	logMsgRegistryQueryFailed = "registry query execution failed"
	logMsgCloseRowsFailed     = "failed to close registry rows"
	logMsgScanRowFailed       = "failed to scan registry row"
	logMsgSnapshotPublished   = "snapshot published"
	logAttrError              = "error"
	logAttrRegion             = "region"
	logAttrVersion            = "version"
	logAttrPath               = "path"
)

var (
	// ErrNilDatabaseConnection is returned when a registry is built around a nil connection.
	ErrNilDatabaseConnection = errors.New("nil database connection supplied")

	// ErrEmptySnapshotTableName is returned when an empty snapshot table name is supplied.
	ErrEmptySnapshotTableName = errors.New("empty snapshot table name supplied")

	// ErrEmptyRegionSupplied is returned when a registry operation is called without a region name.
	ErrEmptyRegionSupplied = errors.New("empty region name supplied")

	// ErrNoSnapshotForRegion is returned when no snapshot has been published for a region.
	ErrNoSnapshotForRegion = errors.New("no snapshot published for region")

	// ErrQueryingRegistryFailed is returned when a registry read fails.
	ErrQueryingRegistryFailed = errors.New("querying snapshot registry failed")

	// ErrPublishingSnapshotFailed is returned when inserting a snapshot row fails.
	ErrPublishingSnapshotFailed = errors.New("publishing snapshot failed")

	// ErrScanningRegistryRowFailed is returned when a registry row cannot be scanned.
	ErrScanningRegistryRowFailed = errors.New("scanning registry row failed")
)

// SnapshotRecord is one published snapshot: where its file lives and which
// version of the region it carries.
type SnapshotRecord struct {
	SnapshotID  uuid.UUID
	RegionName  string
	Version     uint64
	Path        string
	PublishedAt time.Time
}

// Registry reads and writes the snapshot registry table. It leverages a
// database adapter and supports customizable logging and table configuration.
type Registry struct {
	db                adapters.DBAdapter
	snapshotTableName string
	logger            routing.Logger
}

// Option defines a functional option for configuring the Registry.
type Option func(*Registry) error

// WithTableName sets the snapshot table name for the Registry.
func WithTableName(tableName string) Option {
	return func(r *Registry) error {
		if tableName == "" {
			return ErrEmptySnapshotTableName
		}

		r.snapshotTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Registry.
func WithLogger(logger routing.Logger) Option {
	return func(r *Registry) error {
		r.logger = logger
		return nil
	}
}

// NewRegistryFromPGXPool creates a new Registry using a pgx pool with optional configuration.
func NewRegistryFromPGXPool(pool *pgxpool.Pool, options ...Option) (Registry, error) {
	if pool == nil {
		return Registry{}, ErrNilDatabaseConnection
	}

	return buildRegistry(adapters.NewPGXAdapter(pool), options)
}

// NewRegistryFromSQLDB creates a new Registry using a sql.DB with optional configuration.
func NewRegistryFromSQLDB(db *sql.DB, options ...Option) (Registry, error) {
	if db == nil {
		return Registry{}, ErrNilDatabaseConnection
	}

	return buildRegistry(adapters.NewSQLAdapter(db), options)
}

// NewRegistryFromSQLX creates a new Registry using a sqlx.DB with optional configuration.
func NewRegistryFromSQLX(db *sqlx.DB, options ...Option) (Registry, error) {
	if db == nil {
		return Registry{}, ErrNilDatabaseConnection
	}

	return buildRegistry(adapters.NewSQLXAdapter(db), options)
}

func buildRegistry(db adapters.DBAdapter, options []Option) (Registry, error) {
	r := Registry{
		db:                db,
		snapshotTableName: defaultSnapshotTableName,
	}

	for _, option := range options {
		if err := option(&r); err != nil {
			return Registry{}, err
		}
	}

	return r, nil
}

// InitSchema creates the registry tables if they do not exist yet.
func (r Registry) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + r.snapshotTableName + ` (
			snapshot_id  UUID PRIMARY KEY,
			region_name  TEXT NOT NULL,
			version      BIGINT NOT NULL,
			path         TEXT NOT NULL,
			published_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + gateTableName + ` (
			region_name     TEXT PRIMARY KEY,
			running_queries BIGINT NOT NULL DEFAULT 0
		)`,
	}

	for _, statement := range statements {
		if _, execErr := r.db.Exec(ctx, statement); execErr != nil {
			return errors.Join(ErrQueryingRegistryFailed, execErr)
		}
	}

	return nil
}

// Ping verifies the registry's database connection.
func (r Registry) Ping(ctx context.Context) error {
	rows, queryErr := r.db.Query(ctx, "SELECT 1")
	if queryErr != nil {
		return errors.Join(ErrQueryingRegistryFailed, queryErr)
	}

	r.closeRows(rows)

	return nil
}

// Publish inserts one snapshot row. The snapshot file at record.Path must be
// complete before Publish is called; consumers load it as soon as the row is visible.
func (r Registry) Publish(ctx context.Context, record SnapshotRecord) error {
	if record.RegionName == "" {
		return ErrEmptyRegionSupplied
	}

	sqlQuery, buildErr := r.buildPublishQuery(record)
	if buildErr != nil {
		r.logError(logMsgBuildQueryFailed, buildErr)
		return errors.Join(ErrPublishingSnapshotFailed, buildErr)
	}

	if _, execErr := r.db.Exec(ctx, sqlQuery); execErr != nil {
		return errors.Join(ErrPublishingSnapshotFailed, execErr)
	}

	r.logOperation(
		logMsgSnapshotPublished,
		logAttrRegion, record.RegionName,
		logAttrVersion, record.Version,
		logAttrPath, record.Path,
	)

	return nil
}

// Latest returns the newest published snapshot row for a region.
func (r Registry) Latest(ctx context.Context, regionName string) (SnapshotRecord, error) {
	var empty SnapshotRecord

	if regionName == "" {
		return empty, ErrEmptyRegionSupplied
	}

	sqlQuery, buildErr := r.buildLatestQuery(regionName)
	if buildErr != nil {
		r.logError(logMsgBuildQueryFailed, buildErr)
		return empty, errors.Join(ErrQueryingRegistryFailed, buildErr)
	}

	rows, queryErr := r.db.Query(ctx, sqlQuery)
	if queryErr != nil {
		r.logError(logMsgRegistryQueryFailed, queryErr)
		return empty, errors.Join(ErrQueryingRegistryFailed, queryErr)
	}
	defer r.closeRows(rows)

	if !rows.Next() {
		return empty, ErrNoSnapshotForRegion
	}

	var (
		rawSnapshotID string
		record        SnapshotRecord
	)

	if scanErr := rows.Scan(&rawSnapshotID, &record.RegionName, &record.Version, &record.Path, &record.PublishedAt); scanErr != nil {
		r.logError(logMsgScanRowFailed, scanErr)
		return empty, errors.Join(ErrScanningRegistryRowFailed, scanErr)
	}

	snapshotID, parseErr := uuid.Parse(rawSnapshotID)
	if parseErr != nil {
		return empty, errors.Join(ErrScanningRegistryRowFailed, parseErr)
	}
	record.SnapshotID = snapshotID

	return record, nil
}

func (r Registry) buildPublishQuery(record SnapshotRecord) (string, error) {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(r.snapshotTableName).
		Rows(goqu.Record{
			colSnapshotID:  record.SnapshotID.String(),
			colRegionName:  record.RegionName,
			colVersion:     record.Version,
			colPath:        record.Path,
			colPublishedAt: record.PublishedAt,
		})

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()

	return sqlQuery, toSQLErr
}

func (r Registry) buildLatestQuery(regionName string) (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(r.snapshotTableName).
		Select(colSnapshotID, colRegionName, colVersion, colPath, colPublishedAt).
		Where(goqu.C(colRegionName).Eq(regionName)).
		Order(goqu.I(colVersion).Desc()).
		Limit(1)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()

	return sqlQuery, toSQLErr
}

// closeRows safely closes registry rows and logs any errors.
func (r Registry) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		r.logWarn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (r Registry) logOperation(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r Registry) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r Registry) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, logAttrError, err.Error())
	}
}
