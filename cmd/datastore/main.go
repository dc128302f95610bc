package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/lib/pq" // postgres driver for the sqlx connection
	log "github.com/sirupsen/logrus"

	"github.com/geosrv/live-dataset-routing-go/cmd/internal/logbridge"
	"github.com/geosrv/live-dataset-routing-go/routing/geodata"
	"github.com/geosrv/live-dataset-routing-go/routing/registry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// regionExtract is the JSON input format: a plain node/edge dump of one
// region's road network.
type regionExtract struct {
	RegionName string         `json:"region_name"`
	Nodes      []geodata.Node `json:"nodes"`
	Edges      []geodata.Edge `json:"edges"`
}

func main() {
	input := flag.String("input", "", "path to the JSON region extract")
	output := flag.String("output", "", "path for the snapshot file to write")
	region := flag.String("region", "", "region name (defaults to the extract's region_name)")
	version := flag.Uint64("version", 0, "snapshot version (defaults to the current Unix time)")
	databaseURL := flag.String("database-url", os.Getenv("ROUTED_DATABASE_URL"), "Postgres URL; when set, the snapshot is published to the registry")
	initSchema := flag.Bool("init-schema", false, "create the registry tables before publishing")
	publishTimeout := flag.Duration("publish-timeout", 2*time.Minute, "maximum time to wait for running queries to drain before publishing")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	if *input == "" || *output == "" {
		log.Fatal("both -input and -output are required")
	}

	extract, err := loadExtract(*input)
	if err != nil {
		log.Fatalf("Failed to load region extract: %v", err)
	}

	regionName := *region
	if regionName == "" {
		regionName = extract.RegionName
	}
	if regionName == "" {
		log.Fatal("no region name: pass -region or set region_name in the extract")
	}

	snapshotVersion := *version
	if snapshotVersion == 0 {
		snapshotVersion = uint64(time.Now().Unix())
	}

	if err := geodata.WriteSnapshotFile(*output, regionName, snapshotVersion, extract.Nodes, extract.Edges); err != nil {
		log.Fatalf("Failed to write snapshot file: %v", err)
	}

	log.WithFields(log.Fields{
		"region":  regionName,
		"version": snapshotVersion,
		"path":    *output,
		"nodes":   len(extract.Nodes),
		"edges":   len(extract.Edges),
	}).Info("snapshot file written")

	if *databaseURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *publishTimeout)
	defer cancel()

	if err := publish(ctx, *databaseURL, regionName, snapshotVersion, *output, *initSchema); err != nil {
		log.Fatalf("Failed to publish snapshot: %v", err)
	}

	log.WithFields(log.Fields{
		"region":  regionName,
		"version": snapshotVersion,
	}).Info("snapshot published")
}

func loadExtract(path string) (regionExtract, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return regionExtract{}, err
	}

	var extract regionExtract
	if err := json.Unmarshal(raw, &extract); err != nil {
		return regionExtract{}, fmt.Errorf("parse extract: %w", err)
	}

	return extract, nil
}

// publish inserts the snapshot row while holding the region's pending scope,
// after waiting for in-flight queries to drain. Servers polling the registry
// pick up the new version on their next query.
//
// The registry rows go through sqlx with the lib/pq driver; only the advisory
// barrier needs a pgx pool, because its locks are session-scoped.
func publish(ctx context.Context, databaseURL, regionName string, version uint64, path string, initSchema bool) error {
	db, err := newSQLXConnection(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	reg, err := registry.NewRegistryFromSQLX(db, registry.WithLogger(logbridge.New(log.StandardLogger())))
	if err != nil {
		return err
	}

	if initSchema {
		if err := reg.InitSchema(ctx); err != nil {
			return err
		}
	}

	barrier, err := registry.NewAdvisoryBarrier(ctx, pool, regionName)
	if err != nil {
		return err
	}

	// Holding the pending scope keeps new queries out while running ones
	// drain, so no reader observes a half-published snapshot.
	if err := barrier.LockPending(ctx); err != nil {
		return err
	}
	defer barrier.UnlockPending()

	if err := barrier.WaitNoRunningQueries(ctx); err != nil {
		return err
	}

	return reg.Publish(ctx, registry.SnapshotRecord{
		SnapshotID:  newSnapshotID(),
		RegionName:  regionName,
		Version:     version,
		Path:        path,
		PublishedAt: time.Now().UTC(),
	})
}

// newSQLXConnection opens a configured sqlx connection and verifies it.
func newSQLXConnection(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	const maxOpenConnections = 5
	const maxConnLifetime = time.Hour

	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConnections)
	db.SetConnMaxLifetime(maxConnLifetime)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, pingErr
	}

	return db, nil
}
