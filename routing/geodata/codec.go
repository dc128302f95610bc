package geodata

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
)

const snapshotFormatVersion = 1

var (
	// ErrWritingSnapshotFailed is returned when writing a snapshot file fails.
	ErrWritingSnapshotFailed = errors.New("writing snapshot file failed")

	// ErrReadingSnapshotFailed is returned when a snapshot file cannot be read or decoded.
	ErrReadingSnapshotFailed = errors.New("reading snapshot file failed")

	// ErrUnsupportedSnapshotFormat is returned when a snapshot file carries an
	// unknown format version.
	ErrUnsupportedSnapshotFormat = errors.New("unsupported snapshot file format version")
)

// snapshotDocument is the on-disk layout of one snapshot file, stored as a
// zstd-compressed JSON document.
type snapshotDocument struct {
	FormatVersion int    `json:"format_version"`
	SnapshotID    string `json:"snapshot_id"`
	RegionName    string `json:"region_name"`
	Version       uint64 `json:"version"`
	Nodes         []Node `json:"nodes"`
	Edges         []Edge `json:"edges"`
}

// WriteSnapshotFile validates the node and edge set and writes one complete
// snapshot file. The file is only usable once the write has returned nil.
func WriteSnapshotFile(path, regionName string, version uint64, nodes []Node, edges []Edge) error {
	// validate before touching the filesystem
	if _, buildErr := BuildGraph(regionName, version, nodes, edges); buildErr != nil {
		return buildErr
	}

	doc := snapshotDocument{
		FormatVersion: snapshotFormatVersion,
		SnapshotID:    uuid.New().String(),
		RegionName:    regionName,
		Version:       version,
		Nodes:         nodes,
		Edges:         edges,
	}

	file, createErr := os.Create(path)
	if createErr != nil {
		return errors.Join(ErrWritingSnapshotFailed, createErr)
	}

	writeErr := encodeSnapshot(file, doc)
	closeErr := file.Close()

	if writeErr != nil {
		return errors.Join(ErrWritingSnapshotFailed, writeErr)
	}

	if closeErr != nil {
		return errors.Join(ErrWritingSnapshotFailed, closeErr)
	}

	return nil
}

// LoadSnapshotFile reads one snapshot file and assembles its immutable graph.
func LoadSnapshotFile(path string) (*Graph, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, errors.Join(ErrReadingSnapshotFailed, openErr)
	}
	defer file.Close() //nolint:errcheck // read-only descriptor

	doc, decodeErr := decodeSnapshot(file)
	if decodeErr != nil {
		return nil, decodeErr
	}

	graph, buildErr := BuildGraph(doc.RegionName, doc.Version, doc.Nodes, doc.Edges)
	if buildErr != nil {
		return nil, errors.Join(ErrReadingSnapshotFailed, buildErr)
	}

	return graph, nil
}

func encodeSnapshot(w io.Writer, doc snapshotDocument) error {
	encoder, encoderErr := zstd.NewWriter(w)
	if encoderErr != nil {
		return encoderErr
	}

	payload, marshalErr := jsoniter.ConfigFastest.Marshal(doc)
	if marshalErr != nil {
		return marshalErr
	}

	if _, writeErr := encoder.Write(payload); writeErr != nil {
		return writeErr
	}

	return encoder.Close()
}

func decodeSnapshot(r io.Reader) (snapshotDocument, error) {
	var doc snapshotDocument

	decoder, decoderErr := zstd.NewReader(r)
	if decoderErr != nil {
		return doc, errors.Join(ErrReadingSnapshotFailed, decoderErr)
	}
	defer decoder.Close()

	payload, readErr := io.ReadAll(decoder)
	if readErr != nil {
		return doc, errors.Join(ErrReadingSnapshotFailed, readErr)
	}

	if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(payload, &doc); unmarshalErr != nil {
		return doc, errors.Join(ErrReadingSnapshotFailed, unmarshalErr)
	}

	if doc.FormatVersion != snapshotFormatVersion {
		return doc, fmt.Errorf("%w: %d", ErrUnsupportedSnapshotFormat, doc.FormatVersion)
	}

	return doc, nil
}
