package plugins

import (
	"context"

	"github.com/geosrv/live-dataset-routing-go/routing"
)

// Tile serves pre-encoded tiles of the road network.
type Tile struct{}

// NewTile creates the tile capability. It carries no static limits.
func NewTile() *Tile {
	return &Tile{}
}

// HandleRequest returns the encoded tile, or TileNotFound for tiles without
// any road segment and for out-of-range tile addresses.
func (p *Tile) HandleRequest(_ context.Context, snapshot *routing.DatasetHandle, params routing.TileParameters) (routing.Status, routing.Result) {
	encoded, ok := snapshot.Contents().Tile(params.Z, params.X, params.Y)
	if !ok {
		return queryError(codeTileNotFound, "no road segments in the requested tile")
	}

	return routing.StatusOk, encoded
}

var _ routing.Capability[routing.TileParameters] = (*Tile)(nil)
