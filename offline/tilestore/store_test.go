package tilestore

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestTileKey(t *testing.T) {
	tests := []struct {
		name string
		tile maptile.Tile
	}{
		{"world", maptile.New(0, 0, 0)},
		{"jotunheimen", maptile.New(133, 71, 8)},
		{"deep zoom", maptile.New(1<<22-1, 1<<22-1, 22)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := EncodeTileKey(tt.tile)
			require.Len(t, key, TileKeyLen)

			tile, err := DecodeTileKey(key)
			require.NoError(t, err)
			assert.Equal(t, tt.tile, tile)
		})
	}

	_, err := DecodeTileKey([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestStore_tiles(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.PutTile("openmaptiles", maptile.New(1, 0, 1), []byte("tile 1/1/0")))
	require.NoError(t, store.PutTile("openmaptiles", maptile.New(0, 0, 0), []byte("tile 0/0/0")))
	require.NoError(t, store.PutTile("hillshade", maptile.New(0, 1, 1), []byte("hillshade 1/0/1")))

	data, err := store.GetTile("openmaptiles", maptile.New(1, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "tile 1/1/0", string(data))

	_, err = store.GetTile("openmaptiles", maptile.New(0, 1, 1))
	assert.Equal(t, ErrNotFound, errorsx.Cause(err))

	_, err = store.GetTile("no-such-source", maptile.New(0, 0, 0))
	assert.Equal(t, ErrNotFound, errorsx.Cause(err))

	var visited []string
	err = store.ForEachTile(func(sourceID string, tile maptile.Tile, size int) errorsx.Error {
		visited = append(visited, fmt.Sprintf("%s %d/%d/%d %d", sourceID, tile.Z, tile.X, tile.Y, size))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"hillshade 1/0/1 15",
		"openmaptiles 0/0/0 10",
		"openmaptiles 1/1/0 10",
	}, visited)
}

func TestStore_ForEachTile_stops(t *testing.T) {
	store := openTestStore(t)

	for x := uint32(0); x < 4; x++ {
		require.NoError(t, store.PutTile("openmaptiles", maptile.New(x, 0, 2), []byte("tile")))
	}

	calls := 0
	stopErr := errorsx.Errorf("stop")
	err := store.ForEachTile(func(sourceID string, tile maptile.Tile, size int) errorsx.Error {
		calls++
		if calls == 2 {
			return stopErr
		}
		return nil
	})
	assert.Equal(t, stopErr, err)
	assert.Equal(t, 2, calls)
}

func TestStore_stylePacksAndRegions(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetStylePack("outdoors")
	assert.Equal(t, ErrNotFound, errorsx.Cause(err))

	require.NoError(t, store.PutStylePack("outdoors", []byte(`{"styleId":"outdoors"}`)))
	require.NoError(t, store.PutRegion("jotunheimen", []byte(`{"styleId":"outdoors"}`)))

	pack, err := store.GetStylePack("outdoors")
	require.NoError(t, err)
	assert.JSONEq(t, `{"styleId":"outdoors"}`, string(pack))

	region, err := store.GetRegion("jotunheimen")
	require.NoError(t, err)
	assert.JSONEq(t, `{"styleId":"outdoors"}`, string(region))

	_, err = store.GetRegion("outdoors")
	assert.Equal(t, ErrNotFound, errorsx.Cause(err))
}

func TestStore_reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offline.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.PutTile("openmaptiles", maptile.New(0, 0, 0), []byte("tile")))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, path, store.Path())
	data, err := store.GetTile("openmaptiles", maptile.New(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "tile", string(data))
}
