package tilestore

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/boltdb/bolt"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb/maptile"
)

var ErrNotFound = errors.New("not found in tile store")

var (
	TilesBucketName      = []byte("tiles")
	StylePacksBucketName = []byte("stylepacks")
	RegionsBucketName    = []byte("regions")
)

const TileKeyLen = 9

// Store keeps downloaded tiles, style packs and region records in a bolt file.
// Tiles live in one bucket per source, under the tiles bucket, keyed by EncodeTileKey.
type Store struct {
	db   *bolt.DB
	path string
}

func Open(path string) (*Store, errorsx.Error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errorsx.Wrap(err, "path", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{TilesBucketName, StylePacksBucketName, RegionsBucketName} {
			_, err := tx.CreateBucketIfNotExists(name)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errorsx.Wrap(err, "path", path)
	}

	return &Store{db, path}, nil
}

func (s *Store) Close() errorsx.Error {
	return errorsx.Wrap(s.db.Close())
}

// DB exposes the underlying bolt DB, for read-only visualisation
func (s *Store) DB() *bolt.DB {
	return s.db
}

func (s *Store) Path() string {
	return s.path
}

// EncodeTileKey encodes a tile as z (1 byte), x, y (4 bytes each, big endian), so tiles sort by zoom level, then column
func EncodeTileKey(tile maptile.Tile) []byte {
	key := make([]byte, TileKeyLen)
	key[0] = byte(tile.Z)
	binary.BigEndian.PutUint32(key[1:5], tile.X)
	binary.BigEndian.PutUint32(key[5:9], tile.Y)
	return key
}

func DecodeTileKey(key []byte) (maptile.Tile, errorsx.Error) {
	if len(key) != TileKeyLen {
		return maptile.Tile{}, errorsx.Errorf("expected a tile key of %d bytes but got %d", TileKeyLen, len(key))
	}

	return maptile.New(binary.BigEndian.Uint32(key[1:5]), binary.BigEndian.Uint32(key[5:9]), maptile.Zoom(key[0])), nil
}

func (s *Store) PutTile(sourceID string, tile maptile.Tile, data []byte) errorsx.Error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.Bucket(TilesBucketName).CreateBucketIfNotExists([]byte(sourceID))
		if err != nil {
			return err
		}

		return bucket.Put(EncodeTileKey(tile), data)
	})
	if err != nil {
		return errorsx.Wrap(err, "sourceID", sourceID, "tile", tile)
	}

	return nil
}

func (s *Store) GetTile(sourceID string, tile maptile.Tile) ([]byte, errorsx.Error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(TilesBucketName).Bucket([]byte(sourceID))
		if bucket == nil {
			return ErrNotFound
		}

		value := bucket.Get(EncodeTileKey(tile))
		if value == nil {
			return ErrNotFound
		}

		// values are only valid during the transaction
		data = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, errorsx.Wrap(err, "sourceID", sourceID, "tile", tile)
	}

	return data, nil
}

// ForEachTile calls fn for every stored tile, by source and then tile key order
func (s *Store) ForEachTile(fn func(sourceID string, tile maptile.Tile, size int) errorsx.Error) errorsx.Error {
	var fnErr errorsx.Error
	err := s.db.View(func(tx *bolt.Tx) error {
		tilesBucket := tx.Bucket(TilesBucketName)
		return tilesBucket.ForEach(func(sourceID, v []byte) error {
			if v != nil {
				// not a bucket
				return nil
			}

			return tilesBucket.Bucket(sourceID).ForEach(func(k, v []byte) error {
				tile, err := DecodeTileKey(k)
				if err != nil {
					fnErr = err
					return err
				}

				err = fn(string(sourceID), tile, len(v))
				if err != nil {
					fnErr = err
					return err
				}
				return nil
			})
		})
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return errorsx.Wrap(err)
	}

	return nil
}

func (s *Store) PutStylePack(styleID string, data []byte) errorsx.Error {
	return s.put(StylePacksBucketName, styleID, data)
}

func (s *Store) GetStylePack(styleID string) ([]byte, errorsx.Error) {
	return s.get(StylePacksBucketName, styleID)
}

func (s *Store) PutRegion(regionID string, data []byte) errorsx.Error {
	return s.put(RegionsBucketName, regionID, data)
}

func (s *Store) GetRegion(regionID string) ([]byte, errorsx.Error) {
	return s.get(RegionsBucketName, regionID)
}

func (s *Store) put(bucketName []byte, key string, data []byte) errorsx.Error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
	if err != nil {
		return errorsx.Wrap(err, "bucket", string(bucketName), "key", key)
	}
	return nil
}

func (s *Store) get(bucketName []byte, key string) ([]byte, errorsx.Error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bucketName).Get([]byte(key))
		if value == nil {
			return ErrNotFound
		}
		data = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, errorsx.Wrap(err, "bucket", string(bucketName), "key", key)
	}
	return data, nil
}
