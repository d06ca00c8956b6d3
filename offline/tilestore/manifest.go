package tilestore

import (
	"runtime"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb/maptile"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	parquetreader "github.com/xitongsys/parquet-go/reader"
	parquetwriter "github.com/xitongsys/parquet-go/writer"
)

// ManifestRow is one stored tile in the manifest export
type ManifestRow struct {
	SourceID string `parquet:"name=source_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Z        int32  `parquet:"name=z, type=INT32"`
	X        int64  `parquet:"name=x, type=INT64"`
	Y        int64  `parquet:"name=y, type=INT64"`
	Bytes    int64  `parquet:"name=bytes, type=INT64"`
}

// ExportManifest writes a parquet file listing every tile in the store. It returns the amount of rows written.
func ExportManifest(store *Store, filePath string) (int, errorsx.Error) {
	fileWriter, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return 0, errorsx.Wrap(err, "filePath", filePath)
	}
	defer fileWriter.Close()

	parquetWriter, err := parquetwriter.NewParquetWriter(fileWriter, new(ManifestRow), int64(runtime.NumCPU()))
	if err != nil {
		return 0, errorsx.Wrap(err, "filePath", filePath)
	}
	parquetWriter.CompressionType = parquet.CompressionCodec_SNAPPY

	rowCount := 0
	forEachErr := store.ForEachTile(func(sourceID string, tile maptile.Tile, size int) errorsx.Error {
		err := parquetWriter.Write(ManifestRow{
			SourceID: sourceID,
			Z:        int32(tile.Z),
			X:        int64(tile.X),
			Y:        int64(tile.Y),
			Bytes:    int64(size),
		})
		if err != nil {
			return errorsx.Wrap(err)
		}
		rowCount++
		return nil
	})
	if forEachErr != nil {
		return 0, forEachErr
	}

	err = parquetWriter.WriteStop()
	if err != nil {
		return 0, errorsx.Wrap(err, "filePath", filePath)
	}

	return rowCount, nil
}

func ReadManifest(filePath string) ([]ManifestRow, errorsx.Error) {
	fileReader, err := local.NewLocalFileReader(filePath)
	if err != nil {
		return nil, errorsx.Wrap(err, "filePath", filePath)
	}
	defer fileReader.Close()

	parquetReader, err := parquetreader.NewParquetReader(fileReader, new(ManifestRow), int64(runtime.NumCPU()))
	if err != nil {
		return nil, errorsx.Wrap(err, "filePath", filePath)
	}
	defer parquetReader.ReadStop()

	rows := make([]ManifestRow, parquetReader.GetNumRows())
	err = parquetReader.Read(&rows)
	if err != nil {
		return nil, errorsx.Wrap(err, "filePath", filePath)
	}

	return rows, nil
}
