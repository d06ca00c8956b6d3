package offlineboltviz

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/jamesrr39/goutil/bolt-tools/boltviz"
	"github.com/jamesrr39/goutil/humanise"
	"github.com/jamesrr39/ownmapstyle/offline"
	"github.com/jamesrr39/ownmapstyle/offline/tilestore"
)

// GetTemplateMap prints the keys and values of an offline tile store in a readable way
func GetTemplateMap() boltviz.TemplateMap {
	return boltviz.TemplateMap{
		PrintKey: func(pair boltviz.KVPairDisplay) string {
			switch len(pair.PathFragments) {
			case 2:
				// tiles::<source ID>
				tile, err := tilestore.DecodeTileKey(pair.Key)
				if err != nil {
					return "error: " + err.Error()
				}
				return fmt.Sprintf("%d/%d/%d", tile.Z, tile.X, tile.Y)
			case 1:
				return string(pair.Key)
			default:
				return "(unknown)"
			}
		},
		PrintValue: func(pair boltviz.KVPairDisplay) string {
			switch len(pair.PathFragments) {
			case 2:
				return fmt.Sprintf("(tile, %s)", humanise.HumaniseBytes(int64(len(pair.Value))))
			case 1:
				bucketName, err := base64.StdEncoding.DecodeString(pair.PathFragments[0])
				if err != nil {
					return fmt.Sprintf("error: %q", err)
				}

				switch {
				case bytes.Equal(bucketName, tilestore.StylePacksBucketName):
					pack := new(offline.StylePack)
					err = json.Unmarshal(pair.Value, pack)
					if err != nil {
						return fmt.Sprintf("error decoding style pack: %q", err)
					}
					return fmt.Sprintf(
						"style %q: document %s, sprite index %s, sprite image %s",
						pack.StyleID,
						humanise.HumaniseBytes(int64(len(pack.Style))),
						humanise.HumaniseBytes(int64(len(pack.SpriteJSON))),
						humanise.HumaniseBytes(int64(len(pack.SpritePNG))),
					)
				case bytes.Equal(bucketName, tilestore.RegionsBucketName):
					record := new(offline.RegionRecord)
					err = json.Unmarshal(pair.Value, record)
					if err != nil {
						return fmt.Sprintf("error decoding region: %q", err)
					}
					return fmt.Sprintf(
						"style %q, zoom %d-%d, %d tiles (%d failed), %s, completed %s",
						record.StyleID,
						record.Region.MinZoom,
						record.Region.MaxZoom,
						record.Progress.TilesCompleted,
						record.Progress.TilesFailed,
						humanise.HumaniseBytes(record.Progress.BytesDownloaded),
						record.CompletedAt.Format("2006-01-02 15:04:05"),
					)
				default:
					return fmt.Sprintf("unrecognised bucket name: %q", string(bucketName))
				}
			default:
				return "(unknown)"
			}
		},
	}
}
