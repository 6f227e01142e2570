package archive

import (
	"fmt"
	"path"
	"strings"
)

const (
	jsonRoot    = "raw/json"
	parquetRoot = "raw/parquet"

	metaWindowAfter   = "window-after"
	metaWindowThrough = "window-through"
	metaSymbol        = "symbol"
	metaBatch         = "batch"
)

// JSONKey returns the object key of the raw payload of one batch.
func JSONKey(symbol, batchID string) string {
	return path.Join(jsonPrefix(symbol), fmt.Sprintf("batch=%s.json", batchID))
}

// ParquetKey returns the object key of the columnar copy of one batch.
func ParquetKey(symbol, batchID string) string {
	return path.Join(parquetRoot, "symbol="+symbol, fmt.Sprintf("batch=%s.parquet", batchID))
}

func jsonPrefix(symbol string) string {
	return jsonRoot + "/symbol=" + symbol + "/"
}

// batchFromKey extracts the batch id of a raw JSON key, or "" when key is
// not a batch object.
func batchFromKey(key string) string {
	name := path.Base(key)
	if !strings.HasPrefix(name, "batch=") || !strings.HasSuffix(name, ".json") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, "batch="), ".json")
}
