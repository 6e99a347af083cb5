// File: internal/store/legacy.go
package store

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/mossriver/tilenav/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// legacyCache is the older flat-file cache format still produced by earlier
// agent builds: positions as [x, y, "DIRECTION"] triples.
type legacyCache struct {
	UnreachablePositions [][]any `json:"unreachable_positions"`
	TotalAbandoned       int     `json:"total_abandoned"`
}

// ImportJSON merges a legacy cache file into the store. Malformed entries are
// skipped; the import is additive and never removes existing records.
func ImportJSON(ctx context.Context, s Store, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read legacy cache: %w", err)
	}
	var cache legacyCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return 0, fmt.Errorf("failed to decode legacy cache: %w", err)
	}

	imported := 0
	for _, entry := range cache.UnreachablePositions {
		k, ok := legacyKey(entry)
		if !ok {
			continue
		}
		if s.Contains(k) {
			continue
		}
		s.Add(k)
		imported++
	}
	return imported, nil
}

// ExportJSON writes the store contents in the legacy cache format so older
// tooling can read it back.
func ExportJSON(s Store, w io.Writer) error {
	keys := s.All()
	cache := legacyCache{
		UnreachablePositions: make([][]any, 0, len(keys)),
		TotalAbandoned:       s.Total(),
	}
	for _, k := range keys {
		cache.UnreachablePositions = append(cache.UnreachablePositions,
			[]any{k.X, k.Y, string(k.Dir)})
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode legacy cache: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write legacy cache: %w", err)
	}
	return nil
}

// legacyKey coerces a loosely-typed [x, y, dir] triple into a Key. JSON
// numbers arrive as float64.
func legacyKey(entry []any) (Key, bool) {
	if len(entry) != 3 {
		return Key{}, false
	}
	x, ok := entry[0].(float64)
	if !ok {
		return Key{}, false
	}
	y, ok := entry[1].(float64)
	if !ok {
		return Key{}, false
	}
	raw, ok := entry[2].(string)
	if !ok {
		return Key{}, false
	}
	dir, err := schemas.ParseDirection(raw)
	if err != nil {
		return Key{}, false
	}
	return Key{X: int(x), Y: int(y), Dir: dir}, true
}
