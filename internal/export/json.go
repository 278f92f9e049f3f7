package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/JakeFAU/movie-harvester/internal/movie"
	"github.com/JakeFAU/movie-harvester/internal/normalize"
	"github.com/JakeFAU/movie-harvester/internal/storage"
)

const jsonContentType = "application/json"

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// BridgeDocs renders bridge rows as {fact_id, <kind>_id} objects.
func BridgeDocs(kind movie.DimensionKind, rows []movie.BridgeRow) []map[string]int64 {
	key := string(kind) + "_id"
	out := make([]map[string]int64, 0, len(rows))
	for _, b := range rows {
		out = append(out, map[string]int64{"fact_id": b.FactID, key: b.DimensionID})
	}
	return out
}

// Documents lists every JSON artifact of a normalized result keyed by its
// relative path.
func Documents(result normalize.Result) map[string]any {
	docs := make(map[string]any, 2*len(movie.DimensionKinds)+3)
	for _, kind := range movie.DimensionKinds {
		dims := result.Dimensions[kind]
		if dims == nil {
			dims = []movie.DimensionEntity{}
		}
		docs[path.Join("dimensions", string(kind)+".json")] = dims
		docs[path.Join("bridges", string(kind)+".json")] = BridgeDocs(kind, result.Bridges[kind])
	}
	facts := result.Facts
	if facts == nil {
		facts = []movie.FactRow{}
	}
	dates := result.Dates
	if dates == nil {
		dates = []movie.DateDimension{}
	}
	docs["facts.json"] = facts
	docs["dates.json"] = dates
	docs["star_facts.json"] = result.StarFacts()
	return docs
}

// DocumentPaths returns the relative paths written by PutResult, in write
// order.
func DocumentPaths() []string {
	out := make([]string, 0, 2*len(movie.DimensionKinds)+3)
	for _, kind := range movie.DimensionKinds {
		out = append(out, path.Join("dimensions", string(kind)+".json"))
	}
	for _, kind := range movie.DimensionKinds {
		out = append(out, path.Join("bridges", string(kind)+".json"))
	}
	return append(out, "facts.json", "dates.json", "star_facts.json")
}

// PutResult writes every document of result under dir and returns the URIs
// in DocumentPaths order.
func PutResult(ctx context.Context, blobs storage.BlobStore, dir string, result normalize.Result) ([]string, error) {
	docs := Documents(result)
	uris := make([]string, 0, len(docs))
	for _, rel := range DocumentPaths() {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, docs[rel]); err != nil {
			return uris, fmt.Errorf("%s: %w", rel, err)
		}
		uri, err := blobs.PutObject(ctx, path.Join(dir, rel), jsonContentType, &buf)
		if err != nil {
			return uris, fmt.Errorf("store %s: %w", rel, err)
		}
		uris = append(uris, uri)
	}
	return uris, nil
}
