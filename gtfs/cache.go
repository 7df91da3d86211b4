package gtfs

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// SerializeDataset encodes a Dataset to bytes using gob encoding.
// This is useful for disk-based caching to avoid re-downloading and
// re-parsing the GTFS zip on every restart.
func SerializeDataset(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := SerializeDatasetToWriter(ds, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeDataset decodes a Dataset from bytes using gob encoding.
func DeserializeDataset(data []byte) (*Dataset, error) {
	return DeserializeDatasetFromReader(bytes.NewReader(data))
}

// SerializeDatasetToFile writes a Dataset to a file using gob encoding.
func SerializeDatasetToFile(ds *Dataset, filepath string) error {
	data, err := SerializeDataset(ds)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, data, 0644)
}

// DeserializeDatasetFromFile reads a Dataset from a file using gob encoding.
//
// Example:
//
//	ds, err := gtfs.DeserializeDatasetFromFile("/cache/gtfs.gob")
//	if err != nil {
//	    // Cache miss or corrupted, load fresh data
//	    ds, _ = source.Load(ctx)
//	}
func DeserializeDatasetFromFile(filepath string) (*Dataset, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return DeserializeDataset(data)
}

// SerializeDatasetToWriter writes a Dataset to an io.Writer using gob encoding.
func SerializeDatasetToWriter(ds *Dataset, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(ds); err != nil {
		return fmt.Errorf("failed to encode Dataset: %w", err)
	}
	return nil
}

// DeserializeDatasetFromReader reads a Dataset from an io.Reader using gob encoding.
func DeserializeDatasetFromReader(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := gob.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode Dataset: %w", err)
	}
	return &ds, nil
}

// CachedSource wraps a Source with a gob file cache. Successful loads from
// the inner source refresh the cache. The cache is served once, when the
// inner source fails before any load has succeeded; later failures are
// returned so the caller keeps its current dataset and reports the error.
type CachedSource struct {
	Inner  Source
	Path   string
	loaded bool
}

func (c *CachedSource) Load(ctx context.Context) (*Dataset, error) {
	ds, err := c.Inner.Load(ctx)
	if err == nil {
		c.loaded = true
		if err := SerializeDatasetToFile(ds, c.Path); err != nil {
			log.Printf("gtfs: write cache %s: %v", c.Path, err)
		}
		return ds, nil
	}
	if c.loaded || errors.Is(err, ErrUnchanged) {
		return nil, err
	}
	cached, cerr := DeserializeDatasetFromFile(c.Path)
	if cerr != nil {
		return nil, err
	}
	c.loaded = true
	log.Printf("gtfs: static load failed (%v), serving cache %s fetched at %s", err, c.Path, cached.FetchedAt.Format(time.RFC3339))
	return cached, nil
}
