// Package snapshot keeps named call graph snapshots in BadgerDB.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/mcgtools/mcg/internal/fileutil"
	"github.com/mcgtools/mcg/internal/graph"
	"github.com/mcgtools/mcg/internal/mcg"
)

// Key layout:
//
//	mcg:snap:{id}:data → gzip(document)
//	mcg:snap:{id}:meta → JSON(Metadata)
const (
	keyPrefix  = "mcg:snap:"
	suffixData = ":data"
	suffixMeta = ":meta"
)

// StorageVersion is the document version snapshots are stored in. It is
// id-keyed so graphs with repeated names survive.
const StorageVersion = "4.0"

// ErrNotFound is returned for unknown snapshot ids.
var ErrNotFound = errors.New("snapshot not found")

// Metadata describes a stored snapshot.
type Metadata struct {
	ID             string `json:"id"`
	Label          string `json:"label,omitempty"`
	Version        string `json:"version"`
	NodeCount      int    `json:"node_count"`
	EdgeCount      int    `json:"edge_count"`
	CompressedSize int64  `json:"compressed_size"`
	ContentHash    string `json:"content_hash"`
	CreatedAtMilli int64  `json:"created_at_milli"`
}

// CreatedAt returns the creation time in UTC.
func (m Metadata) CreatedAt() time.Time {
	return time.UnixMilli(m.CreatedAtMilli).UTC()
}

// Store saves and loads snapshots. It is safe for concurrent use.
type Store struct {
	db       *badger.DB
	logger   *slog.Logger
	registry *mcg.Registry
	now      func() time.Time
}

// Open opens, or creates, the database at dir. An empty dir keeps
// everything in memory.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an opened database.
func New(db *badger.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger, registry: mcg.DefaultRegistry(), now: time.Now}
}

func (s *Store) Close() error { return s.db.Close() }

// Save stores g under a new id.
func (s *Store) Save(ctx context.Context, g *graph.Callgraph, label string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.registry.Marshal(g.Document(StorageVersion), mcg.EncodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("encoding graph: %w", err)
	}

	var compressed bytes.Buffer
	gw, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(data); err != nil {
		return nil, fmt.Errorf("compressing graph: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	payload := compressed.Bytes()

	meta := &Metadata{
		ID:             uuid.NewString(),
		Label:          label,
		Version:        StorageVersion,
		NodeCount:      g.Len(),
		EdgeCount:      g.EdgeCount(),
		CompressedSize: int64(len(payload)),
		ContentHash:    fileutil.HashBytes(payload),
		CreatedAtMilli: s.now().UnixMilli(),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(meta.ID), payload); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set(metaKey(meta.ID), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}

	s.logger.Info("snapshot saved",
		slog.String("id", meta.ID),
		slog.Int("node_count", meta.NodeCount),
		slog.Int("edge_count", meta.EdgeCount),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// Get returns the metadata of id.
func (s *Store) Get(ctx context.Context, id string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var meta Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, notFound(id, err)
	}
	return &meta, nil
}

// Load returns the graph stored under id. The payload hash is verified
// against the metadata first.
func (s *Store) Load(ctx context.Context, id string) (*graph.Callgraph, *Metadata, error) {
	meta, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	var payload []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(id))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, nil, notFound(id, err)
	}
	if actual := fileutil.HashBytes(payload); meta.ContentHash != "" && actual != meta.ContentHash {
		return nil, nil, fmt.Errorf("integrity check failed for %s: expected hash %s, got %s", id, meta.ContentHash, actual)
	}

	gr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing snapshot %s: %w", id, err)
	}
	defer gr.Close()
	data, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("reading snapshot %s: %w", id, err)
	}

	g, err := graph.Reader{Registry: s.registry}.Read(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	return g, meta, nil
}

// List returns every snapshot, newest first.
func (s *Store) List(ctx context.Context) ([]*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var results []*Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasSuffix(key, suffixMeta) {
				continue
			}
			var meta Metadata
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &meta) }); err != nil {
				s.logger.Warn("skipping corrupt metadata", slog.String("key", key), slog.Any("error", err))
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CreatedAtMilli != results[j].CreatedAtMilli {
			return results[i].CreatedAtMilli > results[j].CreatedAtMilli
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

// Delete removes id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(dataKey(id)); err != nil {
			return fmt.Errorf("deleting data: %w", err)
		}
		if err := txn.Delete(metaKey(id)); err != nil {
			return fmt.Errorf("deleting metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	s.logger.Info("snapshot deleted", slog.String("id", id))
	return nil
}

func dataKey(id string) []byte { return []byte(keyPrefix + id + suffixData) }
func metaKey(id string) []byte { return []byte(keyPrefix + id + suffixMeta) }

func notFound(id string, err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("reading snapshot %s: %w", id, err)
}
