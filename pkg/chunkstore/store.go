// Package chunkstore is a file-backed vector and keyword store for text
// chunks. Rows live in memory; Flush persists the metadata as JSON and the
// embedding matrix as a flat binary file next to it.
package chunkstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/GPTNLP/AURA/pkg/ai"
	"github.com/GPTNLP/AURA/pkg/logger"
)

const (
	metaFile      = "meta.json"
	embeddingFile = "embeddings.bin"
)

// Row is one stored chunk with its metadata and embedding.
type Row struct {
	ID        string
	Text      string
	Meta      map[string]string
	Embedding []float32
}

// Hit is a scored retrieval result.
type Hit struct {
	Row   Row
	Score float64
}

// Store holds all rows of one working directory in memory and persists
// them on Flush. All methods are safe for concurrent use through the
// owning engine's locking; the store itself does not lock.
type Store struct {
	dir      string
	embedder ai.EmbeddingClient

	rows []Row
	byID map[string]int
	dim  int
	seq  int

	keywords *keywordIndex
}

// New creates a store rooted at dir. Call Load to pick up a previous
// Flush.
func New(dir string, embedder ai.EmbeddingClient) *Store {
	return &Store{
		dir:      dir,
		embedder: embedder,
		byID:     make(map[string]int),
		keywords: newKeywordIndex(),
	}
}

// Insert embeds text and stores it. The returned id is unique within the
// store.
func (s *Store) Insert(ctx context.Context, text string, meta map[string]string) (string, error) {
	embedding, err := s.embedder.GenerateEmbedding(ctx, []byte(text))
	if err != nil {
		return "", fmt.Errorf("failed to embed chunk: %w", err)
	}
	return s.InsertWithEmbedding(text, meta, embedding)
}

// InsertWithEmbedding stores a row with a precomputed embedding. All rows
// must share one embedding dimension.
func (s *Store) InsertWithEmbedding(text string, meta map[string]string, embedding []float32) (string, error) {
	if len(embedding) == 0 {
		return "", fmt.Errorf("refusing to store empty embedding")
	}
	if s.dim == 0 {
		s.dim = len(embedding)
	} else if len(embedding) != s.dim {
		return "", fmt.Errorf("embedding dimension %d does not match store dimension %d", len(embedding), s.dim)
	}

	s.seq++
	id := fmt.Sprintf("%d-%d", time.Now().UnixNano(), s.seq)

	if meta == nil {
		meta = map[string]string{}
	}
	s.byID[id] = len(s.rows)
	s.rows = append(s.rows, Row{ID: id, Text: text, Meta: meta, Embedding: embedding})
	s.keywords.markDirty()
	return id, nil
}

// Get returns the row with the given id.
func (s *Store) Get(id string) (Row, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return Row{}, false
	}
	return s.rows[idx], true
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	return len(s.rows)
}

// Rows returns all rows in insertion order.
func (s *Store) Rows() []Row {
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}

type persistedMeta struct {
	Dim  int            `json:"dim"`
	Rows []persistedRow `json:"rows"`
}

type persistedRow struct {
	ID   string            `json:"id"`
	Text string            `json:"text"`
	Meta map[string]string `json:"meta,omitempty"`
}

// Flush writes meta.json and embeddings.bin. Both are written to temporary
// siblings and renamed so a crash mid-write never leaves a half file.
func (s *Store) Flush() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	meta := persistedMeta{Dim: s.dim, Rows: make([]persistedRow, 0, len(s.rows))}
	matrix := make([]byte, 0, len(s.rows)*s.dim*4)
	buf := make([]byte, 4)
	for _, row := range s.rows {
		meta.Rows = append(meta.Rows, persistedRow{ID: row.ID, Text: row.Text, Meta: row.Meta})
		for _, v := range row.Embedding {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			matrix = append(matrix, buf...)
		}
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal store metadata: %w", err)
	}

	if err := writeAtomic(filepath.Join(s.dir, metaFile), payload); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, embeddingFile), matrix)
}

func writeAtomic(path string, payload []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load restores rows from a previous Flush. Missing files leave the store
// empty. When the embedding matrix does not line up with the metadata the
// persisted state is discarded with a warning rather than loaded wrong.
func (s *Store) Load() error {
	payload, err := os.ReadFile(filepath.Join(s.dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read store metadata: %w", err)
	}

	var meta persistedMeta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return fmt.Errorf("failed to parse store metadata: %w", err)
	}

	matrix, err := os.ReadFile(filepath.Join(s.dir, embeddingFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read embedding matrix: %w", err)
	}
	if len(matrix) != len(meta.Rows)*meta.Dim*4 {
		logger.Warn("embedding matrix does not match metadata, discarding persisted chunks",
			"rows", len(meta.Rows), "dim", meta.Dim, "bytes", len(matrix))
		return nil
	}

	s.rows = make([]Row, 0, len(meta.Rows))
	s.byID = make(map[string]int, len(meta.Rows))
	s.dim = meta.Dim
	for i, row := range meta.Rows {
		embedding := make([]float32, meta.Dim)
		for j := range embedding {
			off := (i*meta.Dim + j) * 4
			embedding[j] = math.Float32frombits(binary.LittleEndian.Uint32(matrix[off : off+4]))
		}
		if row.Meta == nil {
			row.Meta = map[string]string{}
		}
		s.byID[row.ID] = len(s.rows)
		s.rows = append(s.rows, Row{ID: row.ID, Text: row.Text, Meta: row.Meta, Embedding: embedding})
	}
	s.seq = len(s.rows)
	s.keywords.markDirty()
	return nil
}

// Reset drops all rows and removes the persisted files.
func (s *Store) Reset() error {
	s.rows = nil
	s.byID = make(map[string]int)
	s.dim = 0
	s.seq = 0
	s.keywords = newKeywordIndex()

	for _, name := range []string{metaFile, embeddingFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}
