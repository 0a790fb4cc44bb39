package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/models"
)

var (
	// ErrIndexWrite wraps persistence failures while adding or removing
	// chunks. Callers must treat a write failure as "nothing indexed" for
	// the affected document.
	ErrIndexWrite = errors.New("vector index write failed")

	// ErrIndexRead wraps retrieval failures. Never conflate with an empty
	// result set, which is a successful query.
	ErrIndexRead = errors.New("vector index read failed")

	// ErrDimensionMismatch rejects vectors whose length differs from the
	// dimensionality the index was created with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

const addConcurrency = 4

// Chunk is one embedded text fragment going into the index.
type Chunk struct {
	ID        string
	Text      string
	Embedding []float32
	CourseID  int64
	FileID    int64
	Filename  string
}

// SearchResult is one retrieved chunk with its similarity score in [0, 1]
// (cosine, higher is closer).
type SearchResult struct {
	ChunkID    string
	Text       string
	Similarity float32
	CourseID   int64
	FileID     int64
	Filename   string
}

// Store is the persistent vector index plus its relational chunk catalog.
// The catalog (a Mongo collection) carries one row per stored chunk and is
// the source of truth for filtered counts and delete bookkeeping; the
// embedded index holds the vectors and serves similarity search.
type Store struct {
	db        *chromem.DB
	coll      *chromem.Collection
	catalog   *mongo.Collection
	manifests *mongo.Collection
	dimension int

	// serializes delete passes so concurrent deletes cannot interleave
	// between the index removal and the catalog removal
	deleteMu sync.Mutex
}

// Open loads (or creates) the persistent index and verifies its manifest
// against the current configuration. Opening an index built with a different
// embedding model, metric or dimensionality fails hard: the stored vectors
// would be incomparable with freshly embedded queries.
func Open(ctx context.Context, cfg *config.Config, db *mongo.Database) (*Store, error) {
	vdb, err := chromem.NewPersistentDB(cfg.IndexPersistDir, true)
	if err != nil {
		return nil, fmt.Errorf("open vector index at %s: %w", cfg.IndexPersistDir, err)
	}

	coll, err := vdb.GetOrCreateCollection(cfg.IndexCollection, map[string]string{"metric": cfg.SimilarityMetric}, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", cfg.IndexCollection, err)
	}

	s := &Store{
		db:        vdb,
		coll:      coll,
		catalog:   db.Collection("chunk_index"),
		manifests: db.Collection("index_meta"),
		dimension: cfg.VectorDimensions,
	}

	if err := s.checkManifest(ctx, cfg); err != nil {
		return nil, err
	}

	logger.Info("Vector index opened",
		"collection", cfg.IndexCollection,
		"documents", coll.Count(),
		"dimensions", cfg.VectorDimensions)
	return s, nil
}

func (s *Store) checkManifest(ctx context.Context, cfg *config.Config) error {
	var manifest models.IndexManifest
	err := s.manifests.FindOne(ctx, bson.M{"_id": cfg.IndexCollection}).Decode(&manifest)
	if err == mongo.ErrNoDocuments {
		manifest = models.IndexManifest{
			Collection:     cfg.IndexCollection,
			Metric:         cfg.SimilarityMetric,
			Dimensions:     cfg.VectorDimensions,
			EmbeddingModel: cfg.EmbeddingModel,
		}
		_, err = s.manifests.InsertOne(ctx, manifest)
		return err
	}
	if err != nil {
		return fmt.Errorf("read index manifest: %w", err)
	}

	if manifest.Metric != cfg.SimilarityMetric ||
		manifest.Dimensions != cfg.VectorDimensions ||
		manifest.EmbeddingModel != cfg.EmbeddingModel {
		return fmt.Errorf("index %s was built with model=%s metric=%s dims=%d, config wants model=%s metric=%s dims=%d; reindex before changing embedding parameters",
			cfg.IndexCollection,
			manifest.EmbeddingModel, manifest.Metric, manifest.Dimensions,
			cfg.EmbeddingModel, cfg.SimilarityMetric, cfg.VectorDimensions)
	}
	return nil
}

// Insert adds a batch of chunks atomically from the caller's perspective:
// if the catalog write fails, the vectors already added are removed again.
func (s *Store) Insert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	entries := make([]interface{}, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index expects %d",
				ErrDimensionMismatch, c.ID, len(c.Embedding), s.dimension)
		}
		docs = append(docs, chromem.Document{
			ID: c.ID,
			Metadata: map[string]string{
				metaCourseID: strconv.FormatInt(c.CourseID, 10),
				metaFileID:   strconv.FormatInt(c.FileID, 10),
				metaFilename: c.Filename,
			},
			Embedding: c.Embedding,
			Content:   c.Text,
		})
		entries = append(entries, models.ChunkIndexEntry{
			ChunkID:  c.ID,
			CourseID: c.CourseID,
			FileID:   c.FileID,
			Filename: c.Filename,
		})
		ids = append(ids, c.ID)
	}

	if err := s.coll.AddDocuments(ctx, docs, addConcurrency); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}

	if _, err := s.catalog.InsertMany(ctx, entries); err != nil {
		if delErr := s.coll.Delete(ctx, nil, nil, ids...); delErr != nil {
			logger.Error("Rollback of vector insert failed", "error", delErr, "chunks", len(ids))
		}
		return fmt.Errorf("%w: catalog write: %v", ErrIndexWrite, err)
	}
	return nil
}

// Search returns up to k chunks matching the filter, ordered by descending
// similarity. An empty result is a normal outcome, not an error.
func (s *Store) Search(ctx context.Context, embedding []float32, k int, f Filter) ([]SearchResult, error) {
	if !f.valid() {
		return nil, fmt.Errorf("%w: search requires a course or file filter", ErrIndexRead)
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrIndexRead, k)
	}

	// the index rejects nResults above the stored document count, so clamp
	// against the exact filtered count from the catalog
	available, err := s.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	if available == 0 {
		return nil, nil
	}
	if int64(k) > available {
		k = int(available)
	}

	results, err := s.coll.QueryEmbedding(ctx, embedding, k, f.where(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexRead, err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			ChunkID:    r.ID,
			Text:       r.Content,
			Similarity: r.Similarity,
			CourseID:   parseMetaInt(r.Metadata[metaCourseID]),
			FileID:     parseMetaInt(r.Metadata[metaFileID]),
			Filename:   r.Metadata[metaFilename],
		})
	}
	return out, nil
}

// DeleteByFilter removes every chunk matching the filter and reports how
// many were removed. Deleting an empty selection returns 0 with no error.
func (s *Store) DeleteByFilter(ctx context.Context, f Filter) (int64, error) {
	if !f.valid() {
		return 0, fmt.Errorf("%w: delete requires a course or file filter", ErrIndexWrite)
	}

	s.deleteMu.Lock()
	defer s.deleteMu.Unlock()

	count, err := s.catalog.CountDocuments(ctx, f.bsonFilter())
	if err != nil {
		return 0, fmt.Errorf("%w: catalog count: %v", ErrIndexWrite, err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.coll.Delete(ctx, f.where(), nil); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}

	if _, err := s.catalog.DeleteMany(ctx, f.bsonFilter()); err != nil {
		return 0, fmt.Errorf("%w: catalog delete: %v", ErrIndexWrite, err)
	}
	return count, nil
}

// Count returns the exact number of stored chunks matching the filter.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	if !f.valid() {
		return 0, fmt.Errorf("%w: count requires a course or file filter", ErrIndexRead)
	}
	n, err := s.catalog.CountDocuments(ctx, f.bsonFilter())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIndexRead, err)
	}
	return n, nil
}

// FileIDs lists the distinct file IDs that currently have chunks stored,
// used by the orphan sweep to reconcile the index against the files
// collection.
func (s *Store) FileIDs(ctx context.Context) ([]int64, error) {
	raw, err := s.catalog.Distinct(ctx, "file_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexRead, err)
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		switch id := v.(type) {
		case int64:
			ids = append(ids, id)
		case int32:
			ids = append(ids, int64(id))
		}
	}
	return ids, nil
}

func parseMetaInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
