package models

// ChunkIndexEntry is the catalog record for one chunk living in the vector
// index. Keeping a separate collection enables exact filtered counts and
// filtered deletes without scanning the vector store, and lets the orphan
// sweep compare indexed file IDs against the files collection.
type ChunkIndexEntry struct {
	ChunkID  string `bson:"chunk_id"`
	CourseID int64  `bson:"course_id"`
	FileID   int64  `bson:"file_id"`
	Filename string `bson:"filename"`
}

// IndexManifest pins the parameters the vector index was created with.
// A mismatch at startup is a configuration error: vectors produced with a
// different model, metric or dimensionality are geometrically incomparable.
type IndexManifest struct {
	Collection     string `bson:"_id"`
	Metric         string `bson:"metric"`
	Dimensions     int    `bson:"dimensions"`
	EmbeddingModel string `bson:"embedding_model"`
}
