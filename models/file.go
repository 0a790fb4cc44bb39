package models

import "time"

// File indexing status constants
const (
	FileStatusPending    = "pending"
	FileStatusProcessing = "processing"
	FileStatusIndexed    = "indexed"
	FileStatusFailed     = "failed"
)

// CourseFile is the relational record of an uploaded course-material file.
// The ID is a sequential integer so that chunk metadata in the vector index
// can carry a stable numeric file_id.
type CourseFile struct {
	ID            int64      `bson:"_id" json:"id"`
	CourseID      int64      `bson:"course_id" json:"course_id"`
	Filename      string     `bson:"filename" json:"filename"` // unique stored name
	OriginalName  string     `bson:"original_name" json:"original_name"`
	FilePath      string     `bson:"file_path" json:"-"`
	Size          int64      `bson:"size" json:"size"`
	ContentType   string     `bson:"content_type,omitempty" json:"content_type,omitempty"`
	Status        string     `bson:"status" json:"status"`
	ErrorMessage  string     `bson:"error_message,omitempty" json:"error_message,omitempty"`
	ChunksIndexed int        `bson:"chunks_indexed" json:"chunks_indexed"`
	UploadedAt    time.Time  `bson:"uploaded_at" json:"uploaded_at"`
	IndexedAt     *time.Time `bson:"indexed_at,omitempty" json:"indexed_at,omitempty"`
}

// UploadResponse is returned after a file upload is accepted.
type UploadResponse struct {
	ID            int64  `json:"id"`
	Filename      string `json:"filename"`
	Status        string `json:"status"`
	ChunksIndexed int    `json:"chunks_indexed,omitempty"`
	Message       string `json:"message"`
}
