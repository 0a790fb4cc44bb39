package vectorstore

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
)

// Metadata keys attached to every stored chunk.
const (
	metaCourseID = "course_id"
	metaFileID   = "file_id"
	metaFilename = "filename"
)

// Filter selects chunks by course or by file. The zero value matches
// nothing and is rejected by the store; construct filters through ByCourse
// and ByFile only, so arbitrary key/value matching cannot creep in.
type Filter struct {
	courseID *int64
	fileID   *int64
}

// ByCourse selects all chunks belonging to a course.
func ByCourse(courseID int64) Filter {
	return Filter{courseID: &courseID}
}

// ByFile selects all chunks originating from one uploaded file.
func ByFile(fileID int64) Filter {
	return Filter{fileID: &fileID}
}

func (f Filter) valid() bool {
	return f.courseID != nil || f.fileID != nil
}

// CourseID reports the course constraint, if any.
func (f Filter) CourseID() (int64, bool) {
	if f.courseID == nil {
		return 0, false
	}
	return *f.courseID, true
}

// FileID reports the file constraint, if any.
func (f Filter) FileID() (int64, bool) {
	if f.fileID == nil {
		return 0, false
	}
	return *f.fileID, true
}

// where renders the filter as vector-index metadata equality constraints.
func (f Filter) where() map[string]string {
	w := map[string]string{}
	if f.courseID != nil {
		w[metaCourseID] = strconv.FormatInt(*f.courseID, 10)
	}
	if f.fileID != nil {
		w[metaFileID] = strconv.FormatInt(*f.fileID, 10)
	}
	return w
}

// bsonFilter renders the filter against the chunk catalog collection.
func (f Filter) bsonFilter() bson.M {
	m := bson.M{}
	if f.courseID != nil {
		m["course_id"] = *f.courseID
	}
	if f.fileID != nil {
		m["file_id"] = *f.fileID
	}
	return m
}
