package vectorstore

import "testing"

func TestByCourseFilter(t *testing.T) {
	f := ByCourse(42)

	if !f.valid() {
		t.Fatal("ByCourse filter should be valid")
	}

	w := f.where()
	if w[metaCourseID] != "42" {
		t.Errorf("expected course_id 42, got %q", w[metaCourseID])
	}
	if _, ok := w[metaFileID]; ok {
		t.Error("course filter must not constrain file_id")
	}

	m := f.bsonFilter()
	if m["course_id"] != int64(42) {
		t.Errorf("expected bson course_id 42, got %v", m["course_id"])
	}
	if len(m) != 1 {
		t.Errorf("expected single-key bson filter, got %v", m)
	}
}

func TestByFileFilter(t *testing.T) {
	f := ByFile(7)

	if !f.valid() {
		t.Fatal("ByFile filter should be valid")
	}

	w := f.where()
	if w[metaFileID] != "7" {
		t.Errorf("expected file_id 7, got %q", w[metaFileID])
	}
	if _, ok := w[metaCourseID]; ok {
		t.Error("file filter must not constrain course_id")
	}
}

func TestZeroFilterInvalid(t *testing.T) {
	var f Filter
	if f.valid() {
		t.Error("zero filter must be invalid")
	}
}

func TestParseMetaInt(t *testing.T) {
	if got := parseMetaInt("1234"); got != 1234 {
		t.Errorf("parseMetaInt(1234) = %d", got)
	}
	if got := parseMetaInt("garbage"); got != 0 {
		t.Errorf("parseMetaInt(garbage) = %d, want 0", got)
	}
	if got := parseMetaInt(""); got != 0 {
		t.Errorf("parseMetaInt(empty) = %d, want 0", got)
	}
}
