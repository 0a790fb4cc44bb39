package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course uses a sequential integer ID so that chunk metadata in the vector
// index can carry a stable numeric course_id.
type Course struct {
	ID          int64              `bson:"_id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	TeacherID   primitive.ObjectID `bson:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required,min=2,max=200"`
	Description string `json:"description" binding:"max=2000"`
}
