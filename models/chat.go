package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatRequest struct {
	CourseID int64  `json:"course_id" binding:"required"`
	Question string `json:"question" binding:"required,min=1,max=2000"`
	TopK     int    `json:"top_k,omitempty" binding:"omitempty,min=1,max=20"`
}

type ChatResponse struct {
	Answer          string    `json:"answer"`
	CourseID        int64     `json:"course_id"`
	RetrievedChunks int       `json:"retrieved_chunks"`
	Timestamp       time.Time `json:"timestamp"`
}

// Message is a stored question/answer exchange for a course.
type Message struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	UserName        string             `bson:"user_name" json:"user_name"`
	CourseID        int64              `bson:"course_id" json:"course_id"`
	Question        string             `bson:"question" json:"question"`
	Answer          string             `bson:"answer" json:"answer"`
	RetrievedChunks int                `bson:"retrieved_chunks" json:"retrieved_chunks"`
	Timestamp       time.Time          `bson:"timestamp" json:"timestamp"`
}
