package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"elearning-chat-platform/models"
)

// PermissionService answers course access questions against the courses
// and enrollments collections.
type PermissionService struct {
	db *mongo.Database
}

func NewPermissionService(db *mongo.Database) *PermissionService {
	return &PermissionService{db: db}
}

func (p *PermissionService) CourseExists(ctx context.Context, courseID int64) (bool, error) {
	n, err := p.db.Collection("courses").CountDocuments(ctx, bson.M{"_id": courseID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *PermissionService) OwnsCourse(ctx context.Context, courseID int64, teacherID primitive.ObjectID) (bool, error) {
	n, err := p.db.Collection("courses").CountDocuments(ctx, bson.M{"_id": courseID, "teacher_id": teacherID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *PermissionService) IsEnrolled(ctx context.Context, courseID int64, studentID primitive.ObjectID) (bool, error) {
	n, err := p.db.Collection("enrollments").CountDocuments(ctx, bson.M{"course_id": courseID, "student_id": studentID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CanAccessCourse decides whether a user may read a course's materials and
// chat against them. Admins always can, teachers through ownership,
// students through enrollment.
func (p *PermissionService) CanAccessCourse(ctx context.Context, courseID int64, userID primitive.ObjectID, role string) (bool, error) {
	switch role {
	case models.RoleAdmin:
		return p.CourseExists(ctx, courseID)
	case models.RoleTeacher:
		return p.OwnsCourse(ctx, courseID, userID)
	case models.RoleStudent:
		return p.IsEnrolled(ctx, courseID, userID)
	default:
		return false, nil
	}
}
