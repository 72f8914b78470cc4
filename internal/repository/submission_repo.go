package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/veritas-lms/veritas-go-api/internal/models"
)

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	// ListByAssignment returns every submission for an assignment in upload
	// order, with relations preloaded for API responses.
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error)
	// ListPeers returns the other submissions for an assignment, with the
	// stored text and embedding needed for similarity comparison.
	ListPeers(ctx context.Context, assignmentID, excludeID uint) ([]models.Submission, error)
	// ListFlaggedByTeacher returns high/moderate risk submissions in the
	// teacher's courses, most similar first.
	ListFlaggedByTeacher(ctx context.Context, teacherID uint) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Assignment.Course").
		Preload("Student")
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListPeers(ctx context.Context, assignmentID, excludeID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("id", "student_id", "submission_text", "embedding").
		Where("assignment_id = ?", assignmentID).
		Where("id <> ?", excludeID).
		Order("created_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListFlaggedByTeacher(ctx context.Context, teacherID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Joins("JOIN courses ON courses.id = assignments.course_id").
		Where("courses.teacher_id = ?", teacherID).
		Where("submissions.plagiarism_risk IN ?", []string{models.RiskHigh, models.RiskModerate}).
		Order("submissions.plagiarism_similarity DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}
