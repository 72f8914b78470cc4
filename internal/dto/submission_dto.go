package dto

import (
	"time"

	"github.com/veritas-lms/veritas-go-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for submission upload.
type SubmissionCreateRequest struct {
	AssignmentID uint `form:"assignment_id" validate:"required,gt=0"`
	StudentID    uint `form:"student_id" validate:"required,gt=0"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                         uint           `json:"id"`
	AssignmentID               uint           `json:"assignment_id"`
	StudentID                  uint           `json:"student_id"`
	FileURL                    string         `json:"file_url"`
	Status                     string         `json:"status"`
	Score                      float64        `json:"score"`
	PlagiarismRisk             *string        `json:"plagiarism_risk"`
	PlagiarismSimilarity       *float64       `json:"plagiarism_similarity"`
	PlagiarismStatus           string         `json:"plagiarism_status"`
	PlagiarismMatchedStudentID *uint          `json:"plagiarism_matched_student_id"`
	TeacherRemark              string         `json:"teacher_remark"`
	CreatedAt                  time.Time      `json:"created_at"`
	UpdatedAt                  time.Time      `json:"updated_at"`
	Assignment                 AssignmentLite `json:"assignment"`
	Student                    UserLite       `json:"student"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID      uint      `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// UserLite summarizes a user without exposing full profile data.
type UserLite struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:                         model.ID,
		AssignmentID:               model.AssignmentID,
		StudentID:                  model.StudentID,
		FileURL:                    model.FileURL,
		Status:                     model.Status,
		Score:                      model.Score,
		PlagiarismRisk:             model.PlagiarismRisk,
		PlagiarismSimilarity:       model.PlagiarismSimilarity,
		PlagiarismStatus:           model.PlagiarismStatus,
		PlagiarismMatchedStudentID: model.PlagiarismMatchedStudentID,
		TeacherRemark:              model.TeacherRemark,
		CreatedAt:                  model.CreatedAt,
		UpdatedAt:                  model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:      model.Assignment.ID,
			Title:   model.Assignment.Title,
			DueDate: model.Assignment.DueDate,
		}
	}

	if model.Student.ID != 0 {
		response.Student = UserLite{
			ID:   model.Student.ID,
			Name: model.Student.Name,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, submission := range items {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
