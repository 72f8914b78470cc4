package dto

import (
	"time"

	"github.com/veritas-lms/veritas-go-api/internal/models"
)

// PlagiarismCheckRequest describes the multipart payload for running a check.
type PlagiarismCheckRequest struct {
	AssignmentID uint `form:"assignment_id" validate:"required,gt=0"`
	SubmissionID uint `form:"submission_id" validate:"required,gt=0"`
}

// PlagiarismCheckResponse reports the outcome of one detection run.
type PlagiarismCheckResponse struct {
	SubmissionID         uint     `json:"submission_id"`
	StructuralSimilarity float64  `json:"structural_similarity"`
	SemanticSimilarity   *float64 `json:"semantic_similarity"`
	MatchedStudentID     *uint    `json:"matched_student_id"`
	RiskLevel            string   `json:"risk_level"`
	ActionTaken          string   `json:"action_taken"`
}

// FlaggedSubmissionResponse summarizes a risky submission for the teacher
// dashboard.
type FlaggedSubmissionResponse struct {
	SubmissionID         uint      `json:"submission_id"`
	StudentID            uint      `json:"student_id"`
	StudentName          string    `json:"student_name"`
	AssignmentID         uint      `json:"assignment_id"`
	AssignmentTitle      string    `json:"assignment_title"`
	CourseID             uint      `json:"course_id"`
	PlagiarismRisk       string    `json:"plagiarism_risk"`
	PlagiarismSimilarity float64   `json:"plagiarism_similarity"`
	PlagiarismStatus     string    `json:"plagiarism_status"`
	SubmittedAt          time.Time `json:"submitted_at"`
}

// NewFlaggedSubmissionResponse converts a submission with preloaded
// associations into a dashboard row.
func NewFlaggedSubmissionResponse(model models.Submission) FlaggedSubmissionResponse {
	row := FlaggedSubmissionResponse{
		SubmissionID:     model.ID,
		StudentID:        model.StudentID,
		StudentName:      model.Student.Name,
		AssignmentID:     model.AssignmentID,
		AssignmentTitle:  model.Assignment.Title,
		CourseID:         model.Assignment.CourseID,
		PlagiarismStatus: model.PlagiarismStatus,
		SubmittedAt:      model.CreatedAt,
	}

	if model.PlagiarismRisk != nil {
		row.PlagiarismRisk = *model.PlagiarismRisk
	}
	if model.PlagiarismSimilarity != nil {
		row.PlagiarismSimilarity = *model.PlagiarismSimilarity
	}

	return row
}

// NewFlaggedSubmissionResponseSlice converts submissions into dashboard rows.
func NewFlaggedSubmissionResponseSlice(items []models.Submission) []FlaggedSubmissionResponse {
	out := make([]FlaggedSubmissionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewFlaggedSubmissionResponse(item))
	}
	return out
}

// PlagiarismReviewRequest is the teacher's approve/reject decision.
type PlagiarismReviewRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Remark string `json:"remark" validate:"omitempty,max=2000"`
}

// PlagiarismReviewResponse confirms the applied decision.
type PlagiarismReviewResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}
