package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Submission represents a file submitted by a student for an assignment,
// together with the plagiarism-detection artefacts computed for it.
type Submission struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	AssignmentID uint    `gorm:"not null;index" json:"assignment_id"`
	StudentID    uint    `gorm:"not null;index" json:"student_id"`
	FileURL      string  `gorm:"size:512" json:"file_url"`
	Status       string  `gorm:"size:32;not null" json:"status"`
	Score        float64 `json:"score"`

	// SubmissionText is the normalized extracted text, truncated before
	// storage. It is written before any scoring runs so later submissions
	// always have something to compare against.
	SubmissionText string `gorm:"type:text" json:"submission_text"`
	// Embedding is the semantic fingerprint serialized as a JSON array.
	// Written at most once and reused by subsequent comparisons.
	Embedding datatypes.JSON `gorm:"type:json" json:"embedding,omitempty"`

	PlagiarismRisk             *string  `gorm:"size:16" json:"plagiarism_risk"`
	PlagiarismSimilarity       *float64 `json:"plagiarism_similarity"`
	PlagiarismStatus           string   `gorm:"size:32" json:"plagiarism_status"`
	PlagiarismMatchedStudentID *uint    `json:"plagiarism_matched_student_id"`
	TeacherRemark              string   `gorm:"type:text" json:"teacher_remark"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Assignment Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student    User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

const (
	// SubmissionStatusSubmitted indicates the submission has been uploaded.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusReviewed indicates a teacher has completed review.
	SubmissionStatusReviewed = "reviewed"
)

// Plagiarism risk verdicts.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

// Plagiarism workflow statuses. Teacher decisions are terminal: no code
// path re-runs detection after approval or rejection.
const (
	PlagiarismStatusAccepted        = "accepted"
	PlagiarismStatusNeedsReview     = "needs_manual_review"
	PlagiarismStatusFlagged         = "flagged_for_review"
	PlagiarismStatusTeacherApproved = "approved_by_teacher"
	PlagiarismStatusTeacherRejected = "rejected_by_teacher"
)

// HasEmbedding reports whether a semantic fingerprint has been stored.
func (s Submission) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// EmbeddingVector decodes the stored embedding, or nil when absent or
// unreadable.
func (s Submission) EmbeddingVector() []float64 {
	if len(s.Embedding) == 0 {
		return nil
	}
	var vector []float64
	if err := json.Unmarshal(s.Embedding, &vector); err != nil {
		return nil
	}
	return vector
}

// SetEmbeddingVector serializes the vector into the embedding column.
func (s *Submission) SetEmbeddingVector(vector []float64) error {
	payload, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	s.Embedding = datatypes.JSON(payload)
	return nil
}

// ReviewLocked reports whether a teacher decision already closed the
// plagiarism workflow for this submission.
func (s Submission) ReviewLocked() bool {
	return s.PlagiarismStatus == PlagiarismStatusTeacherApproved ||
		s.PlagiarismStatus == PlagiarismStatusTeacherRejected
}
