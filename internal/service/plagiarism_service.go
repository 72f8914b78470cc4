package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/veritas-lms/veritas-go-api/internal/dto"
	"github.com/veritas-lms/veritas-go-api/internal/models"
	"github.com/veritas-lms/veritas-go-api/internal/observability"
	"github.com/veritas-lms/veritas-go-api/internal/repository"
	"github.com/veritas-lms/veritas-go-api/pkg/embed"
	"github.com/veritas-lms/veritas-go-api/pkg/textutil"
	"github.com/veritas-lms/veritas-go-api/pkg/tfidf"
)

// ErrNoExtractableText indicates the uploaded document yielded no text.
// This is the only detection failure surfaced to the caller.
var ErrNoExtractableText = errors.New("no extractable text in submission file")

// ErrSubmissionMismatch indicates the submission does not belong to the
// given assignment.
var ErrSubmissionMismatch = errors.New("submission does not belong to assignment")

// ErrReviewLocked indicates a teacher decision already closed the
// plagiarism workflow for the submission.
var ErrReviewLocked = errors.New("submission already reviewed by teacher")

// ErrInvalidReviewAction indicates an unsupported review action.
var ErrInvalidReviewAction = errors.New("invalid review action")

// TextExtractor converts submitted file bytes into plain text. An empty
// result means "could not extract".
type TextExtractor interface {
	Extract(filename string, raw []byte) string
}

// PlagiarismService runs the two-stage detection pipeline and the teacher
// review workflow.
type PlagiarismService interface {
	Check(ctx context.Context, payload dto.PlagiarismCheckRequest, file *multipart.FileHeader) (dto.PlagiarismCheckResponse, error)
	Flagged(ctx context.Context, teacherID uint) ([]dto.FlaggedSubmissionResponse, error)
	Review(ctx context.Context, submissionID uint, payload dto.PlagiarismReviewRequest) (dto.PlagiarismReviewResponse, error)
}

type plagiarismService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	notifier    NotificationService
	extractor   TextExtractor
	embedder    embed.Embedder
	uploader    FileUploader
	policy      PolicyConfig
	locks       *assignmentLocker
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewPlagiarismService constructs the detection service. The embedder and
// uploader may be nil; detection then degrades to structural-only scoring
// and skips archiving the original file.
func NewPlagiarismService(
	subRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	userRepo repository.UserRepository,
	notifier NotificationService,
	extractor TextExtractor,
	embedder embed.Embedder,
	uploader FileUploader,
	redisClient *redis.Client,
	lockTTL time.Duration,
	policy PolicyConfig,
	validate *validator.Validate,
	logger zerolog.Logger,
) PlagiarismService {
	componentLogger := logger.With().Str("component", "plagiarism_service").Logger()

	return &plagiarismService{
		submissions: subRepo,
		assignments: assignmentRepo,
		users:       userRepo,
		notifier:    notifier,
		extractor:   extractor,
		embedder:    embedder,
		uploader:    uploader,
		policy:      policy,
		locks:       newAssignmentLocker(redisClient, lockTTL, componentLogger),
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      componentLogger,
	}
}

func (s *plagiarismService) Check(ctx context.Context, payload dto.PlagiarismCheckRequest, file *multipart.FileHeader) (dto.PlagiarismCheckResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PlagiarismCheckResponse{}, err
	}

	if file == nil {
		return dto.PlagiarismCheckResponse{}, fmt.Errorf("submission file is required")
	}

	submission, err := s.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PlagiarismCheckResponse{}, ErrSubmissionNotFound
		}
		return dto.PlagiarismCheckResponse{}, err
	}

	if submission.AssignmentID != payload.AssignmentID {
		return dto.PlagiarismCheckResponse{}, ErrSubmissionMismatch
	}

	if submission.ReviewLocked() {
		return dto.PlagiarismCheckResponse{}, ErrReviewLocked
	}

	raw, err := readFile(file)
	if err != nil {
		return dto.PlagiarismCheckResponse{}, fmt.Errorf("failed to read file: %w", err)
	}

	normalized := textutil.Truncate(s.normalizeDocument(file.Filename, raw), textutil.MaxStoredTextLength)
	if normalized == "" {
		return dto.PlagiarismCheckResponse{}, ErrNoExtractableText
	}

	start := time.Now()
	unlock := s.locks.Lock(ctx, submission.AssignmentID)
	defer unlock()

	// Persist the text before any scoring so later submissions can compare
	// against this one even if scoring below fails.
	submission.SubmissionText = normalized
	s.archiveOriginal(ctx, &submission, file)
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.PlagiarismCheckResponse{}, err
	}

	peers, err := s.submissions.ListPeers(ctx, submission.AssignmentID, submission.ID)
	if err != nil {
		return dto.PlagiarismCheckResponse{}, err
	}

	priorTexts := make([]string, len(peers))
	for i, peer := range peers {
		priorTexts[i] = peer.SubmissionText
	}

	structural := tfidf.BestMatch(normalized, priorTexts)

	// The embedding is generated even when the semantic pass is skipped for
	// classification: future submissions need it to compare against.
	vector := s.ensureEmbedding(ctx, &submission, normalized)

	semantic := SemanticOutcome{}
	if len(peers) > 0 && structural.Score >= s.policy.Stage1Threshold && vector != nil {
		candidates := make([]embed.Candidate, 0, len(peers))
		for _, peer := range peers {
			candidates = append(candidates, embed.Candidate{
				StudentID: peer.StudentID,
				Vector:    peer.EmbeddingVector(),
			})
		}
		if match := embed.BestMatch(vector, candidates); match.Found {
			semantic = SemanticOutcome{Scored: true, Score: match.Score, StudentID: match.StudentID}
		}
	}

	verdict := s.policy.Classify(len(peers) > 0, structural.Score, semantic)

	// The structural match is preferred for attribution even when the
	// semantic pass found a different best candidate: a shared-wording match
	// is directly traceable to a specific source.
	var matchedStudentID *uint
	switch {
	case structural.Index >= 0:
		id := peers[structural.Index].StudentID
		matchedStudentID = &id
	case semantic.Scored:
		id := semantic.StudentID
		matchedStudentID = &id
	}

	risk := verdict.Risk
	similarity := verdict.Similarity
	submission.PlagiarismRisk = &risk
	submission.PlagiarismSimilarity = &similarity
	submission.PlagiarismStatus = verdict.Status
	submission.PlagiarismMatchedStudentID = matchedStudentID

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.PlagiarismCheckResponse{}, err
	}

	observability.PlagiarismChecksTotal().WithLabelValues(verdict.Risk).Inc()
	observability.PlagiarismCheckDuration().Observe(time.Since(start).Seconds())

	if verdict.Risk == models.RiskHigh {
		s.notifyTeacher(ctx, submission, verdict.Similarity, matchedStudentID)
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", submission.AssignmentID).
		Str("risk", verdict.Risk).
		Float64("similarity", verdict.Similarity).
		Bool("semantic_scored", semantic.Scored).
		Msg("plagiarism check completed")

	return dto.PlagiarismCheckResponse{
		SubmissionID:         submission.ID,
		StructuralSimilarity: structural.Score,
		SemanticSimilarity:   verdict.Semantic,
		MatchedStudentID:     matchedStudentID,
		RiskLevel:            verdict.Risk,
		ActionTaken:          verdict.Status,
	}, nil
}

func (s *plagiarismService) Flagged(ctx context.Context, teacherID uint) ([]dto.FlaggedSubmissionResponse, error) {
	submissions, err := s.submissions.ListFlaggedByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.NewFlaggedSubmissionResponseSlice(submissions), nil
}

func (s *plagiarismService) Review(ctx context.Context, submissionID uint, payload dto.PlagiarismReviewRequest) (dto.PlagiarismReviewResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PlagiarismReviewResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PlagiarismReviewResponse{}, ErrSubmissionNotFound
		}
		return dto.PlagiarismReviewResponse{}, err
	}

	if submission.ReviewLocked() {
		return dto.PlagiarismReviewResponse{}, ErrReviewLocked
	}

	remark := s.sanitizer.Sanitize(payload.Remark)

	var message string
	switch payload.Action {
	case "approve":
		submission.PlagiarismStatus = models.PlagiarismStatusTeacherApproved
		message = "submission approved"
	case "reject":
		submission.PlagiarismStatus = models.PlagiarismStatusTeacherRejected
		submission.Score = 0
		message = "submission rejected"
	default:
		return dto.PlagiarismReviewResponse{}, ErrInvalidReviewAction
	}

	submission.Status = models.SubmissionStatusReviewed
	if remark != "" {
		submission.TeacherRemark = remark
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.PlagiarismReviewResponse{}, err
	}

	s.notifyStudent(ctx, submission, payload.Action, remark)

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Str("action", payload.Action).
		Msg("plagiarism review applied")

	return dto.PlagiarismReviewResponse{
		Message: message,
		Status:  submission.PlagiarismStatus,
	}, nil
}

func (s *plagiarismService) normalizeDocument(filename string, raw []byte) string {
	text := s.extractor.Extract(filename, raw)
	return textutil.Normalize(text)
}

// ensureEmbedding returns the submission's stored embedding, generating and
// attaching one when absent. Provider failures degrade to "no embedding".
func (s *plagiarismService) ensureEmbedding(ctx context.Context, submission *models.Submission, text string) []float64 {
	if vector := submission.EmbeddingVector(); vector != nil {
		return vector
	}

	if s.embedder == nil {
		return nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		observability.EmbeddingFallbacksTotal().Inc()
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("embedding unavailable, falling back to structural scoring")
		return nil
	}

	if err := submission.SetEmbeddingVector(vector); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to serialize embedding")
		return vector
	}

	return vector
}

// archiveOriginal keeps a copy of the submitted file in object storage. A
// verdict delivered without the archived file is still a verdict, so upload
// failures only log.
func (s *plagiarismService) archiveOriginal(ctx context.Context, submission *models.Submission, file *multipart.FileHeader) {
	if s.uploader == nil || submission.FileURL != "" {
		return
	}

	reader, err := file.Open()
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to reopen file for archiving")
		return
	}
	defer reader.Close()

	url, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to archive submission file")
		return
	}

	submission.FileURL = url
}

func (s *plagiarismService) notifyTeacher(ctx context.Context, submission models.Submission, similarity float64, matchedStudentID *uint) {
	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", submission.AssignmentID).Msg("skipping plagiarism alert, assignment lookup failed")
		return
	}

	studentName := fmt.Sprintf("student %d", submission.StudentID)
	if student, err := s.users.GetByID(ctx, submission.StudentID); err == nil {
		studentName = student.Name
	}

	data := map[string]interface{}{
		"submission_id": submission.ID,
		"assignment_id": submission.AssignmentID,
		"similarity":    similarity,
	}
	if matchedStudentID != nil {
		data["matched_student_id"] = *matchedStudentID
	}

	payload := dto.NotificationCreateRequest{
		UserID: assignment.Course.TeacherID,
		Title:  "High plagiarism risk detected",
		Type:   models.NotificationTypePlagiarismAlert,
		Message: fmt.Sprintf("%s's submission to %q was flagged with %.1f%% similarity to another submission.",
			studentName, assignment.Title, similarity*100),
		Data: data,
	}

	if _, err := s.notifier.Publish(ctx, payload); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to notify teacher of plagiarism flag")
	}
}

func (s *plagiarismService) notifyStudent(ctx context.Context, submission models.Submission, action, remark string) {
	var title, message string
	switch action {
	case "approve":
		title = "Submission cleared"
		message = "Your submission was reviewed and cleared of the plagiarism flag."
	case "reject":
		title = "Submission rejected"
		message = "Your submission was rejected for plagiarism and scored 0."
	}
	if remark != "" {
		message = fmt.Sprintf("%s Teacher remark: %s", message, remark)
	}

	payload := dto.NotificationCreateRequest{
		UserID:  submission.StudentID,
		Title:   title,
		Type:    models.NotificationTypePlagiarismReview,
		Message: message,
		Data: map[string]interface{}{
			"submission_id": submission.ID,
			"action":        action,
		},
	}

	if _, err := s.notifier.Publish(ctx, payload); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to notify student of review outcome")
	}
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
