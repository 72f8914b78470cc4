package handler_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veritas-lms/veritas-go-api/internal/config"
	"github.com/veritas-lms/veritas-go-api/internal/dto"
	"github.com/veritas-lms/veritas-go-api/internal/handler"
	"github.com/veritas-lms/veritas-go-api/internal/models"
	"github.com/veritas-lms/veritas-go-api/internal/repository"
	"github.com/veritas-lms/veritas-go-api/internal/router"
	"github.com/veritas-lms/veritas-go-api/internal/service"
	"github.com/veritas-lms/veritas-go-api/pkg/textextract"
)

type fixedEmbedder struct {
	vector []float64
}

func (e fixedEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	return e.vector, nil
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var b bytes.Buffer
	zw := zip.NewWriter(&b)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)

	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document><w:body>`)
	for _, p := range paragraphs {
		doc.WriteString(`<w:p><w:r><w:t>`)
		doc.WriteString(p)
		doc.WriteString(`</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	_, err = f.Write([]byte(doc.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return b.Bytes()
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

type plagiarismTestEnv struct {
	app *fiber.App
	db  *gorm.DB
}

func setupPlagiarismApp(t *testing.T, embedVector []float64) plagiarismTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}, &models.Assignment{}, &models.Submission{}, &models.Notification{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, nil, "", nil, validate, logger)
	plagiarismService := service.NewPlagiarismService(
		submissionRepo,
		assignmentRepo,
		userRepo,
		notificationService,
		textextract.New(logger),
		fixedEmbedder{vector: embedVector},
		nil,
		nil,
		0,
		service.DefaultPolicyConfig(),
		validate,
		logger,
	)

	app := fiber.New()
	plagiarismHandler := handler.NewPlagiarismHandler(plagiarismService, logger)

	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		PlagiarismHandler: plagiarismHandler,
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(900))
			c.Locals("user_role", models.RoleTeacher)
			return c.Next()
		},
	})

	return plagiarismTestEnv{app: app, db: db}
}

func seedAssignment(t *testing.T, db *gorm.DB) models.Assignment {
	t.Helper()

	teacher := models.User{ID: 900, Name: "Prof. Osei", Email: "osei@example.com", Role: models.RoleTeacher}
	require.NoError(t, db.Create(&teacher).Error)
	course := models.Course{Title: "Distributed Systems", TeacherID: teacher.ID}
	require.NoError(t, db.Create(&course).Error)
	assignment := models.Assignment{
		CourseID:    course.ID,
		Title:       "Consensus essay",
		Description: "Explain leader election",
		DueDate:     time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func seedStudentSubmission(t *testing.T, db *gorm.DB, assignmentID uint, name, email, text string, vector []float64) models.Submission {
	t.Helper()

	student := models.User{Name: name, Email: email, Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)
	submission := models.Submission{
		AssignmentID:   assignmentID,
		StudentID:      student.ID,
		Status:         models.SubmissionStatusSubmitted,
		SubmissionText: text,
	}
	if vector != nil {
		require.NoError(t, submission.SetEmbeddingVector(vector))
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func checkRequestBody(t *testing.T, assignmentID, submissionID uint, file []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("assignment_id", strconv.FormatUint(uint64(assignmentID), 10)))
	require.NoError(t, writer.WriteField("submission_id", strconv.FormatUint(uint64(submissionID), 10)))
	part, err := writer.CreateFormFile("file", "essay.docx")
	require.NoError(t, err)
	_, err = part.Write(file)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

const consensusEssay = "raft elects a single leader per term and replicates log entries to followers before commit"

func TestPlagiarismCheckEndpointFlagsCopiedWork(t *testing.T) {
	env := setupPlagiarismApp(t, []float64{1, 0})
	assignment := seedAssignment(t, env.db)

	peer := seedStudentSubmission(t, env.db, assignment.ID, "Ana Silva", "ana@example.com", consensusEssay, []float64{1, 0})
	target := seedStudentSubmission(t, env.db, assignment.ID, "Ben Osei", "ben@example.com", "", nil)

	body, contentType := checkRequestBody(t, assignment.ID, target.ID, buildDOCX(t, consensusEssay))
	req := httptest.NewRequest("POST", "/api/v1/plagiarism/check", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := env.app.Test(req, 10000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                        `json:"success"`
		Data    dto.PlagiarismCheckResponse `json:"data"`
		Message string                      `json:"message"`
	}
	decodeResponse(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, models.RiskHigh, payload.Data.RiskLevel)
	require.Equal(t, models.PlagiarismStatusFlagged, payload.Data.ActionTaken)
	require.NotNil(t, payload.Data.MatchedStudentID)
	require.Equal(t, peer.StudentID, *payload.Data.MatchedStudentID)

	// Teacher received a notification about the flag.
	var notifications []models.Notification
	require.NoError(t, env.db.Where("user_id = ?", uint(900)).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	require.Equal(t, models.NotificationTypePlagiarismAlert, notifications[0].Type)
}

func TestPlagiarismCheckEndpointFirstSubmission(t *testing.T) {
	env := setupPlagiarismApp(t, []float64{1, 0})
	assignment := seedAssignment(t, env.db)
	target := seedStudentSubmission(t, env.db, assignment.ID, "Ben Osei", "ben@example.com", "", nil)

	body, contentType := checkRequestBody(t, assignment.ID, target.ID, buildDOCX(t, consensusEssay))
	req := httptest.NewRequest("POST", "/api/v1/plagiarism/check", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := env.app.Test(req, 10000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.PlagiarismCheckResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Equal(t, models.RiskLow, payload.Data.RiskLevel)
	require.Nil(t, payload.Data.SemanticSimilarity)

	// The embedding was still stored for future comparisons.
	var stored models.Submission
	require.NoError(t, env.db.First(&stored, target.ID).Error)
	require.True(t, stored.HasEmbedding())
}

func TestPlagiarismCheckEndpointRejectsEmptyDocument(t *testing.T) {
	env := setupPlagiarismApp(t, []float64{1, 0})
	assignment := seedAssignment(t, env.db)
	target := seedStudentSubmission(t, env.db, assignment.ID, "Ben Osei", "ben@example.com", "", nil)

	body, contentType := checkRequestBody(t, assignment.ID, target.ID, []byte("not a document"))
	req := httptest.NewRequest("POST", "/api/v1/plagiarism/check", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := env.app.Test(req, 10000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPlagiarismCheckEndpointUnknownSubmission(t *testing.T) {
	env := setupPlagiarismApp(t, []float64{1, 0})
	assignment := seedAssignment(t, env.db)

	body, contentType := checkRequestBody(t, assignment.ID, 4040, buildDOCX(t, consensusEssay))
	req := httptest.NewRequest("POST", "/api/v1/plagiarism/check", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := env.app.Test(req, 10000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPlagiarismFlaggedEndpoint(t *testing.T) {
	env := setupPlagiarismApp(t, []float64{1, 0})
	assignment := seedAssignment(t, env.db)

	flagged := seedStudentSubmission(t, env.db, assignment.ID, "Ana Silva", "ana@example.com", consensusEssay, nil)
	risk := models.RiskHigh
	similarity := 0.91
	flagged.PlagiarismRisk = &risk
	flagged.PlagiarismSimilarity = &similarity
	flagged.PlagiarismStatus = models.PlagiarismStatusFlagged
	require.NoError(t, env.db.Save(&flagged).Error)

	req := httptest.NewRequest("GET", "/api/v1/plagiarism/flagged", nil)
	resp, err := env.app.Test(req, 10000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data []dto.FlaggedSubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Len(t, payload.Data, 1)
	require.Equal(t, flagged.ID, payload.Data[0].SubmissionID)
	require.Equal(t, "Ana Silva", payload.Data[0].StudentName)
	require.InDelta(t, 0.91, payload.Data[0].PlagiarismSimilarity, 1e-9)
}

func TestPlagiarismReviewEndpointRejectIsTerminal(t *testing.T) {
	env := setupPlagiarismApp(t, []float64{1, 0})
	assignment := seedAssignment(t, env.db)

	flagged := seedStudentSubmission(t, env.db, assignment.ID, "Ana Silva", "ana@example.com", consensusEssay, nil)
	flagged.PlagiarismStatus = models.PlagiarismStatusFlagged
	flagged.Score = 88
	require.NoError(t, env.db.Save(&flagged).Error)

	reviewPayload, err := json.Marshal(map[string]string{"action": "reject", "remark": "near verbatim copy"})
	require.NoError(t, err)

	url := "/api/v1/plagiarism/submissions/" + strconv.FormatUint(uint64(flagged.ID), 10) + "/review"
	req := httptest.NewRequest("POST", url, bytes.NewReader(reviewPayload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req, 10000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.PlagiarismReviewResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	require.Equal(t, models.PlagiarismStatusTeacherRejected, payload.Data.Status)

	var stored models.Submission
	require.NoError(t, env.db.First(&stored, flagged.ID).Error)
	require.Zero(t, stored.Score)
	require.Equal(t, models.SubmissionStatusReviewed, stored.Status)

	// Second decision is refused.
	req = httptest.NewRequest("POST", url, bytes.NewReader(reviewPayload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = env.app.Test(req, 10000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
