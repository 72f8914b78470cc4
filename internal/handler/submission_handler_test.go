package handler_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strconv"
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
)

type submissionTestUploader struct{}

func (s *submissionTestUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

func setupSubmissionApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}, &models.Assignment{}, &models.Submission{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, &submissionTestUploader{}, logger)

	app := fiber.New()
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)

	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		SubmissionHandler: submissionHandler,
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(1))
			return c.Next()
		},
	})

	return app, db
}

func submissionUploadBody(t *testing.T, assignmentID, studentID uint, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("assignment_id", strconv.FormatUint(uint64(assignmentID), 10)))
	require.NoError(t, writer.WriteField("student_id", strconv.FormatUint(uint64(studentID), 10)))
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(file)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestSubmissionHandlerUploadAndFetch(t *testing.T) {
	app, db := setupSubmissionApp(t)

	student := models.User{Name: "Ana Silva", Email: "ana@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	assignment := models.Assignment{
		Title:       "Consensus essay",
		Description: "Explain leader election",
		DueDate:     time.Now().Add(3 * time.Hour),
	}
	require.NoError(t, db.Create(&assignment).Error)

	body, contentType := submissionUploadBody(t, assignment.ID, student.ID, "essay.docx", buildDOCX(t, "raft elects a single leader"))
	req := httptest.NewRequest("POST", "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var createResp struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
		Message string                 `json:"message"`
	}
	decodeResponse(t, resp, &createResp)
	require.True(t, createResp.Success)
	require.NotZero(t, createResp.Data.ID)
	require.Equal(t, models.SubmissionStatusSubmitted, createResp.Data.Status)
	require.Equal(t, "https://files.test/essay.docx", createResp.Data.FileURL)

	getReq := httptest.NewRequest("GET", "/api/v1/submissions/"+strconv.FormatUint(uint64(createResp.Data.ID), 10), nil)
	getResp, err := app.Test(getReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, getResp.StatusCode)

	var getBody struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, getResp, &getBody)
	require.Equal(t, createResp.Data.ID, getBody.Data.ID)
	require.Equal(t, assignment.Title, getBody.Data.Assignment.Title)
	require.Equal(t, "Ana Silva", getBody.Data.Student.Name)
}

func TestSubmissionHandlerListByAssignment(t *testing.T) {
	app, db := setupSubmissionApp(t)

	students := []models.User{
		{Name: "Ana Silva", Email: "ana@example.com", Role: models.RoleStudent},
		{Name: "Ben Osei", Email: "ben@example.com", Role: models.RoleStudent},
	}
	for i := range students {
		require.NoError(t, db.Create(&students[i]).Error)
	}

	assignment := models.Assignment{
		Title:   "Consensus essay",
		DueDate: time.Now().Add(3 * time.Hour),
	}
	require.NoError(t, db.Create(&assignment).Error)
	other := models.Assignment{
		Title:   "Unrelated assignment",
		DueDate: time.Now().Add(3 * time.Hour),
	}
	require.NoError(t, db.Create(&other).Error)

	for i := range students {
		require.NoError(t, db.Create(&models.Submission{
			AssignmentID: assignment.ID,
			StudentID:    students[i].ID,
			Status:       models.SubmissionStatusSubmitted,
		}).Error)
	}
	require.NoError(t, db.Create(&models.Submission{
		AssignmentID: other.ID,
		StudentID:    students[0].ID,
		Status:       models.SubmissionStatusSubmitted,
	}).Error)

	req := httptest.NewRequest("GET", "/api/v1/submissions?assignment_id="+strconv.FormatUint(uint64(assignment.ID), 10), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listBody struct {
		Data []dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &listBody)
	require.Len(t, listBody.Data, 2)
	names := []string{listBody.Data[0].Student.Name, listBody.Data[1].Student.Name}
	require.ElementsMatch(t, []string{"Ana Silva", "Ben Osei"}, names)
	for _, item := range listBody.Data {
		require.Equal(t, assignment.ID, item.AssignmentID)
	}
}

func TestSubmissionHandlerListUnknownAssignment(t *testing.T) {
	app, _ := setupSubmissionApp(t)

	req := httptest.NewRequest("GET", "/api/v1/submissions?assignment_id=4040", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmissionHandlerRejectsPastDue(t *testing.T) {
	app, db := setupSubmissionApp(t)

	student := models.User{Name: "Ben Osei", Email: "ben@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	assignment := models.Assignment{
		Title:   "Late essay",
		DueDate: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&assignment).Error)

	body, contentType := submissionUploadBody(t, assignment.ID, student.ID, "essay.docx", buildDOCX(t, "late work"))
	req := httptest.NewRequest("POST", "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSubmissionHandlerRejectsUnknownAssignment(t *testing.T) {
	app, _ := setupSubmissionApp(t)

	body, contentType := submissionUploadBody(t, 4040, 1, "essay.docx", buildDOCX(t, "essay"))
	req := httptest.NewRequest("POST", "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
