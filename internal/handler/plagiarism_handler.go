package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/veritas-lms/veritas-go-api/internal/dto"
	"github.com/veritas-lms/veritas-go-api/internal/service"
	"github.com/veritas-lms/veritas-go-api/internal/utils"
)

// PlagiarismHandler exposes the detection pipeline and the teacher review
// workflow.
type PlagiarismHandler struct {
	service service.PlagiarismService
	logger  zerolog.Logger
}

// NewPlagiarismHandler builds a plagiarism handler instance.
func NewPlagiarismHandler(service service.PlagiarismService, logger zerolog.Logger) *PlagiarismHandler {
	return &PlagiarismHandler{
		service: service,
		logger:  logger.With().Str("component", "plagiarism_handler").Logger(),
	}
}

// Check runs the detection pipeline for an uploaded submission file.
func (h *PlagiarismHandler) Check(c *fiber.Ctx) error {
	assignmentID, err := parseFormUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	submissionID, err := parseFormUint(c, "submission_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	payload := dto.PlagiarismCheckRequest{
		AssignmentID: assignmentID,
		SubmissionID: submissionID,
	}

	result, err := h.service.Check(c.UserContext(), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "plagiarism check completed", result)
}

// Flagged lists high and moderate risk submissions in the teacher's courses.
func (h *PlagiarismHandler) Flagged(c *fiber.Ctx) error {
	teacherID := userIDFromContext(c)
	if teacherID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	rows, err := h.service.Flagged(c.UserContext(), teacherID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "flagged submissions retrieved", rows)
}

// Review applies a teacher's approve or reject decision.
func (h *PlagiarismHandler) Review(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PlagiarismReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Review(c.UserContext(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "review applied", result)
}

func (h *PlagiarismHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrNoExtractableText):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "no extractable text in submission file")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrSubmissionMismatch):
		return utils.SendError(c, fiber.StatusBadRequest, "submission does not belong to assignment")
	case errors.Is(err, service.ErrReviewLocked):
		return utils.SendError(c, fiber.StatusConflict, "submission already reviewed by teacher")
	case errors.Is(err, service.ErrInvalidReviewAction):
		return utils.SendError(c, fiber.StatusBadRequest, "action must be approve or reject")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
