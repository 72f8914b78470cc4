package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/veritas-lms/veritas-go-api/internal/models"
)

// NotificationCreateRequest describes the payload to create a notification.
type NotificationCreateRequest struct {
	UserID  uint                   `json:"user_id" validate:"required,gt=0"`
	Title   string                 `json:"title" validate:"omitempty,max=255"`
	Type    string                 `json:"type" validate:"required,max=64"`
	Message string                 `json:"message" validate:"required,min=1,max=4000"`
	Data    map[string]interface{} `json:"data"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"user_id"`
	Title     string                 `json:"title"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Read      bool                   `json:"read"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Title:     model.Title,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		Data:      map[string]interface{}(model.Data),
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// NotificationData builds the structured payload stored on a notification.
func NotificationData(values map[string]interface{}) datatypes.JSONMap {
	if len(values) == 0 {
		return nil
	}
	return datatypes.JSONMap(values)
}
