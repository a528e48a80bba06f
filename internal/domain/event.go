package domain

import "time"

type CategoryEventType string

const (
	CategoryCreated CategoryEventType = "category.created"
	CategoryUpdated CategoryEventType = "category.updated"
	CategoryDeleted CategoryEventType = "category.deleted"
)

// CategoryEvent is published after a committed category mutation.
type CategoryEvent struct {
	ID         string            `json:"id"`
	Type       CategoryEventType `json:"type"`
	CategoryID int64             `json:"categoryId"`
	Name       string            `json:"name"`
	ParentID   *int64            `json:"parentId,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
	RequestID  string            `json:"requestId,omitempty"`
}
