package domain

import "time"

// Category is a node in the discussion category hierarchy. A nil ParentID marks a root.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    *int64    `json:"parentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryNode is a category with its resolved subtree.
type CategoryNode struct {
	Category
	Depth    int            `json:"depth"`
	Children []CategoryNode `json:"children"`
}

// CategoryRequest is the inbound create/edit payload.
type CategoryRequest struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=1000"`
	ParentID    *int64 `json:"parentId" validate:"omitempty,gt=0"`
}

// DeleteMode selects how Delete treats a category that still has children.
type DeleteMode string

const (
	DeleteReject   DeleteMode = "reject"
	DeleteCascade  DeleteMode = "cascade"
	DeleteReparent DeleteMode = "reparent"
)

// ParseDeleteMode maps a query value to a DeleteMode. Empty input selects DeleteReject.
func ParseDeleteMode(s string) (DeleteMode, error) {
	switch DeleteMode(s) {
	case "", DeleteReject:
		return DeleteReject, nil
	case DeleteCascade:
		return DeleteCascade, nil
	case DeleteReparent:
		return DeleteReparent, nil
	}
	return "", ErrInvalidDeleteMode
}
