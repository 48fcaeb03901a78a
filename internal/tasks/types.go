package tasks

import (
	"fmt"

	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/szymon/internal/google"
)

// DefaultTaskList is Google's alias for the user's default list.
const DefaultTaskList = "@default"

// Task status values
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

const maxResults = 100

// TaskList represents a Google Tasks task list
type TaskList struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Updated string `json:"updated,omitempty"`
}

// Task represents a Google Tasks task. Timestamps are RFC 3339 strings
// exactly as Google returns them.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Notes       string `json:"notes,omitempty"`
	Status      string `json:"status"`
	Due         string `json:"due,omitempty"`
	Completed   string `json:"completed,omitempty"`
	Parent      string `json:"parent,omitempty"`
	Position    string `json:"position,omitempty"`
	Updated     string `json:"updated,omitempty"`
	WebViewLink string `json:"webViewLink,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
	Links       []Link `json:"links,omitempty"`
}

// Link represents a related link in a task
type Link struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link"`
}

// TaskDraft is the input for creating a task. Title is required.
type TaskDraft struct {
	Title string  `json:"title"`
	Notes *string `json:"notes,omitempty"`
	Due   *string `json:"due,omitempty"` // RFC 3339
}

// Validate checks the draft before any upstream call.
func (d TaskDraft) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("%w: title is required", google.ErrInvalidInput)
	}
	return nil
}

// TaskPatch is a partial update. A nil field is absent and leaves the
// stored value unchanged; a non-nil field replaces it, even when empty.
type TaskPatch struct {
	Title  *string `json:"title,omitempty"`
	Notes  *string `json:"notes,omitempty"`
	Due    *string `json:"due,omitempty"`
	Status *string `json:"status,omitempty"`
}

// Validate checks the patch before any upstream call.
func (p TaskPatch) Validate() error {
	if p.Status != nil && *p.Status != StatusNeedsAction && *p.Status != StatusCompleted {
		return fmt.Errorf("%w: status must be %q or %q", google.ErrInvalidInput, StatusNeedsAction, StatusCompleted)
	}
	return nil
}

// ListOptions filters ListTasks.
type ListOptions struct {
	ShowCompleted bool
	ShowHidden    bool
}

// DefaultListOptions shows completed tasks and hides hidden ones.
func DefaultListOptions() ListOptions {
	return ListOptions{ShowCompleted: true}
}

// draftToTask builds the insert body. Only present, non-empty optional
// fields are sent.
func draftToTask(d TaskDraft) *tasks.Task {
	t := &tasks.Task{Title: d.Title}
	if d.Notes != nil && *d.Notes != "" {
		t.Notes = *d.Notes
	}
	if d.Due != nil && *d.Due != "" {
		t.Due = *d.Due
	}
	return t
}

// applyPatch overlays the present fields of p onto t.
func applyPatch(t *tasks.Task, p TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Due != nil {
		t.Due = *p.Due
	}
	if p.Status != nil {
		t.Status = *p.Status
		if t.Status == StatusNeedsAction {
			t.Completed = nil
		}
	}
}

// toTaskList converts a Google Tasks TaskList to our TaskList type
func toTaskList(tl *tasks.TaskList) TaskList {
	if tl == nil {
		return TaskList{}
	}

	return TaskList{
		ID:      tl.Id,
		Title:   tl.Title,
		Updated: tl.Updated,
	}
}

// toTask converts a Google Tasks Task to our Task type
func toTask(t *tasks.Task) Task {
	if t == nil {
		return Task{}
	}

	result := Task{
		ID:          t.Id,
		Title:       t.Title,
		Notes:       t.Notes,
		Status:      t.Status,
		Due:         t.Due,
		Parent:      t.Parent,
		Position:    t.Position,
		Updated:     t.Updated,
		WebViewLink: t.WebViewLink,
		Hidden:      t.Hidden,
	}

	if t.Completed != nil {
		result.Completed = *t.Completed
	}

	if len(t.Links) > 0 {
		result.Links = make([]Link, len(t.Links))
		for i, link := range t.Links {
			result.Links[i] = Link{
				Type:        link.Type,
				Description: link.Description,
				Link:        link.Link,
			}
		}
	}

	return result
}
