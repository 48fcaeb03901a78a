package tasks

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/szymon/internal/google"
	"github.com/teemow/szymon/internal/instrumentation"
)

// Client wraps the Google Tasks service.
//
// A new tasks.Service is built for every call from the credential returned
// by the gate, so a refreshed token is picked up immediately.
type Client struct {
	creds   google.CredentialSource
	limiter *google.RateLimiter
	metrics *instrumentation.Metrics
	opts    []option.ClientOption
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimiter throttles outbound calls.
func WithRateLimiter(l *google.RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithMetrics records google_api_operations_total on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClientOptions appends options to every service, e.g. an endpoint
// override in tests.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Client) { c.opts = append(c.opts, opts...) }
}

// NewClient creates a Tasks client that authorizes through creds.
func NewClient(creds google.CredentialSource, opts ...Option) *Client {
	c := &Client{creds: creds}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// service waits on the limiter, passes the credential gate and builds a
// service for one call. Gate errors are returned unchanged.
func (c *Client) service(ctx context.Context) (*tasks.Service, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cred, err := c.creds.ValidCredentials(ctx)
	if err != nil {
		return nil, err
	}

	opts := append([]option.ClientOption{option.WithTokenSource(google.TokenSource(cred))}, c.opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
	}
	return svc, nil
}

// call runs fn inside a span and records the operation metric.
func (c *Client) call(ctx context.Context, operation string, attrs *instrumentation.SpanAttributeBuilder, fn func(context.Context, *tasks.Service) error) error {
	svc, err := c.service(ctx)
	if err != nil {
		return err
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceTasks, operation, attrs.Build()...)
	defer span.End()

	start := time.Now()
	err = fn(ctx, svc)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceTasks, operation, status, time.Since(start))
	return err
}

func listID(id string) string {
	if id == "" {
		return DefaultTaskList
	}
	return id
}

// ListTaskLists lists the user's task lists.
func (c *Client) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	taskLists := []TaskList{}
	attrs := instrumentation.NewSpanAttributeBuilder().WithResource("task_list", "").WithReadOnly(true)

	err := c.call(ctx, instrumentation.OperationList, attrs, func(ctx context.Context, svc *tasks.Service) error {
		result, err := svc.Tasklists.List().MaxResults(maxResults).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to list task lists", err)
		}
		for _, tl := range result.Items {
			taskLists = append(taskLists, toTaskList(tl))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return taskLists, nil
}

// ListTasks lists tasks in a task list, following pages until exhausted.
// An empty taskListID means DefaultTaskList.
func (c *Client) ListTasks(ctx context.Context, taskListID string, opts ListOptions) ([]Task, error) {
	taskListID = listID(taskListID)
	items := []Task{}
	attrs := instrumentation.NewSpanAttributeBuilder().WithContainer(taskListID).WithResource("task", "").WithReadOnly(true)

	err := c.call(ctx, instrumentation.OperationList, attrs, func(ctx context.Context, svc *tasks.Service) error {
		call := svc.Tasks.List(taskListID).
			MaxResults(maxResults).
			ShowCompleted(opts.ShowCompleted).
			ShowHidden(opts.ShowHidden)

		err := call.Pages(ctx, func(page *tasks.Tasks) error {
			for _, t := range page.Items {
				items = append(items, toTask(t))
			}
			return nil
		})
		if err != nil {
			return google.WrapAPIError("failed to list tasks", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetTask retrieves a specific task by ID.
func (c *Client) GetTask(ctx context.Context, taskListID, taskID string) (*Task, error) {
	taskListID = listID(taskListID)
	var result Task
	attrs := instrumentation.NewSpanAttributeBuilder().WithContainer(taskListID).WithResource("task", taskID).WithReadOnly(true)

	err := c.call(ctx, instrumentation.OperationGet, attrs, func(ctx context.Context, svc *tasks.Service) error {
		t, err := svc.Tasks.Get(taskListID, taskID).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to get task", err)
		}
		result = toTask(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateTask creates a new task. Absent or empty notes and due are not sent.
func (c *Client) CreateTask(ctx context.Context, taskListID string, draft TaskDraft) (*Task, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	taskListID = listID(taskListID)
	var result Task
	attrs := instrumentation.NewSpanAttributeBuilder().WithContainer(taskListID).WithResource("task", "").WithReadOnly(false)

	err := c.call(ctx, instrumentation.OperationCreate, attrs, func(ctx context.Context, svc *tasks.Service) error {
		created, err := svc.Tasks.Insert(taskListID, draftToTask(draft)).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to create task", err)
		}
		result = toTask(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateTask fetches the task, overlays the present fields of patch and
// writes the whole task back.
//
// This is not atomic: a change made elsewhere between the read and the
// write is overwritten.
func (c *Client) UpdateTask(ctx context.Context, taskListID, taskID string, patch TaskPatch) (*Task, error) {
	return c.update(ctx, instrumentation.OperationUpdate, taskListID, taskID, patch)
}

func (c *Client) update(ctx context.Context, operation, taskListID, taskID string, patch TaskPatch) (*Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	taskListID = listID(taskListID)
	var result Task
	attrs := instrumentation.NewSpanAttributeBuilder().WithContainer(taskListID).WithResource("task", taskID).WithReadOnly(false)

	err := c.call(ctx, operation, attrs, func(ctx context.Context, svc *tasks.Service) error {
		existing, err := svc.Tasks.Get(taskListID, taskID).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to get existing task", err)
		}

		applyPatch(existing, patch)

		updated, err := svc.Tasks.Update(taskListID, taskID, existing).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to update task", err)
		}
		result = toTask(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteTask deletes a task. A task that is already gone yields ErrNotFound.
func (c *Client) DeleteTask(ctx context.Context, taskListID, taskID string) error {
	taskListID = listID(taskListID)
	attrs := instrumentation.NewSpanAttributeBuilder().WithContainer(taskListID).WithResource("task", taskID).WithReadOnly(false)

	return c.call(ctx, instrumentation.OperationDelete, attrs, func(ctx context.Context, svc *tasks.Service) error {
		if err := svc.Tasks.Delete(taskListID, taskID).Context(ctx).Do(); err != nil {
			return google.WrapAPIError("failed to delete task", err)
		}
		return nil
	})
}

// CompleteTask marks a task as completed. Google sets the completion time.
func (c *Client) CompleteTask(ctx context.Context, taskListID, taskID string) (*Task, error) {
	status := StatusCompleted
	return c.update(ctx, instrumentation.OperationComplete, taskListID, taskID, TaskPatch{Status: &status})
}

// UncompleteTask marks a task as not completed and clears its completion time.
func (c *Client) UncompleteTask(ctx context.Context, taskListID, taskID string) (*Task, error) {
	status := StatusNeedsAction
	return c.update(ctx, instrumentation.OperationUncomplete, taskListID, taskID, TaskPatch{Status: &status})
}
