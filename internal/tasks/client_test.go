package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/szymon/internal/google"
)

// fakeTasksAPI is a minimal in-memory tasks/v1 backend.
type fakeTasksAPI struct {
	mu       sync.Mutex
	tasks    map[string]*tasks.Task
	order    []string
	requests []*http.Request
	bodies   []string
	failWith int
	nextID   int
}

func newFakeTasksAPI(t *testing.T) (*fakeTasksAPI, *httptest.Server) {
	t.Helper()
	f := &fakeTasksAPI{tasks: make(map[string]*tasks.Task)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeTasksAPI) add(task *tasks.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.Id] = task
	f.order = append(f.order, task.Id)
}

func (f *fakeTasksAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTasksAPI) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[len(f.bodies)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func (f *fakeTasksAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, string(body))

	if f.failWith != 0 {
		writeAPIError(w, f.failWith, "Backend Error")
		return
	}

	p := r.URL.Path
	switch {
	case strings.HasSuffix(p, "/users/@me/lists"):
		writeJSON(w, http.StatusOK, tasks.TaskLists{Items: []*tasks.TaskList{
			{Id: "MTIz", Title: "My Tasks", Updated: "2025-10-31T14:00:00.000Z"},
			{Id: "NDU2", Title: "Groceries"},
		}})

	case strings.HasSuffix(p, "/tasks") && r.Method == http.MethodGet:
		// One task per page to exercise paging.
		start := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			_, _ = fmt.Sscanf(tok, "page-%d", &start)
		}
		page := tasks.Tasks{}
		if start < len(f.order) {
			page.Items = []*tasks.Task{f.tasks[f.order[start]]}
		}
		if start+1 < len(f.order) {
			page.NextPageToken = fmt.Sprintf("page-%d", start+1)
		}
		writeJSON(w, http.StatusOK, page)

	case strings.HasSuffix(p, "/tasks") && r.Method == http.MethodPost:
		var task tasks.Task
		if err := json.Unmarshal(body, &task); err != nil {
			writeAPIError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		f.nextID++
		task.Id = fmt.Sprintf("new-%d", f.nextID)
		task.Status = StatusNeedsAction
		f.tasks[task.Id] = &task
		f.order = append(f.order, task.Id)
		writeJSON(w, http.StatusOK, task)

	case strings.Contains(p, "/tasks/"):
		id := path.Base(p)
		existing, ok := f.tasks[id]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Task not found.")
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, existing)
		case http.MethodPut:
			var task tasks.Task
			if err := json.Unmarshal(body, &task); err != nil {
				writeAPIError(w, http.StatusBadRequest, "Invalid JSON")
				return
			}
			task.Id = id
			if task.Status == StatusCompleted && task.Completed == nil {
				ts := "2025-11-01T08:00:00.000Z"
				task.Completed = &ts
			}
			f.tasks[id] = &task
			writeJSON(w, http.StatusOK, task)
		case http.MethodDelete:
			delete(f.tasks, id)
			w.WriteHeader(http.StatusNoContent)
		}

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(srv *httptest.Server, creds google.CredentialSource) *Client {
	return NewClient(creds, WithClientOptions(option.WithEndpoint(srv.URL+"/")))
}

func staticCreds() google.CredentialSource {
	return google.StaticCredentials{Credential: &google.Credential{AccessToken: "ya29.test"}}
}

func strPtr(s string) *string { return &s }

func TestCreateTask_SendsOnlyPresentFields(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	client := newTestClient(srv, staticCreds())

	task, err := client.CreateTask(context.Background(), "", TaskDraft{Title: "Buy milk"})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, StatusNeedsAction, task.Status)

	assert.JSONEq(t, `{"title":"Buy milk"}`, api.lastBody())
	req := api.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "Bearer ya29.test", req.Header.Get("Authorization"))
	assert.Contains(t, req.URL.Path, "/lists/@default/tasks")
}

func TestCreateTask_WithNotesAndDue(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	client := newTestClient(srv, staticCreds())

	_, err := client.CreateTask(context.Background(), "NDU2", TaskDraft{
		Title: "Dentist",
		Notes: strPtr("bring card"),
		Due:   strPtr("2025-11-07T00:00:00.000Z"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Dentist","notes":"bring card","due":"2025-11-07T00:00:00.000Z"}`, api.lastBody())
	assert.Contains(t, api.requests[0].URL.Path, "/lists/NDU2/tasks")
}

func TestCreateTask_RequiresTitle(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	client := newTestClient(srv, staticCreds())

	_, err := client.CreateTask(context.Background(), "", TaskDraft{})
	assert.ErrorIs(t, err, google.ErrInvalidInput)
	assert.Equal(t, 0, api.requestCount())
}

func TestUpdateTask_MergesOnlyPresentFields(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	api.add(&tasks.Task{Id: "t1", Title: "Old", Notes: "keep me", Due: "2025-11-07T00:00:00.000Z", Status: StatusNeedsAction})
	client := newTestClient(srv, staticCreds())

	task, err := client.UpdateTask(context.Background(), "", "t1", TaskPatch{Title: strPtr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", task.Title)
	assert.Equal(t, "keep me", task.Notes)
	assert.Equal(t, "2025-11-07T00:00:00.000Z", task.Due)

	require.Equal(t, 2, api.requestCount(), "read-modify-write is one GET and one PUT")
	assert.Equal(t, http.MethodGet, api.requests[0].Method)
	assert.Equal(t, http.MethodPut, api.requests[1].Method)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.lastBody()), &sent))
	assert.Equal(t, "New", sent["title"])
	assert.Equal(t, "keep me", sent["notes"])
	assert.Equal(t, StatusNeedsAction, sent["status"])
}

func TestUpdateTask_InvalidStatus(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	client := newTestClient(srv, staticCreds())

	_, err := client.UpdateTask(context.Background(), "", "t1", TaskPatch{Status: strPtr("done")})
	assert.ErrorIs(t, err, google.ErrInvalidInput)
	assert.Equal(t, 0, api.requestCount())
}

func TestCompleteAndUncomplete(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	api.add(&tasks.Task{Id: "t1", Title: "Laundry", Status: StatusNeedsAction})
	client := newTestClient(srv, staticCreds())
	ctx := context.Background()

	done, err := client.CompleteTask(ctx, "", "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.NotEmpty(t, done.Completed)

	undone, err := client.UncompleteTask(ctx, "", "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsAction, undone.Status)
	assert.Empty(t, undone.Completed)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.lastBody()), &sent))
	assert.Equal(t, StatusNeedsAction, sent["status"])
	assert.NotContains(t, sent, "completed")
}

func TestGetAndDelete_NotFound(t *testing.T) {
	_, srv := newFakeTasksAPI(t)
	client := newTestClient(srv, staticCreds())
	ctx := context.Background()

	_, err := client.GetTask(ctx, "", "missing")
	assert.ErrorIs(t, err, google.ErrNotFound)

	err = client.DeleteTask(ctx, "", "missing")
	assert.ErrorIs(t, err, google.ErrNotFound)

	_, err = client.UpdateTask(ctx, "", "missing", TaskPatch{Title: strPtr("x")})
	assert.ErrorIs(t, err, google.ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	api.add(&tasks.Task{Id: "t1", Title: "Gone soon"})
	client := newTestClient(srv, staticCreds())

	require.NoError(t, client.DeleteTask(context.Background(), "", "t1"))
	_, err := client.GetTask(context.Background(), "", "t1")
	assert.ErrorIs(t, err, google.ErrNotFound)
}

func TestListTasks_FollowsPagesAndSendsFilters(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	api.add(&tasks.Task{Id: "a", Title: "First"})
	api.add(&tasks.Task{Id: "b", Title: "Second"})
	api.add(&tasks.Task{Id: "c", Title: "Third"})
	client := newTestClient(srv, staticCreds())

	items, err := client.ListTasks(context.Background(), "", DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Third", items[2].Title)
	assert.Equal(t, 3, api.requestCount())

	q := api.requests[0].URL.Query()
	assert.Equal(t, "100", q.Get("maxResults"))
	assert.Equal(t, "true", q.Get("showCompleted"))
	assert.Equal(t, "false", q.Get("showHidden"))
}

func TestListTasks_EmptyIsNotNil(t *testing.T) {
	_, srv := newFakeTasksAPI(t)
	client := newTestClient(srv, staticCreds())

	items, err := client.ListTasks(context.Background(), "", ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestListTaskLists(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	client := newTestClient(srv, staticCreds())

	lists, err := client.ListTaskLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "My Tasks", lists[0].Title)
	assert.Equal(t, "100", api.requests[0].URL.Query().Get("maxResults"))
}

func TestUpstreamError(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	api.failWith = http.StatusInternalServerError
	client := newTestClient(srv, staticCreds())

	_, err := client.ListTaskLists(context.Background())
	require.Error(t, err)

	var upErr *google.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusInternalServerError, upErr.Code)
	assert.Contains(t, err.Error(), "Backend Error")
}

func TestNotAuthenticated_NoUpstreamCall(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	client := newTestClient(srv, google.StaticCredentials{})
	ctx := context.Background()

	_, err := client.ListTaskLists(ctx)
	assert.ErrorIs(t, err, google.ErrNotAuthenticated)
	_, err = client.CreateTask(ctx, "", TaskDraft{Title: "x"})
	assert.ErrorIs(t, err, google.ErrNotAuthenticated)
	err = client.DeleteTask(ctx, "", "t1")
	assert.ErrorIs(t, err, google.ErrNotAuthenticated)

	assert.Equal(t, 0, api.requestCount())
}

func TestRateLimiterCancelled(t *testing.T) {
	api, srv := newFakeTasksAPI(t)
	limiter := google.NewRateLimiterWithConfig("tasks", google.RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	client := NewClient(staticCreds(),
		WithRateLimiter(limiter),
		WithClientOptions(option.WithEndpoint(srv.URL+"/")))

	_, err := client.ListTaskLists(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.ListTaskLists(ctx)
	assert.ErrorIs(t, err, google.ErrThrottled)
	assert.Equal(t, 1, api.requestCount())
}
