package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/teemow/szymon/internal/calendar"
	"github.com/teemow/szymon/internal/google"
	"github.com/teemow/szymon/internal/tasks"
)

type fakeAuth struct {
	mu            sync.Mutex
	issued        int
	exchanged     []string
	exchangeErr   error
	authenticated bool
}

func (f *fakeAuth) AuthorizationURL() (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	state := fmt.Sprintf("state-%d", f.issued)
	return "https://accounts.example.com/o/oauth2/auth?state=" + state, state, nil
}

func (f *fakeAuth) ExchangeCode(_ context.Context, code string) (*google.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanged = append(f.exchanged, code)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	f.authenticated = true
	return &google.Credential{AccessToken: "ya29.test"}, nil
}

func (f *fakeAuth) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

// fakeTasks records the last call and returns err when set.
type fakeTasks struct {
	err       error
	panicWith any

	calls     []string
	listID    string
	taskID    string
	listOpts  tasks.ListOptions
	lastDraft tasks.TaskDraft
	lastPatch tasks.TaskPatch
}

func (f *fakeTasks) record(call, listID, taskID string) {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	f.calls = append(f.calls, call)
	f.listID, f.taskID = listID, taskID
}

func (f *fakeTasks) ListTaskLists(context.Context) ([]tasks.TaskList, error) {
	f.record("ListTaskLists", "", "")
	if f.err != nil {
		return nil, f.err
	}
	return []tasks.TaskList{{ID: "@default", Title: "My Tasks"}}, nil
}

func (f *fakeTasks) ListTasks(_ context.Context, listID string, opts tasks.ListOptions) ([]tasks.Task, error) {
	f.record("ListTasks", listID, "")
	f.listOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return []tasks.Task{{ID: "t1", Title: "Buy milk", Status: tasks.StatusNeedsAction}}, nil
}

func (f *fakeTasks) GetTask(_ context.Context, listID, taskID string) (*tasks.Task, error) {
	f.record("GetTask", listID, taskID)
	if f.err != nil {
		return nil, f.err
	}
	return &tasks.Task{ID: taskID, Title: "Buy milk"}, nil
}

func (f *fakeTasks) CreateTask(_ context.Context, listID string, draft tasks.TaskDraft) (*tasks.Task, error) {
	f.record("CreateTask", listID, "")
	f.lastDraft = draft
	if f.err != nil {
		return nil, f.err
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return &tasks.Task{ID: "new", Title: draft.Title}, nil
}

func (f *fakeTasks) UpdateTask(_ context.Context, listID, taskID string, patch tasks.TaskPatch) (*tasks.Task, error) {
	f.record("UpdateTask", listID, taskID)
	f.lastPatch = patch
	if f.err != nil {
		return nil, f.err
	}
	return &tasks.Task{ID: taskID}, nil
}

func (f *fakeTasks) DeleteTask(_ context.Context, listID, taskID string) error {
	f.record("DeleteTask", listID, taskID)
	return f.err
}

func (f *fakeTasks) CompleteTask(_ context.Context, listID, taskID string) (*tasks.Task, error) {
	f.record("CompleteTask", listID, taskID)
	if f.err != nil {
		return nil, f.err
	}
	return &tasks.Task{ID: taskID, Status: tasks.StatusCompleted}, nil
}

func (f *fakeTasks) UncompleteTask(_ context.Context, listID, taskID string) (*tasks.Task, error) {
	f.record("UncompleteTask", listID, taskID)
	if f.err != nil {
		return nil, f.err
	}
	return &tasks.Task{ID: taskID, Status: tasks.StatusNeedsAction}, nil
}

type fakeCalendar struct {
	err error

	calls     []string
	calID     string
	eventID   string
	query     calendar.EventQuery
	lastDraft calendar.EventDraft
	lastPatch calendar.EventPatch
	quickText string
}

func (f *fakeCalendar) record(call, calID, eventID string) {
	f.calls = append(f.calls, call)
	f.calID, f.eventID = calID, eventID
}

func (f *fakeCalendar) ListCalendars(context.Context) ([]calendar.Calendar, error) {
	f.record("ListCalendars", "", "")
	if f.err != nil {
		return nil, f.err
	}
	return []calendar.Calendar{{ID: "primary", Summary: "Me", Primary: true}}, nil
}

func (f *fakeCalendar) ListEvents(_ context.Context, calID string, q calendar.EventQuery) ([]calendar.Event, error) {
	f.record("ListEvents", calID, "")
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return []calendar.Event{{ID: "e1", Summary: "Standup"}}, nil
}

func (f *fakeCalendar) GetEvent(_ context.Context, calID, eventID string) (*calendar.Event, error) {
	f.record("GetEvent", calID, eventID)
	if f.err != nil {
		return nil, f.err
	}
	return &calendar.Event{ID: eventID}, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, calID string, draft calendar.EventDraft) (*calendar.Event, error) {
	f.record("CreateEvent", calID, "")
	f.lastDraft = draft
	if f.err != nil {
		return nil, f.err
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return &calendar.Event{ID: "new", Summary: draft.Summary}, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, calID, eventID string, patch calendar.EventPatch) (*calendar.Event, error) {
	f.record("UpdateEvent", calID, eventID)
	f.lastPatch = patch
	if f.err != nil {
		return nil, f.err
	}
	return &calendar.Event{ID: eventID}, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, calID, eventID string) error {
	f.record("DeleteEvent", calID, eventID)
	return f.err
}

func (f *fakeCalendar) QuickAdd(_ context.Context, calID, text string) (*calendar.Event, error) {
	f.record("QuickAdd", calID, "")
	f.quickText = text
	if f.err != nil {
		return nil, f.err
	}
	return &calendar.Event{ID: "quick", Summary: text}, nil
}
