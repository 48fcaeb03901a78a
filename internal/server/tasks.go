package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teemow/szymon/internal/tasks"
)

var deletedResponse = map[string]string{"status": "deleted"}

// taskList returns the task_list_id query parameter or the default list.
func taskList(r *http.Request) string {
	if id := r.URL.Query().Get("task_list_id"); id != "" {
		return id
	}
	return tasks.DefaultTaskList
}

// taskSurface checks that the Tasks adapter exists and writes 503 otherwise.
func (g *Gateway) taskSurface(w http.ResponseWriter, r *http.Request) bool {
	if g.tasks == nil {
		g.writeError(w, r, surfaceTasks, errNotConfigured)
		return false
	}
	return true
}

func (g *Gateway) handleListTaskLists(w http.ResponseWriter, r *http.Request) {
	if !g.taskSurface(w, r) {
		return
	}
	lists, err := g.tasks.ListTaskLists(r.Context())
	if err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (g *Gateway) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if !g.taskSurface(w, r) {
		return
	}

	opts := tasks.DefaultListOptions()
	var err error
	if opts.ShowCompleted, err = queryBool(r, "show_completed", opts.ShowCompleted); err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}
	if opts.ShowHidden, err = queryBool(r, "show_hidden", opts.ShowHidden); err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}

	items, err := g.tasks.ListTasks(r.Context(), taskList(r), opts)
	if err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (g *Gateway) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if !g.taskSurface(w, r) {
		return
	}
	task, err := g.tasks.GetTask(r.Context(), taskList(r), mux.Vars(r)["task_id"])
	if err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (g *Gateway) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	if !g.taskSurface(w, r) {
		return
	}
	var draft tasks.TaskDraft
	if err := decodeJSON(r, &draft); err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}

	listID := taskList(r)
	var created *tasks.Task
	err := g.audited(r, surfaceTasks, "task.create", listID, "", func() (err error) {
		created, err = g.tasks.CreateTask(r.Context(), listID, draft)
		return err
	})
	if err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (g *Gateway) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	if !g.taskSurface(w, r) {
		return
	}
	var patch tasks.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}

	listID, taskID := taskList(r), mux.Vars(r)["task_id"]
	var updated *tasks.Task
	err := g.audited(r, surfaceTasks, "task.update", listID, taskID, func() (err error) {
		updated, err = g.tasks.UpdateTask(r.Context(), listID, taskID, patch)
		return err
	})
	if err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (g *Gateway) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !g.taskSurface(w, r) {
		return
	}
	listID, taskID := taskList(r), mux.Vars(r)["task_id"]
	err := g.audited(r, surfaceTasks, "task.delete", listID, taskID, func() error {
		return g.tasks.DeleteTask(r.Context(), listID, taskID)
	})
	if err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse)
}

func (g *Gateway) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	g.setTaskStatus(w, r, "task.complete", TaskService.CompleteTask)
}

func (g *Gateway) handleUncompleteTask(w http.ResponseWriter, r *http.Request) {
	g.setTaskStatus(w, r, "task.uncomplete", TaskService.UncompleteTask)
}

type statusChange func(s TaskService, ctx context.Context, listID, taskID string) (*tasks.Task, error)

func (g *Gateway) setTaskStatus(w http.ResponseWriter, r *http.Request, action string, change statusChange) {
	if !g.taskSurface(w, r) {
		return
	}
	listID, taskID := taskList(r), mux.Vars(r)["task_id"]
	var updated *tasks.Task
	err := g.audited(r, surfaceTasks, action, listID, taskID, func() (err error) {
		updated, err = change(g.tasks, r.Context(), listID, taskID)
		return err
	})
	if err != nil {
		g.writeError(w, r, surfaceTasks, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
