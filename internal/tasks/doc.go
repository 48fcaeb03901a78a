// Package tasks adapts the Google Tasks API (tasks/v1) for the gateway.
//
// Every call passes through a google.CredentialSource gate first, so an
// unauthenticated client never reaches Google. Drafts and patches use
// pointer fields: a nil field is absent and leaves the stored value alone.
//
// Updates are read-modify-write. The task is fetched, the present fields of
// the patch are applied and the whole task is written back.
//
//	client := tasks.NewClient(session, tasks.WithRateLimiter(google.NewRateLimiter("tasks")))
//
//	task, err := client.CreateTask(ctx, "", tasks.TaskDraft{Title: "Buy milk"})
//	if err != nil {
//	    return err
//	}
//	_, err = client.CompleteTask(ctx, "", task.ID)
package tasks
