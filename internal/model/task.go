package model

import "time"

// Task represents a row in the `tasks` table. Every task belongs to
// exactly one owner; OwnerID is set at creation and never reassigned.
//
// Fields:
//  ID          – primary key identifier of the task.
//  OwnerID     – users.id of the owner.
//  Title       – short title, 1..255 characters.
//  Description – optional free text, up to 1000 characters.
//  Completed   – whether the task is done.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Task struct {
	ID          uint64    `json:"id"`           // tasks.id
	OwnerID     uint64    `json:"owner_id"`     // tasks.owner_id
	Title       string    `json:"title"`        // tasks.title
	Description string    `json:"description"`  // tasks.description (empty when NULL)
	Completed   bool      `json:"completed"`    // tasks.completed
	CreatedAt   time.Time `json:"created_at"`   // tasks.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // tasks.updated_at
}

// TaskStats aggregates per-owner task counts. Pending is always
// Total minus Completed.
type TaskStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}
