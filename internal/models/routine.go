package models

import "time"

// Routine is a recurring personal habit. Frequency is a free-form descriptor
// such as "daily" or "weekdays".
type Routine struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Frequency    string     `json:"frequency"`
	IsPinned     bool       `json:"isPinned"`
	ReminderTime *TimeOfDay `json:"reminderTime,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	IsActive     bool       `json:"isActive"`
}

// RoutineCompletion records that a routine was done on a given day.
type RoutineCompletion struct {
	ID             string    `json:"id"`
	RoutineID      string    `json:"routineId"`
	CompletionDate Date      `json:"completionDate"`
	CompletedAt    time.Time `json:"completedAt"`
}
