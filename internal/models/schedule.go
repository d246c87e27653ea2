package models

import "time"

type Schedule struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StartTime        TimeOfDay `json:"startTime"`
	EndTime          TimeOfDay `json:"endTime"`
	Date             Date      `json:"date"`
	Location         *string   `json:"location,omitempty"`
	IsPinned         bool      `json:"isPinned"`
	IsCompleted      bool      `json:"isCompleted"`
	Category         string    `json:"category"`
	IsRecurring      bool      `json:"isRecurring"`
	RecurringPattern *string   `json:"recurringPattern,omitempty"`
	ReminderMinutes  int       `json:"reminderMinutes"`
	CreatedAt        time.Time `json:"createdAt"`
}
