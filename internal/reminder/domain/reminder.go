package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrInvalidRemindAt  = errors.New("remindAt must be an RFC3339 timestamp")
)

// EventTriggered is the event type published when a reminder fires
const EventTriggered = "reminder.triggered"

// Reminder is a one-shot notification scheduled by a user
type Reminder struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"userId" gorm:"index;not null"`
	Title     string    `json:"title" gorm:"not null"`
	RemindAt  time.Time `json:"remindAt" gorm:"index"`
	Triggered bool      `json:"triggered" gorm:"index"`
	TaskID    *string   `json:"taskId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Input struct {
	Title    string  `json:"title" binding:"required"`
	RemindAt string  `json:"remindAt" binding:"required"`
	TaskID   *string `json:"taskId"`
}

// NewReminder validates input and builds an untriggered reminder
func NewReminder(userID string, in Input) (*Reminder, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	at, err := time.Parse(time.RFC3339, in.RemindAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRemindAt, in.RemindAt)
	}
	r := &Reminder{UserID: userID, Title: title, RemindAt: at.UTC()}
	if in.TaskID != nil && *in.TaskID != "" {
		id := *in.TaskID
		r.TaskID = &id
	}
	return r, nil
}

// TriggeredEvent is the message carried on the reminders topic
type TriggeredEvent struct {
	Type       string    `json:"type"`
	ReminderID string    `json:"reminderId"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	TaskID     string    `json:"taskId,omitempty"`
	RemindAt   time.Time `json:"remindAt"`
}

func NewTriggeredEvent(r Reminder) TriggeredEvent {
	e := TriggeredEvent{
		Type:       EventTriggered,
		ReminderID: r.ID,
		UserID:     r.UserID,
		Title:      r.Title,
		RemindAt:   r.RemindAt,
	}
	if r.TaskID != nil {
		e.TaskID = *r.TaskID
	}
	return e
}
