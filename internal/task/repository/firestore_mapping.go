package repository

import (
	"time"

	"miinplanner-backend/internal/task/domain"
)

// Firestore document layout for the tasks collection. Dates with a time of
// day are stored as native timestamps and surfaced as RFC3339 strings.
// Date-only values stay plain YYYY-MM-DD strings so both stores return
// exactly what was written.

const (
	tasksCollection = "tasks"
	ownerField      = "userId"
)

var dateFields = map[string]bool{"startDate": true, "dueDate": true}

func toDocument(t domain.Task) map[string]interface{} {
	tags := []string(t.Tags)
	if tags == nil {
		tags = []string{}
	}
	return map[string]interface{}{
		ownerField:    t.UserID,
		"title":       t.Title,
		"description": optional(t.Description),
		"priority":    string(t.Priority),
		"status":      t.Status,
		"startDate":   toTimestamp(t.StartDate),
		"dueDate":     toTimestamp(t.DueDate),
		"channel":     optional(t.Channel),
		"assignee":    optional(t.Assignee),
		"tags":        tags,
		"completed":   domain.IsTerminal(t.Status),
		"archived":    t.Archived,
		"order":       t.Order,
		"createdAt":   t.CreatedAt,
		"updatedAt":   t.UpdatedAt,
	}
}

// fromDocument maps a stored document back to a task, backfilling fields
// that older documents may lack.
func fromDocument(id string, data map[string]interface{}, now time.Time) domain.Task {
	t := domain.Task{
		ID:          id,
		UserID:      stringValue(data[ownerField]),
		Title:       stringValue(data["title"]),
		Description: stringPtr(data["description"]),
		Priority:    domain.Priority(stringValue(data["priority"])),
		Status:      stringValue(data["status"]),
		StartDate:   fromTimestamp(data["startDate"]),
		DueDate:     fromTimestamp(data["dueDate"]),
		Channel:     stringPtr(data["channel"]),
		Assignee:    stringPtr(data["assignee"]),
		Tags:        domain.StringArray{},
		CreatedAt:   timeValue(data["createdAt"]),
		UpdatedAt:   timeValue(data["updatedAt"]),
	}

	if !t.Priority.Valid() {
		t.Priority = domain.PriorityMedium
	}
	if t.Status == "" {
		t.Status = domain.DefaultStatuses[0]
	}
	if raw, ok := data["tags"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				t.Tags = append(t.Tags, s)
			}
		}
	}
	if b, ok := data["archived"].(bool); ok {
		t.Archived = b
	}
	switch v := data["order"].(type) {
	case float64:
		t.Order = v
	case int64:
		t.Order = float64(v)
	default:
		t.Order = float64(now.UnixMilli())
	}

	t.Normalize()
	return t
}

// updateFields converts patch fields to their stored representation.
func updateFields(patch domain.Patch) map[string]interface{} {
	fields := patch.WithDerived().Fields()
	for name, value := range fields {
		if !dateFields[name] {
			continue
		}
		if s, ok := value.(string); ok {
			fields[name] = toTimestamp(&s)
		}
	}
	return fields
}

func toTimestamp(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, *s); err == nil {
		return ts.UTC()
	}
	return *s
}

func fromTimestamp(v interface{}) *string {
	switch ts := v.(type) {
	case time.Time:
		s := ts.UTC().Format(time.RFC3339)
		return &s
	case string:
		if ts == "" {
			return nil
		}
		return &ts
	default:
		return nil
	}
}

func optional(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func stringPtr(v interface{}) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func timeValue(v interface{}) time.Time {
	switch ts := v.(type) {
	case time.Time:
		return ts
	case string:
		parsed, err := time.Parse(time.RFC3339, ts)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
