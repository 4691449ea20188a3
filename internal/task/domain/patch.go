package domain

import (
	"fmt"
	"slices"
)

// Patch is a partial task update. Nil fields are left untouched; an empty
// string on a date clears it.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Status      *string   `json:"status,omitempty"`
	StartDate   *string   `json:"startDate,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Channel     *string   `json:"channel,omitempty"`
	Assignee    *string   `json:"assignee,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Archived    *bool     `json:"archived,omitempty"`
	Order       *float64  `json:"order,omitempty"`

	// Completed is derived from Status and never accepted from clients.
	Completed *bool `json:"-"`
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Status == nil && p.StartDate == nil && p.DueDate == nil &&
		p.Channel == nil && p.Assignee == nil && p.Tags == nil &&
		p.Archived == nil && p.Order == nil && p.Completed == nil
}

// WithDerived fills Completed from Status when the status changes.
func (p Patch) WithDerived() Patch {
	if p.Status != nil {
		c := IsTerminal(*p.Status)
		p.Completed = &c
	}
	return p
}

// Apply returns t with the patch applied.
func (p Patch) Apply(t Task) Task {
	t = t.Clone()
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = clearable(*p.Description)
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
		t.Completed = IsTerminal(t.Status)
	}
	if p.StartDate != nil {
		t.StartDate = clearable(*p.StartDate)
	}
	if p.DueDate != nil {
		t.DueDate = clearable(*p.DueDate)
	}
	if p.Channel != nil {
		t.Channel = clearable(*p.Channel)
	}
	if p.Assignee != nil {
		t.Assignee = clearable(*p.Assignee)
	}
	if p.Tags != nil {
		t.Tags = StringArray(slices.Clone(*p.Tags))
		if t.Tags == nil {
			t.Tags = StringArray{}
		}
	}
	if p.Archived != nil {
		t.Archived = *p.Archived
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// Fields lists the changed fields keyed by their JSON name. Cleared
// optional fields map to nil.
func (p Patch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = nullable(*p.Description)
	}
	if p.Priority != nil {
		fields["priority"] = string(*p.Priority)
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.StartDate != nil {
		fields["startDate"] = nullable(*p.StartDate)
	}
	if p.DueDate != nil {
		fields["dueDate"] = nullable(*p.DueDate)
	}
	if p.Channel != nil {
		fields["channel"] = nullable(*p.Channel)
	}
	if p.Assignee != nil {
		fields["assignee"] = nullable(*p.Assignee)
	}
	if p.Tags != nil {
		tags := slices.Clone(*p.Tags)
		if tags == nil {
			tags = []string{}
		}
		fields["tags"] = tags
	}
	if p.Archived != nil {
		fields["archived"] = *p.Archived
	}
	if p.Order != nil {
		fields["order"] = *p.Order
	}
	if p.Completed != nil {
		fields["completed"] = *p.Completed
	}
	return fields
}

// PatchForField builds a single-field patch from a loosely typed value, as
// sent by inline editors.
func PatchForField(field string, value interface{}) (Patch, error) {
	var p Patch
	switch field {
	case "title", "description", "status", "startDate", "dueDate", "channel", "assignee", "priority":
		s, ok := value.(string)
		if !ok && value != nil {
			return p, fmt.Errorf("field %s expects a string, got %T", field, value)
		}
		switch field {
		case "title":
			p.Title = &s
		case "description":
			p.Description = &s
		case "status":
			p.Status = &s
		case "startDate":
			p.StartDate = &s
		case "dueDate":
			p.DueDate = &s
		case "channel":
			p.Channel = &s
		case "assignee":
			p.Assignee = &s
		case "priority":
			pr := Priority(s)
			p.Priority = &pr
		}
	case "archived":
		b, ok := value.(bool)
		if !ok {
			return p, fmt.Errorf("field %s expects a boolean, got %T", field, value)
		}
		p.Archived = &b
	case "order":
		f, ok := value.(float64)
		if !ok {
			return p, fmt.Errorf("field %s expects a number, got %T", field, value)
		}
		p.Order = &f
	case "tags":
		tags, err := toStrings(value)
		if err != nil {
			return p, fmt.Errorf("field %s: %w", field, err)
		}
		p.Tags = &tags
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return p, nil
}

func toStrings(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return slices.Clone(v), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string items, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
}

func clearable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
