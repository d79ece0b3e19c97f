package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tarely-backend/pkg/models"
)

// ErrBadOutput marks model output that could not be parsed into the
// expected shape. Handlers translate it into an upstream error response.
var ErrBadOutput = fmt.Errorf("model output did not match expected format")

// ExtractJSON returns the first balanced {...} object found in raw.
// Models often wrap JSON in prose or markdown fences.
func ExtractJSON(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseSubtasks extracts subtask titles from model output. At least two
// are required; anything past five is dropped.
func ParseSubtasks(raw string) ([]string, error) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return nil, ErrBadOutput
	}
	var parsed struct {
		Subtasks []string `json:"subtasks"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil, ErrBadOutput
	}
	titles := make([]string, 0, len(parsed.Subtasks))
	for _, t := range parsed.Subtasks {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) < 2 {
		return nil, ErrBadOutput
	}
	if len(titles) > 5 {
		titles = titles[:5]
	}
	return titles, nil
}

type rawTaskDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Importance  *int     `json:"importance"`
	DueDate     string   `json:"dueDate"`
	Tags        []string `json:"tags"`
}

// ParseTaskDrafts extracts task drafts from model output. tagsByName maps
// lowercase tag names to tag IDs; unknown tag names are dropped silently.
func ParseTaskDrafts(raw string, tagsByName map[string]string) ([]models.TaskDraft, error) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return nil, ErrBadOutput
	}
	var parsed struct {
		Tasks []rawTaskDraft `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil, ErrBadOutput
	}

	drafts := make([]models.TaskDraft, 0, len(parsed.Tasks))
	for _, t := range parsed.Tasks {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		draft := models.TaskDraft{
			Title:       title,
			Description: strings.TrimSpace(t.Description),
			Importance:  5,
		}
		if t.Importance != nil && *t.Importance >= 1 && *t.Importance <= 10 {
			draft.Importance = *t.Importance
		}
		if t.DueDate != "" {
			if due, err := time.Parse(time.RFC3339, t.DueDate); err == nil {
				draft.DueDate = &due
			}
		}
		for _, name := range t.Tags {
			if id, ok := tagsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
				draft.TagIDs = append(draft.TagIDs, id)
			}
		}
		drafts = append(drafts, draft)
	}
	if len(drafts) == 0 {
		return nil, ErrBadOutput
	}
	return drafts, nil
}

// ParseDocument extracts a rich-text document from model output. When the
// output is not a valid document, the whole text is wrapped into a single
// paragraph so the action still produces something usable.
func ParseDocument(raw string) models.Document {
	if obj, ok := ExtractJSON(raw); ok {
		var doc models.Document
		if err := json.Unmarshal([]byte(obj), &doc); err == nil && doc.Type == "doc" && len(doc.Blocks) > 0 {
			return doc
		}
	}
	return models.PlainDocument(strings.TrimSpace(raw))
}
