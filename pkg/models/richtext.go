package models

import "strings"

// Document is the structured rich-text content of a note. It is stored as
// JSON and projected to plain text for search and word counting.
type Document struct {
	Type   string  `json:"type"` // always "doc"
	Blocks []Block `json:"blocks"`
}

// Block is one element of a document. Text blocks (paragraph, heading) carry
// Text; list blocks (bullet_list, checklist) carry Items.
type Block struct {
	Type  string   `json:"type"`
	Text  string   `json:"text,omitempty"`
	Level int      `json:"level,omitempty"` // heading level
	Items []string `json:"items,omitempty"`
}

// PlainDocument wraps free text in a single-paragraph document. Used as the
// fallback when an AI response cannot be parsed as a structured document.
func PlainDocument(text string) Document {
	return Document{
		Type:   "doc",
		Blocks: []Block{{Type: "paragraph", Text: text}},
	}
}

// IsEmpty reports whether the document has no content blocks.
func (d Document) IsEmpty() bool {
	return len(d.Blocks) == 0
}

// PlainText flattens the document to newline-separated text.
func (d Document) PlainText() string {
	var sb strings.Builder
	for _, b := range d.Blocks {
		if b.Text != "" {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(b.Text)
		}
		for _, item := range b.Items {
			if item == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(item)
		}
	}
	return sb.String()
}

// WordCount counts whitespace-separated words in the plain-text projection.
func (d Document) WordCount() int {
	return len(strings.Fields(d.PlainText()))
}
