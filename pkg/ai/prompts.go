package ai

import (
	"fmt"
	"strings"
)

// Note agent actions supported by NoteActionPrompt.
const (
	ActionSummarize     = "summarize"
	ActionImprove       = "improve"
	ActionExpand        = "expand"
	ActionChecklist     = "checklist"
	ActionExtractTasks  = "extract_tasks"
	ActionTranslate     = "translate"
	ActionFormat        = "format"
	ActionRewrite       = "rewrite"
	ActionAddSection    = "add_section"
	ActionRemoveSection = "remove_section"
	ActionAsk           = "ask"
)

// MutatingAction reports whether the action rewrites the note document.
// "ask" and "extract_tasks" only read the note.
func MutatingAction(action string) bool {
	switch action {
	case ActionAsk, ActionExtractTasks:
		return false
	default:
		return true
	}
}

// KnownAction reports whether the action name is one the agent supports.
func KnownAction(action string) bool {
	switch action {
	case ActionSummarize, ActionImprove, ActionExpand, ActionChecklist,
		ActionExtractTasks, ActionTranslate, ActionFormat, ActionRewrite,
		ActionAddSection, ActionRemoveSection, ActionAsk:
		return true
	}
	return false
}

const documentSchema = `The document format is JSON:
{"type":"doc","blocks":[{"type":"paragraph","text":"..."},{"type":"heading","text":"...","level":2},{"type":"bullet_list","items":["...","..."]}]}
Block types: "paragraph" (text), "heading" (text, level 1-3), "bullet_list" or "checklist" (items).
Respond with ONLY the JSON document, no markdown fences, no commentary.`

// SubtaskSystemPrompt instructs the model to break a task into subtasks,
// grounding it in the workspace the task belongs to.
func SubtaskSystemPrompt(workspaceName, workspaceDescription, workspaceInstructions string) string {
	var b strings.Builder
	b.WriteString(`You are a task planning assistant. Given a task title and optional description, break it into between 2 and 5 concrete, actionable subtasks.
Respond with ONLY a JSON object of the form {"subtasks":["first step","second step"]}. No markdown, no commentary.`)
	if strings.TrimSpace(workspaceName) != "" {
		fmt.Fprintf(&b, "\nThe task belongs to the workspace %q.", workspaceName)
	}
	if strings.TrimSpace(workspaceDescription) != "" {
		fmt.Fprintf(&b, "\nWorkspace description: %s", workspaceDescription)
	}
	if strings.TrimSpace(workspaceInstructions) != "" {
		fmt.Fprintf(&b, "\nWorkspace context: %s", workspaceInstructions)
	}
	return b.String()
}

// SubtaskUserPrompt renders the task for subtask generation.
func SubtaskUserPrompt(title, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", title)
	if strings.TrimSpace(description) != "" {
		fmt.Fprintf(&b, "Description: %s\n", description)
	}
	return b.String()
}

// TaskGenSystemPrompt instructs the model to turn free text into task drafts.
func TaskGenSystemPrompt(workspaceInstructions string, tagNames []string) string {
	var b strings.Builder
	b.WriteString(`You are a task extraction assistant. Turn the user's text into a list of tasks.
Respond with ONLY a JSON object of the form:
{"tasks":[{"title":"...","description":"...","importance":5,"dueDate":"2024-01-31T00:00:00Z","tags":["tagname"]}]}
Rules: "title" is required; "description", "importance" (1-10), "dueDate" (RFC3339) and "tags" are optional.
No markdown, no commentary.`)
	if len(tagNames) > 0 {
		fmt.Fprintf(&b, "\nOnly use tag names from this list: %s.", strings.Join(tagNames, ", "))
	}
	if strings.TrimSpace(workspaceInstructions) != "" {
		fmt.Fprintf(&b, "\nWorkspace context: %s", workspaceInstructions)
	}
	return b.String()
}

// NoteActionPrompt returns the system prompt for a note agent action.
// instruction is the user's free-text request, used by actions that take one.
func NoteActionPrompt(action, instruction string) string {
	switch action {
	case ActionSummarize:
		return "Summarize the following note into a shorter document that keeps the key points.\n" + documentSchema
	case ActionImprove:
		return "Improve the writing of the following note: fix grammar, sharpen wording, keep the meaning and structure.\n" + documentSchema
	case ActionExpand:
		return "Expand the following note with more detail and supporting points while keeping its structure.\n" + documentSchema
	case ActionChecklist:
		return "Convert the following note into a checklist: one checklist block whose items are actionable steps.\n" + documentSchema
	case ActionFormat:
		return "Reformat the following note with clear headings and lists without changing its content.\n" + documentSchema
	case ActionRewrite:
		return fmt.Sprintf("Rewrite the following note according to this instruction: %q.\n%s", instruction, documentSchema)
	case ActionTranslate:
		target := instruction
		if strings.TrimSpace(target) == "" {
			target = "English"
		}
		return fmt.Sprintf("Translate the following note to %s, preserving its structure.\n%s", target, documentSchema)
	case ActionAddSection:
		return fmt.Sprintf("Add a new section to the following note about: %q. Keep the existing content intact and append the new section.\n%s", instruction, documentSchema)
	case ActionRemoveSection:
		return fmt.Sprintf("Remove the section matching this description from the following note: %q. Keep everything else intact.\n%s", instruction, documentSchema)
	case ActionExtractTasks:
		return `Extract actionable tasks from the following note.
Respond with ONLY a JSON object of the form:
{"tasks":[{"title":"...","description":"...","importance":5}]}
"title" is required; "description" and "importance" (1-10) are optional. No markdown, no commentary.`
	case ActionAsk:
		return fmt.Sprintf("Answer the user's question about the following note. Question: %q.\nRespond in plain text.", instruction)
	default:
		return ""
	}
}
