package events

import (
	"fmt"
	"sync"

	"doodba-operator/internal/template"
)

// MessageTemplateEngine provides dynamic message generation for events.
type MessageTemplateEngine struct {
	mu        sync.RWMutex
	templates map[EventReason]string
	engine    *template.Engine
}

// NewMessageTemplateEngine creates a new message template engine with default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	e := &MessageTemplateEngine{
		templates: make(map[EventReason]string),
		engine:    template.New(),
	}
	e.loadDefaultTemplates()
	return e
}

func (e *MessageTemplateEngine) loadDefaultTemplates() {
	e.templates[ReasonPhaseChanged] = `Doodba {{ .Name }} moved from {{ .From | default "<none>" }} to {{ .To }}`
	e.templates[ReasonJobCreated] = `Created job {{ .Job }}{{ if .Image }} for image {{ .Image }}{{ end }}`
	e.templates[ReasonJobDeleted] = `Deleted stale job {{ .Job }}`
	e.templates[ReasonHookFailed] = `Job {{ .Job }} failed; delete it or change the image to retry`
	e.templates[ReasonReconcileFailed] = `Reconcile of {{ .Namespace }}/{{ .Name }} failed{{ if .Error }}: {{ .Error | trunc 512 }}{{ end }}`
	e.templates[ReasonImageDowngrade] = `Upgrading to {{ .Image }} which is older than {{ .PreviousImage }}`
	e.templates[ReasonDeleted] = `Doodba {{ .Name }} cleaned up in namespace {{ .Namespace }}`
}

// Render generates a message for the given event reason and data. Unknown
// reasons and templates that fail to render fall back to a generic message.
func (e *MessageTemplateEngine) Render(reason EventReason, data EventData) string {
	e.mu.RLock()
	body, exists := e.templates[reason]
	e.mu.RUnlock()

	if exists {
		out, err := e.engine.Render(string(reason), body, data)
		if err == nil {
			return out
		}
	}
	return fmt.Sprintf("Event: %s for %s/%s", string(reason), data.Namespace, data.Name)
}

// SetTemplate allows customizing the message template for a specific event reason.
func (e *MessageTemplateEngine) SetTemplate(reason EventReason, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[reason] = body
}

// GetTemplate returns the template for a specific event reason.
func (e *MessageTemplateEngine) GetTemplate(reason EventReason) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	body, exists := e.templates[reason]
	return body, exists
}
