package events

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"doodba-operator/internal/store"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
	"doodba-operator/pkg/logging"
)

// DefaultComponent is the event source reported on every Event.
const DefaultComponent = "doodba-operator"

// EventGenerator records Kubernetes Events about Doodba resources.
type EventGenerator struct {
	store     store.Store
	templates *MessageTemplateEngine
	component string
	now       func() time.Time
}

// NewEventGenerator creates a new EventGenerator writing through s.
func NewEventGenerator(s store.Store) *EventGenerator {
	return &EventGenerator{
		store:     s,
		templates: NewMessageTemplateEngine(),
		component: DefaultComponent,
		now:       time.Now,
	}
}

// DoodbaEvent records an event for app.
func (g *EventGenerator) DoodbaEvent(ctx context.Context, app *doodbav1.Doodba, reason EventReason, data EventData) error {
	data.Name = app.Name
	data.Namespace = app.Namespace

	message := g.templates.Render(reason, data)
	eventType := string(getEventType(reason))

	logging.Debug("Events", "Generating Doodba event: reason=%s, message=%s, type=%s",
		string(reason), message, eventType)

	now := metav1.NewTime(g.now())
	event := &corev1.Event{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: app.Name + "-",
			Namespace:    app.Namespace,
		},
		InvolvedObject: corev1.ObjectReference{
			APIVersion:      doodbav1.GroupVersion.String(),
			Kind:            doodbav1.Kind,
			Name:            app.Name,
			Namespace:       app.Namespace,
			UID:             app.UID,
			ResourceVersion: app.ResourceVersion,
		},
		Reason:         string(reason),
		Message:        message,
		Type:           eventType,
		Source:         corev1.EventSource{Component: g.component},
		FirstTimestamp: now,
		LastTimestamp:  now,
		Count:          1,
	}

	if err := g.store.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create event %s for doodba %s/%s: %w", reason, app.Namespace, app.Name, err)
	}
	return nil
}

// SetTemplate allows customizing the message template for a specific event reason.
func (g *EventGenerator) SetTemplate(reason EventReason, template string) {
	g.templates.SetTemplate(reason, template)
}

// GetTemplate returns the template for a specific event reason.
func (g *EventGenerator) GetTemplate(reason EventReason) (string, bool) {
	return g.templates.GetTemplate(reason)
}
