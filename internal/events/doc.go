// Package events records Kubernetes Events for Doodba lifecycle operations,
// making phase changes, hook Jobs and cleanup visible through
// `kubectl describe doodba` and `kubectl get events`.
//
// Messages are rendered from per-reason templates with the sprig function
// library and can be overridden with SetTemplate:
//
//	generator := events.NewEventGenerator(s)
//	err := generator.DoodbaEvent(ctx, app, events.ReasonPhaseChanged, events.EventData{From: "Pending", To: "Running"})
package events
