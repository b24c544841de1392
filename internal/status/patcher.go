// Package status writes the status subresource of Doodba resources.
package status

import (
	"context"
	"fmt"

	"doodba-operator/internal/store"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
	"doodba-operator/pkg/logging"
)

// Patcher force-applies Doodba status documents.
type Patcher struct {
	store store.Store
}

// NewPatcher creates a Patcher writing through s.
func NewPatcher(s store.Store) *Patcher {
	return &Patcher{store: s}
}

// Apply replaces the status of app with status. The full document is sent so
// repeating the same status is a no-op for the store. On success app.Status
// and app's resourceVersion reflect the stored object.
func (p *Patcher) Apply(ctx context.Context, app *doodbav1.Doodba, status *doodbav1.DoodbaStatus) error {
	if status == nil {
		return nil
	}

	patch := app.DeepCopy()
	patch.Status = status.DeepCopy()
	if err := p.store.ApplyStatus(ctx, patch); err != nil {
		return fmt.Errorf("failed to apply status of doodba %s/%s: %w", app.Namespace, app.Name, err)
	}

	logging.Debug("Status", "Applied status of doodba %s/%s: phase=%s ready=%t",
		app.Namespace, app.Name, status.Phase, status.Ready)

	app.Status = patch.Status
	app.ResourceVersion = patch.ResourceVersion
	return nil
}
