// Package phase holds the Doodba lifecycle state machine.
//
// Decide is a pure function: given a Doodba and what was observed of its
// hook Jobs and Deployments, it returns the status to write, the child
// actions to perform and how the pass should be rescheduled. It performs no
// I/O; the reconciler executes the decision in a fixed order (initial
// status, actions, final status) so that a pass interrupted at any point can
// be resumed by the next one.
//
// Transitions that need no child action are followed within the same
// decision, so a Doodba without a before-create command goes from no status
// to Running, with its children applied, in a single pass.
//
// Suspend is checked before anything else and overrides every phase. An
// unknown phase, written by a newer operator, is left alone.
package phase
