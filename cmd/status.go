package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/duration"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"doodba-operator/internal/config"
	"doodba-operator/internal/reconciler"
	"doodba-operator/internal/store"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

func newStatusCmd() *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the phase of every Doodba",
		Long: `List Doodbas with their phase, readiness and the image last applied to
their instances. Reads only; nothing is changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			restConfig, err := reconciler.GetRestConfig()
			if err != nil {
				return fmt.Errorf("failed to get Kubernetes config: %w", err)
			}
			s, err := store.NewKubernetesStore(restConfig, config.DefaultFieldManager)
			if err != nil {
				return err
			}

			var list doodbav1.DoodbaList
			var opts []client.ListOption
			if namespace != "" {
				opts = append(opts, client.InNamespace(namespace))
			}
			if err := s.List(cmd.Context(), &list, opts...); err != nil {
				return fmt.Errorf("failed to list doodbas: %w", err)
			}

			renderStatus(cmd.OutOrStdout(), list.Items, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Only show Doodbas in this namespace (default all namespaces)")
	return cmd
}

// renderStatus writes items as a table sorted by namespace and name.
func renderStatus(w io.Writer, items []doodbav1.Doodba, now time.Time) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No Doodbas found")
		return
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Namespace != items[j].Namespace {
			return items[i].Namespace < items[j].Namespace
		}
		return items[i].Name < items[j].Name
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Namespace", "Name", "Phase", "Ready", "Image", "Age"})

	for i := range items {
		app := &items[i]
		ready, image := "false", ""
		if app.Status != nil {
			if app.Status.Ready {
				ready = "true"
			}
			image = app.Status.LastAppliedImage
		}
		age := "<unknown>"
		if !app.CreationTimestamp.IsZero() {
			age = duration.HumanDuration(now.Sub(app.CreationTimestamp.Time))
		}
		t.AppendRow(table.Row{app.Namespace, app.Name, phaseColor(app.CurrentPhase()), ready, image, age})
	}
	t.Render()
}

func phaseColor(p doodbav1.Phase) string {
	switch p {
	case "":
		return text.FgHiBlack.Sprint("<none>")
	case doodbav1.PhaseRunning:
		return text.FgGreen.Sprint(p)
	case doodbav1.PhaseFailed:
		return text.FgRed.Sprint(p)
	case doodbav1.PhaseSuspended:
		return text.FgHiBlack.Sprint(p)
	default:
		return text.FgYellow.Sprint(p)
	}
}
