package children

import (
	"doodba-operator/internal/template"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

// Entrypoint is the Doodba image entrypoint. It prepares the environment
// (addons path, generated configuration) and then executes its arguments.
const Entrypoint = "/opt/odoo/common/entrypoint"

const hookScriptTemplate = `set -e
{{ .Entrypoint }}
{{ .Command | trim }}
`

const odooConfTemplate = `[options]
{{- with .Config }}
list_db = {{ .ListDatabase }}
without_demo = {{ if .WithoutDemo }}all{{ else }}False{{ end }}
{{- if .DBFilter }}
dbfilter = {{ .DBFilter }}
{{- end }}
{{- end }}
proxy_mode = {{ .ProxyMode }}
{{- if .ExtraConfig }}
{{ .ExtraConfig | trim }}
{{- end }}
`

var engine = template.New()

// HookScript returns the bash script a hook Job runs: the image entrypoint
// followed by the user command.
func HookScript(command string) string {
	return engine.MustRender("hook-script", hookScriptTemplate, map[string]interface{}{
		"Entrypoint": Entrypoint,
		"Command":    command,
	})
}

// OdooConf renders the odoo.conf fragment for one instance.
func OdooConf(app *doodbav1.Doodba, instance doodbav1.Instance) string {
	return engine.MustRender("odoo-conf", odooConfTemplate, map[string]interface{}{
		"Config":      app.Spec.Config,
		"ProxyMode":   len(enabledIngress(instance)) > 0,
		"ExtraConfig": instance.ExtraConfig,
	})
}
