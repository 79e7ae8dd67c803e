package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"join":  strings.Join,
	"ratio": func(f float64) string { return fmt.Sprintf("%.3f", f) },
	"tierColor": func(tier interface{}) string {
		switch fmt.Sprint(tier) {
		case "critical":
			return "#b91c1c"
		case "high":
			return "#c2410c"
		case "medium":
			return "#a16207"
		}
		return "#15803d"
	},
}).ParseFS(templateFS, "templates/*.html"))

// Template names.
const (
	TemplateRiskAlert         = "risk_alert.html"
	TemplateBulkDigest        = "bulk_digest.html"
	TemplateNewApplication    = "new_application.html"
	TemplateApplicationStatus = "application_status.html"
	TemplateJobAlert          = "job_alert.html"
	TemplateTest              = "test_email.html"
)

// Render executes a named HTML template.
func Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
