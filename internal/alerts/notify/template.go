package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Alert {{.EventLabel}}]
Line: {{.Line}}
Tag: {{.Tag}}
Name: {{.Name}}
Severity: {{.Severity}}
Time: {{.Timestamp}}
{{- if .Location }}
Location: {{.Location}}
{{- end }}
{{- if .Details }}
Details: {{.Details}}
{{- end }}
{{- if .ResolvedAt }}
Resolved: {{.ResolvedAt}}
{{- end }}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	Event      string
	EventLabel string
	Line       string
	Tag        string
	Name       string
	Severity   string
	Timestamp  string
	Location   string
	Details    string
	ResolvedAt string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("alert-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
