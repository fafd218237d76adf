package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/ikkim/bizreview-backend/internal/app/model"
)

// Render executes the template subject and body with params. Unknown keys render empty.
func Render(tmpl *model.EmailTemplate, params map[string]string) (subject, body string, err error) {
	subject, err = execute(tmpl.Key+".subject", tmpl.Subject, params)
	if err != nil {
		return "", "", err
	}
	body, err = execute(tmpl.Key+".body", tmpl.Body, params)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func execute(name, text string, params map[string]string) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
