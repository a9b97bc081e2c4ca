package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

const (
	TemplateFeedbackReceived = "feedback_received"
	TemplateDailyDigest      = "daily_digest"
)

// TemplateManager реализует TemplateRenderer
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами
func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{templates: make(map[string]*template.Template)}
	for name, text := range builtinTemplates {
		if err := tm.AddTemplate(name, text); err != nil {
			panic(err) // встроенные шаблоны обязаны парситься
		}
	}
	return tm
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// AddTemplate добавляет шаблон в менеджер
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()
	return nil
}

var builtinTemplates = map[string]string{
	TemplateFeedbackReceived: `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222;">
<h2>New feedback for {{.CompanyName}}</h2>
<p><strong>Rating:</strong> {{.Rating}} / 5</p>
{{if .Comment}}<blockquote style="border-left: 3px solid #ccc; padding-left: 12px;">{{.Comment}}</blockquote>{{end}}
{{if .AuthorEmail}}<p>From: {{.AuthorName}} &lt;{{.AuthorEmail}}&gt;</p>{{end}}
<p><a href="{{.DashboardURL}}">Open your dashboard</a></p>
</body></html>`,

	TemplateDailyDigest: `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222;">
<h2>Feedback digest for {{.CompanyName}}</h2>
<p>In the last 24 hours you received <strong>{{.Count}}</strong> low-rated responses
(average {{printf "%.1f" .Average}} / 5).</p>
<p><a href="{{.DashboardURL}}">Review them in your dashboard</a></p>
</body></html>`,
}
