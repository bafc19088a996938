package notifier

import (
	"html/template"
	"strings"
	texttemplate "text/template"
)

var htmlBody = template.Must(template.New("html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
<h2>New form submission</h2>
<table cellpadding="6" style="border-collapse: collapse;">
{{- range .Fields}}
<tr><th align="left" valign="top">{{.Name}}</th><td>{{.HTML}}</td></tr>
{{- end}}
</table>
<hr>
<p style="color: #666; font-size: 12px;">
Received {{.Timestamp}}{{if .Origin}} from {{.Origin}}{{end}}<br>
Client: {{.Client}}<br>
IP: {{.IP}}
{{- if .ID}}<br>
Submission: {{.ID}}{{end}}
</p>
</body>
</html>
`))

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`New form submission
{{range .Fields}}
{{.Name}}: {{.Text}}
{{- end}}

Received {{.Timestamp}}{{if .Origin}} from {{.Origin}}{{end}}
Client: {{.Client}}
IP: {{.IP}}
{{- if .ID}}
Submission: {{.ID}}{{end}}
`))

type emailView struct {
	Fields    []fieldView
	Timestamp string
	Origin    string
	Client    string
	IP        string
	ID        string
}

type fieldView struct {
	Name string
	// HTML is already entity-encoded by the sanitizer.
	HTML template.HTML
	Text string
}

func render(view emailView) (html, text string, err error) {
	var hb, tb strings.Builder
	if err := htmlBody.Execute(&hb, view); err != nil {
		return "", "", err
	}
	if err := textBody.Execute(&tb, view); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
