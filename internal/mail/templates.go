package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

const emailTemplates = `
{{define "verification"}}<h1>Verify your Email</h1>
<p>Hello{{if .Name}} {{.Name}}{{end}}, please click this <a href="{{.Link}}">link</a> to verify your email.</p>
<p>The link is valid for {{.ValidFor}}.</p>{{end}}
{{define "password_reset"}}<h1>Reset Your Password</h1>
<p>Please click this <a href="{{.Link}}">link</a> to reset your password.</p>
<p>The link is valid for {{.ValidFor}}. If you did not ask for a reset, ignore this email.</p>{{end}}
{{define "welcome"}}<h1>Welcome to {{.AppName}}</h1>{{end}}
`

var subjects = map[Kind]string{
	KindVerification:  "Verify your email",
	KindPasswordReset: "Reset your password",
	KindWelcome:       "Welcome to our app",
}

type templateData struct {
	AppName  string
	Name     string
	Link     string
	ValidFor string
}

type renderer struct {
	tmpl *template.Template
}

func newRenderer() (*renderer, error) {
	tmpl, err := template.New("emails").Parse(emailTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &renderer{tmpl: tmpl}, nil
}

func (r *renderer) render(kind Kind, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, string(kind), data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", kind, err)
	}
	return buf.String(), nil
}
