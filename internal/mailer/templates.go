package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

const htmlContentType = "text/html; charset=UTF-8"

var (
	resetPasswordTemplate = template.Must(template.New("reset").Parse(`<p>Hello {{.Username}},</p>
<p>Click <a href="{{.Link}}">here</a> to reset your password. The link expires in {{.ExpiresIn}}.</p>
<p>If you did not request a reset you can ignore this email.</p>`))

	orderOutcomeTemplate = template.Must(template.New("order").Parse(`<p>Hello {{.Username}},</p>
{{if .Approved}}<p>Your order for <strong>{{.CourseName}}</strong> has been approved. The course is now in your library.</p>
{{else}}<p>Your order for <strong>{{.CourseName}}</strong> was rejected.</p>
{{if .Note}}<p>Note from the administrator: {{.Note}}</p>{{end}}
<p>You can update the order and submit it again.</p>{{end}}`))

	draftOutcomeTemplate = template.Must(template.New("draft").Parse(`<p>Hello {{.Username}},</p>
{{if .Approved}}<p>Your course <strong>{{.CourseName}}</strong> has been published.</p>
{{else}}<p>Your course draft <strong>{{.CourseName}}</strong> was not accepted.</p>{{end}}`))
)

// ResetPasswordData fills the password reset email
type ResetPasswordData struct {
	Username  string
	Link      string
	ExpiresIn string
}

// OrderOutcomeData fills the order decision email
type OrderOutcomeData struct {
	Username   string
	CourseName string
	Approved   bool
	Note       string
}

// DraftOutcomeData fills the draft decision email
type DraftOutcomeData struct {
	Username   string
	CourseName string
	Approved   bool
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render mail template: %w", err)
	}
	return buf.String(), nil
}

func ResetPasswordMessage(to string, data ResetPasswordData) (*Message, error) {
	body, err := render(resetPasswordTemplate, data)
	if err != nil {
		return nil, err
	}
	return &Message{To: []string{to}, Subject: "Online Learning - Reset your password", Body: body, ContentType: htmlContentType}, nil
}

func OrderOutcomeMessage(to string, data OrderOutcomeData) (*Message, error) {
	subject := "Online Learning - Order rejected"
	if data.Approved {
		subject = "Online Learning - Order approved"
	}
	body, err := render(orderOutcomeTemplate, data)
	if err != nil {
		return nil, err
	}
	return &Message{To: []string{to}, Subject: subject, Body: body, ContentType: htmlContentType}, nil
}

func DraftOutcomeMessage(to string, data DraftOutcomeData) (*Message, error) {
	subject := "Online Learning - Course draft rejected"
	if data.Approved {
		subject = "Online Learning - Course published"
	}
	body, err := render(draftOutcomeTemplate, data)
	if err != nil {
		return nil, err
	}
	return &Message{To: []string{to}, Subject: subject, Body: body, ContentType: htmlContentType}, nil
}
