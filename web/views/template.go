package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
	"github.com/arashthr/shelf/internal/auth/context/usercontext"
	"github.com/arashthr/shelf/internal/models"
	"github.com/arashthr/shelf/internal/query"
	"github.com/arashthr/shelf/web"
	"github.com/arashthr/shelf/web/templates"
	"github.com/gorilla/csrf"
)

type Template struct {
	htmlTemplate *template.Template
}

func Must(tpl Template, err error) Template {
	if err != nil {
		panic(err)
	}
	return tpl
}

func ParseTemplate(filePaths ...string) (Template, error) {
	tpl := template.New(path.Base(filePaths[0]))
	tpl.Funcs(template.FuncMap{
		"csrfField": func() (template.HTML, error) {
			return "", fmt.Errorf("csrfField not implemented")
		},
		"csrfToken": func() (string, error) {
			return "", fmt.Errorf("csrfToken not implemented")
		},
		"currentUser": func() (*models.User, error) {
			return nil, fmt.Errorf("current user not implemented")
		},
		"messages": func() []web.NavbarMessage {
			return nil
		},
		"filterURL":  filterURL,
		"timeAgo":    timeAgo,
		"join":       strings.Join,
		"trim":       strings.TrimSpace,
		"formatDate": func(t time.Time) string { return t.Format("Jan 02, 2006") },
	})
	tpl, err := tpl.ParseFS(templates.FS, filePaths...)
	if err != nil {
		return Template{}, fmt.Errorf("parse fs template: %w", err)
	}
	return Template{
		htmlTemplate: tpl,
	}, nil
}

func (t Template) Execute(w http.ResponseWriter, r *http.Request, data any, navMsgs ...web.NavbarMessage) {
	logger := loggercontext.Logger(r.Context())
	tpl, err := t.htmlTemplate.Clone()
	if err != nil {
		logger.Errorw("cloning template failed", "error", err)
		http.Error(w, "There was an error serving your request", http.StatusInternalServerError)
		return
	}

	tpl = tpl.Funcs(
		template.FuncMap{
			"csrfField": func() template.HTML {
				return csrf.TemplateField(r)
			},
			"csrfToken": func() string {
				return csrf.Token(r)
			},
			"currentUser": func() *models.User {
				return usercontext.User(r.Context())
			},
			"messages": func() []web.NavbarMessage {
				return navMsgs
			},
		},
	)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var buf bytes.Buffer
	err = tpl.Execute(&buf, data)
	if err != nil {
		logger.Errorw("executing template", "error", err)
		http.Error(w, "There was an error executing the template", http.StatusInternalServerError)
		return
	}
	io.Copy(w, &buf)
}

// filterURL links to the list with f changed by the key/value pairs, e.g.
// {{filterURL .Filter "folder" .Id}}. An empty value removes the key.
func filterURL(f query.Filter, pairs ...string) string {
	values := f.Values()
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			values.Del(pairs[i])
		} else {
			values.Set(pairs[i], pairs[i+1])
		}
	}
	if len(values) == 0 {
		return "/"
	}
	return "/?" + values.Encode()
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "day") + " ago"
	default:
		return "on " + t.Format("Jan 02, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
