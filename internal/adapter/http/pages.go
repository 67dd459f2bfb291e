package http

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/bussola-offshore/bussola/internal/service"
)

// Page title and header, shown on every page.
const (
	PageTitle  = "Bússola Offshore"
	PageHeader = "Painel de Inteligência Macro"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"cell":  formatCell,
	"week":  formatWeek,
	"deref": func(s *string) string { return *s },
}).ParseFS(templateFS, "templates/index.html"))

// formState is what the auth forms need to re-render after a failed post.
type formState struct {
	Email       string
	SignInError string
	SignUpError string
}

type pageData struct {
	Title  string
	Header string
	View   service.View
	Form   formState
}

func renderPage(w io.Writer, view service.View, form formState) error {
	return pageTemplate.Execute(w, pageData{
		Title:  PageTitle,
		Header: PageHeader,
		View:   view,
		Form:   form,
	})
}

// formatCell prints a reading with two decimals; a missing reading is a dash.
func formatCell(v *float64) string {
	if v == nil {
		return "–"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatWeek(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
