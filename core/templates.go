package core

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// LoadTemplates parses every page and fragment template.
func LoadTemplates() (*template.Template, error) {
	return template.New("").ParseFS(templateFS, "templates/*.html")
}

// mountStatic serves /static from cfg.StaticDir, or from the embedded assets.
func mountStatic(r *gin.Engine, cfg Config) {
	if cfg.StaticDir != "" {
		r.Static("/static", cfg.StaticDir)
		return
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.StaticFS("/static", http.FS(sub))
}

type formView struct {
	Email          string
	EmailErrors    string
	PasswordErrors string
}

func newFormView(email string, verr *ValidationError) formView {
	return formView{
		Email:          email,
		EmailErrors:    verr.Messages(FieldEmail),
		PasswordErrors: verr.Messages(FieldPassword),
	}
}

// pageView feeds both full pages and the list fragments.
type pageView struct {
	User    *User
	Form    formView
	Todos   []Todo
	Pending int
	Done    int
}

func newListView(user *User, items []Todo) pageView {
	v := pageView{User: user, Todos: items}
	for _, t := range items {
		if t.Done {
			v.Done++
		} else {
			v.Pending++
		}
	}
	return v
}

// changeView is one new item plus the refreshed list counts.
type changeView struct {
	Item    *Todo
	Pending int
	Done    int
}

func newChangeView(item *Todo, items []Todo) changeView {
	list := newListView(nil, items)
	return changeView{Item: item, Pending: list.Pending, Done: list.Done}
}
