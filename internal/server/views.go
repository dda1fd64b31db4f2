package server

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"storyline/internal/models"
	"storyline/internal/validation"

	"github.com/gofiber/template/html/v2"
)

//go:embed views
var viewsFS embed.FS

const mainLayout = "layouts/main"

func newViewEngine() (*html.Engine, error) {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}

	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("date", func(t time.Time) string {
		return t.Format("January 2, 2006")
	})
	engine.AddFunc("avatar", func(file string) string {
		if file == "" {
			file = models.DefaultImageFile
		}
		return "/static/profile_pics/" + file
	})
	engine.AddFunc("lines", func(s string) []string {
		return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	})

	engine.AddFunc("fieldError", func(errs any, field string) string {
		fe, _ := errs.(validation.FormErrors)
		return fe[field]
	})

	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	return engine, nil
}
