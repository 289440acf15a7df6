package views

import (
	"embed"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"
)

//go:embed *.html */*.html
var FS embed.FS

// NewEngine builds the template engine over the embedded views.
// Callers may override isDebug before the first render.
func NewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(FS), ".html")
	engine.AddFunc("isDebug", func() bool { return false })
	engine.AddFunc("join", strings.Join)
	engine.AddFunc("clock", func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Format("2006-01-02 15:04:05")
	})
	engine.AddFunc("seconds", func(secs int) string {
		switch {
		case secs%3600 == 0:
			return fmt.Sprintf("%dh", secs/3600)
		case secs%60 == 0:
			return fmt.Sprintf("%dmin", secs/60)
		default:
			return fmt.Sprintf("%ds", secs)
		}
	})
	return engine
}
