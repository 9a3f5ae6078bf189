package http

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/hiitroute/api"
)

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}} - Swagger UI</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>
    html{box-sizing:border-box}*,*::before,*::after{box-sizing:inherit}
    body{margin:0;background:#fafafa;font-family:sans-serif}
    header{padding:16px 24px;border-bottom:1px solid #ddd;background:#fff}
    header h1{margin:0 0 8px;font-size:22px}
    header p{margin:4px 0;max-width:860px;line-height:1.4}
    code{background:#f0f0f0;padding:1px 4px}
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}} <small>v{{.Version}}</small></h1>
    <p>{{.Description}}</p>
    <p>Live view: open a WebSocket to <code>/ws</code> and send
      <code>{"action":"subscribe","channel":"session","session_id":"&lt;id&gt;"}</code>
      for a snapshot followed by every transition of that session, or
      <code>{"action":"subscribe","channel":"routes","crew_id":"&lt;id&gt;"}</code>
      for the crew's saved routes.</p>
    <p>Queries and session mutations are also served at <code>POST /graphql</code>.</p>
  </header>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.yaml',
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout',
    });
  </script>
</body>
</html>`))

type docsPage struct {
	Title       string
	Version     string
	Description string
}

// renderDocs builds the Swagger UI page with the title and description of
// the embedded OpenAPI document.
func renderDocs() []byte {
	page := docsPage{Title: "HIIT Route API", Version: "1.0.0"}
	doc, err := openapi3.NewLoader().LoadFromData(api.OpenAPI)
	if err != nil {
		slog.Warn("openapi document unreadable, docs page uses defaults", "error", err)
	} else if doc.Info != nil {
		page.Title = doc.Info.Title
		page.Version = doc.Info.Version
		page.Description = doc.Info.Description
	}

	var buf bytes.Buffer
	if err := docsTemplate.Execute(&buf, page); err != nil {
		slog.Error("render docs page", "error", err)
	}
	return buf.Bytes()
}

// SetupDocs registers Swagger UI at /docs and the OpenAPI document at /docs/openapi.yaml.
func SetupDocs(app *fiber.App) {
	page := renderDocs()

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.Send(page)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "application/yaml")
		return c.Send(api.OpenAPI)
	})
}
