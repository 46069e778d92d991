package apidocs

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"path"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

//go:embed openapi.yaml
var openapiYAML []byte

// Spec loads the embedded OpenAPI document, validates it and returns it as JSON.
func Spec(ctx context.Context) ([]byte, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err = doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}

	return doc.MarshalJSON()
}

// configures the Doc middlewares
type config struct {
	// SpecURL the url to find the document at
	SpecURL string
}

func renderPage(cfg *config) (string, error) {
	tmpl, err := template.New("apidoc").Parse(pageTemplate)
	if err != nil {
		return "", err
	}
	buf := bytes.NewBuffer(nil)
	if err = tmpl.Execute(buf, cfg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Doc serves the documentation page at basePath/apidocs and the document at basePath/apispec.json.
func Doc(basePath string, apiJSON []byte) (echo.MiddlewareFunc, error) {
	cfg := &config{
		SpecURL: path.Join(basePath, "apispec.json"),
	}

	docPath := path.Join(basePath, "apidocs")
	uiHTML, err := renderPage(cfg)
	if err != nil {
		return nil, fmt.Errorf("render apidocs page: %w", err)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqPath := c.Request().URL.Path
			if reqPath != docPath && reqPath != cfg.SpecURL {
				return next(c)
			}

			if reqPath == docPath {
				return c.HTML(http.StatusOK, uiHTML)
			}
			return c.JSONBlob(http.StatusOK, apiJSON)
		}
	}, nil
}

const pageTemplate = `
<!DOCTYPE html>
<html lang="en">
  <head>
    <title>Alumni Network API</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1" />
  </head>

  <body>
    <script id="api-reference" data-url="{{ .SpecURL }}"></script>

    <script src="https://cdnjs.cloudflare.com/ajax/libs/scalar-api-reference/1.25.99/standalone.min.js" integrity="sha512-ai3lOYZ5efNXMYwnqhz0mnCaImbqfwLE1VCx9Y9nhB3OJX4/uegjIAoQtJHy3SILHp/gS1OlPCIeNFPZT5i2WQ==" crossorigin="anonymous" referrerpolicy="no-referrer"></script>
  </body>
</html>`
