package swagger

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	apicontract "github.com/tuanvumaihuynh/event-pos/api-contract"
)

const (
	docsURL     = "/docs"
	specYAMLURL = "/docs/openapi.yml"
	specJSONURL = "/docs/openapi.json"

	swaggerUIVersion = "5.29.3"
)

// specJSON renders the embedded document once, on first request.
var specJSON = sync.OnceValues(func() ([]byte, error) {
	doc, err := apicontract.Load()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
})

// Register mounts the Swagger UI and the API document in YAML and JSON.
func Register(r chi.Router) {
	page := []byte(uiPage(specYAMLURL))

	r.Get(docsURL, func(w http.ResponseWriter, _ *http.Request) {
		write(w, "text/html; charset=utf-8", page)
	})

	r.Get(specYAMLURL, func(w http.ResponseWriter, _ *http.Request) {
		write(w, "application/yaml", apicontract.GetSpecBytes())
	})

	r.Get(specJSONURL, func(w http.ResponseWriter, _ *http.Request) {
		body, err := specJSON()
		if err != nil {
			http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
			return
		}
		write(w, "application/json", body)
	})
}

func write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func uiPage(specPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>event-pos API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@%[1]s/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@%[1]s/swagger-ui-bundle.js" crossorigin></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({
      url: '%[2]s',
      dom_id: '#swagger-ui',
      deepLinking: true,
      tryItOutEnabled: true,
    });
  };
</script>
</body>
</html>
`, swaggerUIVersion, specPath)
}
