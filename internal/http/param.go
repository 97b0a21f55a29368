package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/tuanvumaihuynh/event-pos/internal/http/apierr"
)

const maxJSONBodyBytes = 1 << 20 // 1 MB

func bindProductID(r *http.Request) (uuid.UUID, error) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "productId", chi.URLParam(r, "productId"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return uuid.Nil, apierr.NewParamError("productId", err)
	}
	return id, nil
}

func bindQueryString(r *http.Request, name string) (*string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return nil, apierr.NewParamError(name, err)
	}
	return v, nil
}

func bindQueryInt(r *http.Request, name string) (*int, error) {
	var v *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return nil, apierr.NewParamError(name, err)
	}
	return v, nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierr.NewParamError("body", errors.New("request body is empty"))
		}
		return apierr.NewParamError("body", err)
	}
	if dec.More() {
		return apierr.NewParamError("body", fmt.Errorf("request body must hold a single JSON object"))
	}
	return nil
}
