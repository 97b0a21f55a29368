package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
)

const imageFormField = "image"

// multipartOverheadBytes leaves room for boundaries and part headers on top
// of the image itself.
const multipartOverheadBytes = 64 << 10

type productHandler struct {
	svc           *Service
	productSvc    service.ProductService
	imageMaxBytes int64
}

func newProductHandler(svc *Service, productSvc service.ProductService, imageMaxBytes int64) *productHandler {
	return &productHandler{
		svc:           svc,
		productSvc:    productSvc,
		imageMaxBytes: imageMaxBytes,
	}
}

func (h *productHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productSvc.ListAllProducts(r.Context())
	if err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("product service list all products: %w", err))
		return
	}

	items := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		items = append(items, newProductResponse(product))
	}

	h.svc.writeJSON(w, r, http.StatusOK, items)
}

func (h *productHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body CreateProductRequest
	if err := decodeJSONBody(w, r, &body); err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	params := service.CreateProductParams{
		Name:     body.Name,
		Price:    body.Price,
		Sizes:    model.Sizes(body.Sizes),
		ImageURL: body.ImageURL,
	}
	product, err := h.productSvc.CreateProduct(r.Context(), params)
	if err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("product service create product: %w", err))
		return
	}

	h.svc.writeJSON(w, r, http.StatusCreated, newProductResponse(product))
}

func (h *productHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := bindProductID(r)
	if err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	product, err := h.productSvc.GetProduct(r.Context(), id)
	if err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("product service get product: %w", err))
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, newProductResponse(product))
}

func (h *productHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := bindProductID(r)
	if err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	var body UpdateProductRequest
	if err := decodeJSONBody(w, r, &body); err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	params := service.UpdateProductParams{
		Name:     body.Name,
		Price:    body.Price,
		ImageURL: body.ImageURL,
	}
	if body.Sizes != nil {
		sizes := model.Sizes(*body.Sizes)
		params.Sizes = &sizes
	}

	product, err := h.productSvc.UpdateProduct(r.Context(), id, params)
	if err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("product service update product: %w", err))
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, newProductResponse(product))
}

func (h *productHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := bindProductID(r)
	if err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	if err := h.productSvc.DeleteProduct(r.Context(), id); err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("product service delete product: %w", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadProductImage streams the "image" part of a multipart body to the
// image store without buffering the whole upload.
func (h *productHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := bindProductID(r)
	if err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	if h.imageMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.imageMaxBytes+multipartOverheadBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		h.svc.handleResponseError(w, r, apperr.ImageInvalidErr.WithMsg("expected a multipart/form-data body").WrapParent(err))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.svc.handleResponseError(w, r, apperr.ImageInvalidErr.WithMsg("malformed multipart body").WrapParent(err))
			return
		}
		if part.FormName() != imageFormField {
			//nolint:errcheck
			part.Close()
			continue
		}

		product, err := h.productSvc.UploadImage(r.Context(), service.UploadImageParams{
			ProductID:   id,
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Body:        part,
		})
		//nolint:errcheck
		part.Close()
		if err != nil {
			h.svc.handleResponseError(w, r, fmt.Errorf("product service upload image: %w", err))
			return
		}

		h.svc.writeJSON(w, r, http.StatusOK, newProductResponse(product))
		return
	}

	h.svc.handleResponseError(w, r, apperr.ImageInvalidErr.WithMsg("missing %q form field", imageFormField))
}
