package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tuanvumaihuynh/event-pos/internal/aggregate"
	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/internal/http/apierr"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
)

type saleHandler struct {
	svc     *Service
	saleSvc service.SaleService
}

func newSaleHandler(svc *Service, saleSvc service.SaleService) *saleHandler {
	return &saleHandler{
		svc:     svc,
		saleSvc: saleSvc,
	}
}

// RecordSales answers 201 when every line committed, 207 when only some did
// and the first line's error status when none did.
func (h *saleHandler) RecordSales(w http.ResponseWriter, r *http.Request) {
	id, err := bindProductID(r)
	if err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	var body RecordSalesRequest
	if err := decodeJSONBody(w, r, &body); err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	params := service.RecordSalesParams{
		ProductID: id,
		Mode:      service.BatchMode(body.Mode),
		Lines:     make([]service.SaleLine, 0, len(body.Items)),
	}
	for _, item := range body.Items {
		params.Lines = append(params.Lines, service.SaleLine{Size: item.Size, Quantity: item.Quantity})
	}

	result, err := h.saleSvc.RecordSales(r.Context(), params)
	if err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("sale service record sales: %w", err))
		return
	}

	res := RecordSalesResponse{
		Mode:    string(result.Mode),
		Failed:  result.Failed(),
		Results: make([]SaleLineResponse, 0, len(result.Lines)),
	}

	status := http.StatusCreated
	for i, line := range result.Lines {
		item := SaleLineResponse{
			Size:     line.Line.Size,
			Quantity: line.Line.Quantity,
		}
		if line.Sale != nil {
			sale := newSaleResponse(*line.Sale)
			item.Sale = &sale
		}
		if line.Err != nil {
			errRes := apierr.New(line.Err)
			item.Error = &errRes

			var stockErr *apperr.InsufficientStockError
			if errors.As(line.Err, &stockErr) {
				available := stockErr.Available
				item.Available = &available
			}
			if i == 0 {
				status = errRes.StatusCode
			}
		}
		res.Results = append(res.Results, item)
	}

	switch {
	case res.Failed == 0:
		status = http.StatusCreated
	case res.Failed < len(res.Results):
		status = http.StatusMultiStatus
	}

	h.svc.writeJSON(w, r, status, res)
}

func (h *saleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	preset, err := bindRange(r)
	if err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	sales, err := h.saleSvc.ListSales(r.Context(), service.ListSalesParams{Range: preset})
	if err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("sale service list sales: %w", err))
		return
	}

	items := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		items = append(items, newSaleResponse(sale))
	}

	h.svc.writeJSON(w, r, http.StatusOK, items)
}

func (h *saleHandler) SalesStats(w http.ResponseWriter, r *http.Request) {
	preset, err := bindRange(r)
	if err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	top, err := bindQueryInt(r, "top")
	if err != nil {
		h.svc.handleRequestError(w, r, err)
		return
	}

	params := service.SalesStatsParams{Range: preset}
	if top != nil {
		if *top <= 0 {
			h.svc.handleRequestError(w, r, apierr.NewParamError("top", errors.New("must be greater than 0")))
			return
		}
		params.Top = *top
	}

	summary, err := h.saleSvc.SalesStats(r.Context(), params)
	if err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("sale service sales stats: %w", err))
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, newSalesStatsResponse(preset, summary))
}

func (h *saleHandler) ClearSales(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.saleSvc.ClearSales(r.Context())
	if err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("sale service clear sales: %w", err))
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, ClearSalesResponse{Deleted: deleted})
}

func (h *saleHandler) SeedDemoSales(w http.ResponseWriter, r *http.Request) {
	result, err := h.saleSvc.SeedDemoSales(r.Context())
	if err != nil {
		h.svc.handleResponseError(w, r, fmt.Errorf("sale service seed demo sales: %w", err))
		return
	}

	h.svc.writeJSON(w, r, http.StatusCreated, SeedDemoSalesResponse{
		Today:     result.Today,
		Yesterday: result.Yesterday,
	})
}

func bindRange(r *http.Request) (aggregate.Preset, error) {
	raw, err := bindQueryString(r, "range")
	if err != nil {
		return "", err
	}
	if raw == nil || *raw == "" {
		return aggregate.PresetAll, nil
	}

	preset, err := aggregate.ParsePreset(*raw)
	if err != nil {
		return "", apierr.NewParamError("range", err)
	}
	return preset, nil
}
