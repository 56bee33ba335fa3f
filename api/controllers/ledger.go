package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/deliotti/tucosto-backend/api/middleware"
	"github.com/deliotti/tucosto-backend/api/responses"
	"github.com/deliotti/tucosto-backend/api/validators"
	"github.com/deliotti/tucosto-backend/internal/budget"
	"github.com/deliotti/tucosto-backend/internal/ledger"
	pkgerrors "github.com/deliotti/tucosto-backend/pkg/errors"
	"github.com/deliotti/tucosto-backend/pkg/logger"
)

const maxReportTitleLength = 120

type addItemRequest struct {
	ItemName string `json:"item_name" validate:"notblank,max=200"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

type lineItemResponse struct {
	ItemName  string    `json:"item_name"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Subtotal  string    `json:"subtotal"`
	AddedAt   time.Time `json:"added_at"`
}

type warningResponse struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	ItemName         string `json:"item_name"`
	DefaultUnitPrice string `json:"default_unit_price"`
}

type addItemResponse struct {
	Item    lineItemResponse `json:"item"`
	Warning *warningResponse `json:"warning,omitempty"`
}

type ledgerResponse struct {
	Rows  []lineItemResponse `json:"rows"`
	Total string             `json:"total"`
	State string             `json:"state"`
	Count int                `json:"count"`
}

type exportResponse struct {
	RowsWritten int `json:"rows_written"`
}

func toLineItemResponse(item ledger.LineItem) lineItemResponse {
	return lineItemResponse{
		ItemName:  item.ItemName,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice.StringFixed(2),
		Subtotal:  item.Subtotal.StringFixed(2),
		AddedAt:   item.AddedAt,
	}
}

// LedgerGet returns the session ledger with its running total.
func LedgerGet(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "budget service unavailable"))
			return
		}

		summary, err := svc.Ledger(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows := make([]lineItemResponse, 0, len(summary.Rows))
		for _, row := range summary.Rows {
			rows = append(rows, toLineItemResponse(row))
		}
		responses.WriteSuccess(w, ledgerResponse{
			Rows:  rows,
			Total: summary.Total.StringFixed(2),
			State: summary.State.String(),
			Count: len(rows),
		})
	}
}

// LedgerAddItem prices the selected item from the catalog and appends it.
func LedgerAddItem(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "budget service unavailable"))
			return
		}

		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddItem(r.Context(), middleware.SessionIDFromContext(r.Context()), budget.AddItemInput{
			ItemName: body.ItemName,
			Quantity: body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := addItemResponse{Item: toLineItemResponse(result.Item)}
		if miss := result.Warning; miss != nil {
			resp.Warning = &warningResponse{
				Code:             string(pkgerrors.CodeCatalogMiss),
				Message:          miss.Error(),
				ItemName:         miss.ItemName,
				DefaultUnitPrice: miss.DefaultPrice.StringFixed(2),
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// LedgerClear drops every row of the session ledger.
func LedgerClear(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "budget service unavailable"))
			return
		}

		if err := svc.Clear(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"cleared": true})
	}
}

// LedgerReport renders the session ledger as a PDF download.
func LedgerReport(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "budget service unavailable"))
			return
		}

		title := validators.SanitizeString(r.URL.Query().Get("title"), maxReportTitleLength)
		doc, err := svc.Report(r.Context(), middleware.SessionIDFromContext(r.Context()), title)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filename := fmt.Sprintf("reporte_tucosto_%s.pdf", time.Now().UTC().Format("20060102"))
		responses.WriteBinary(w, "application/pdf", filename, doc)
	}
}

// LedgerExport appends the session ledger rows to the export sheet.
func LedgerExport(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "budget service unavailable"))
			return
		}

		written, err := svc.Export(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exportResponse{RowsWritten: written})
	}
}
