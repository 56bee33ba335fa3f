package controllers

import (
	"net/http"

	"github.com/deliotti/tucosto-backend/api/responses"
	"github.com/deliotti/tucosto-backend/internal/budget"
	pkgerrors "github.com/deliotti/tucosto-backend/pkg/errors"
	"github.com/deliotti/tucosto-backend/pkg/logger"
)

type catalogItemResponse struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
}

type catalogGroupResponse struct {
	Product  string   `json:"product"`
	Category string   `json:"category,omitempty"`
	Variants []string `json:"variants"`
}

type catalogResponse struct {
	Items  []catalogItemResponse  `json:"items"`
	Groups []catalogGroupResponse `json:"groups,omitempty"`
}

// CatalogList returns the selectable items and their current unit prices.
func CatalogList(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "budget service unavailable"))
			return
		}

		view, err := svc.Catalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toCatalogResponse(view))
	}
}

// CatalogRefresh drops the cached catalog and returns a fresh read.
func CatalogRefresh(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "budget service unavailable"))
			return
		}

		view, err := svc.RefreshCatalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCatalogResponse(view))
	}
}

func toCatalogResponse(view *budget.CatalogView) catalogResponse {
	resp := catalogResponse{Items: make([]catalogItemResponse, 0, len(view.Items))}
	for _, item := range view.Items {
		resp.Items = append(resp.Items, catalogItemResponse{
			Name:      item.Name,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}
	for _, group := range view.Groups {
		resp.Groups = append(resp.Groups, catalogGroupResponse{
			Product:  group.Product,
			Category: group.Category,
			Variants: group.Variants,
		})
	}
	return resp
}
