package catalog

import (
	"context"
	"fmt"
)

// Source fetches the catalog stored under catalogID/sheetName.
type Source interface {
	Fetch(ctx context.Context, catalogID, sheetName string) (Snapshot, error)
}

// FetchError reports a failure to read or interpret the catalog.
type FetchError struct {
	CatalogID string
	SheetName string
	Reason    string
	Err       error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch catalog %s/%s", e.CatalogID, e.SheetName)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
