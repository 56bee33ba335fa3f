// Package budget coordinates the catalog, the session ledgers and the report/export sinks.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deliotti/tucosto-backend/internal/catalog"
	"github.com/deliotti/tucosto-backend/internal/ledger"
	"github.com/deliotti/tucosto-backend/internal/sessions"
	"github.com/deliotti/tucosto-backend/pkg/enums"
	pkgerrors "github.com/deliotti/tucosto-backend/pkg/errors"
	"github.com/deliotti/tucosto-backend/pkg/logger"
	"github.com/deliotti/tucosto-backend/pkg/report"
	"github.com/shopspring/decimal"
)

const defaultFetchTimeout = 10 * time.Second

type catalogSource interface {
	Fetch(ctx context.Context, catalogID, sheetName string) (catalog.Snapshot, error)
}

// catalogInvalidator is implemented by sources that cache snapshots.
type catalogInvalidator interface {
	Invalidate(catalogID, sheetName string)
}

type reportRenderer interface {
	Render(rows []report.Row, title string) ([]byte, error)
}

type rowExporter interface {
	AppendRows(ctx context.Context, spreadsheetID, sheetName string, rows [][]any) error
}

type ledgerMetrics interface {
	IncAppend(source string)
	IncRejected(reason string)
	IncClear()
	IncReport()
	ObserveSeconds(operation string, seconds float64)
}

// Service exposes the budgeting operations for one session at a time.
type Service interface {
	Catalog(ctx context.Context) (*CatalogView, error)
	RefreshCatalog(ctx context.Context) (*CatalogView, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (*AddItemResult, error)
	Ledger(ctx context.Context, sessionID string) (*Summary, error)
	Clear(ctx context.Context, sessionID string) error
	Report(ctx context.Context, sessionID, title string) ([]byte, error)
	Export(ctx context.Context, sessionID string) (int, error)
	EndSession(ctx context.Context, sessionID string) error
}

// ServiceParams wires the collaborators of the budget service.
type ServiceParams struct {
	Source       catalogSource
	Store        sessions.Store
	Renderer     reportRenderer
	Exporter     rowExporter
	CatalogID    string
	SheetName    string
	ExportSheet  string
	MissPolicy   enums.CatalogMissPolicy
	FetchTimeout time.Duration
	Metrics      ledgerMetrics
	Logger       *logger.Logger
}

type service struct {
	source       catalogSource
	store        sessions.Store
	renderer     reportRenderer
	exporter     rowExporter
	catalogID    string
	sheetName    string
	exportSheet  string
	missPolicy   enums.CatalogMissPolicy
	fetchTimeout time.Duration
	metrics      ledgerMetrics
	logg         *logger.Logger
}

// AddItemInput is a user selection from the catalog.
type AddItemInput struct {
	ItemName string
	Quantity int
}

// AddItemResult carries the appended row. Warning is set when the item was
// missing from the catalog and the default price was applied.
type AddItemResult struct {
	Item    ledger.LineItem
	Warning *ledger.CatalogMissError
}

// Summary is the read model of a session ledger.
type Summary struct {
	Rows  []ledger.LineItem
	Total decimal.Decimal
	State enums.LedgerState
}

// CatalogView is the selectable catalog.
type CatalogView struct {
	Items  []catalog.Item
	Groups []catalog.Group
}

// NewService builds a budget service.
func NewService(params ServiceParams) (Service, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Renderer == nil {
		return nil, fmt.Errorf("report renderer required")
	}
	if strings.TrimSpace(params.SheetName) == "" {
		return nil, fmt.Errorf("catalog sheet name required")
	}
	policy := params.MissPolicy
	if policy == "" {
		policy = enums.CatalogMissPolicyReject
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("invalid catalog miss policy %q", policy)
	}
	timeout := params.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &service{
		source:       params.Source,
		store:        params.Store,
		renderer:     params.Renderer,
		exporter:     params.Exporter,
		catalogID:    strings.TrimSpace(params.CatalogID),
		sheetName:    strings.TrimSpace(params.SheetName),
		exportSheet:  strings.TrimSpace(params.ExportSheet),
		missPolicy:   policy,
		fetchTimeout: timeout,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

func (s *service) Catalog(ctx context.Context) (*CatalogView, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &CatalogView{Items: snapshot.Items(), Groups: snapshot.Groups()}, nil
}

// RefreshCatalog drops any cached snapshot and reads the catalog again.
func (s *service) RefreshCatalog(ctx context.Context) (*CatalogView, error) {
	if inv, ok := s.source.(catalogInvalidator); ok {
		inv.Invalidate(s.catalogID, s.sheetName)
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "sheet_name", s.sheetName), "budget.catalog.invalidated")
		}
	}
	return s.Catalog(ctx)
}

func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*AddItemResult, error) {
	defer s.observe("add_item", time.Now())

	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.ItemName)
	if name == "" {
		s.reject("invalid_input")
		return nil, validationError(&ledger.InvalidInputError{Field: "item_name", Reason: "must not be empty"})
	}
	if input.Quantity < 1 {
		s.reject("invalid_input")
		return nil, validationError(&ledger.InvalidInputError{Field: "quantity", Reason: "must be at least 1"})
	}

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		s.reject("catalog_unavailable")
		return nil, err
	}

	result := &AddItemResult{}
	priceSource := "catalog"
	price, ok := snapshot.Lookup(name)
	if !ok {
		miss := &ledger.CatalogMissError{ItemName: name, DefaultPrice: snapshot.DefaultPrice()}
		if s.missPolicy == enums.CatalogMissPolicyReject {
			s.reject("catalog_miss")
			return nil, catalogMissError(miss)
		}
		price = miss.DefaultPrice
		priceSource = "default"
		result.Warning = miss
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"item_name":          name,
				"default_unit_price": miss.DefaultPrice.StringFixed(2),
			})
			s.logg.Warn(logCtx, "budget.catalog_miss.default_price")
		}
	}

	err = s.store.Update(ctx, sessionID, func(l *ledger.Ledger) error {
		item, appendErr := l.Append(name, input.Quantity, price)
		if appendErr != nil {
			return appendErr
		}
		result.Item = item
		return nil
	})
	if err != nil {
		var invalid *ledger.InvalidInputError
		if errors.As(err, &invalid) {
			s.reject("invalid_input")
			return nil, validationError(invalid)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist ledger")
	}

	if s.metrics != nil {
		s.metrics.IncAppend(priceSource)
	}
	return result, nil
}

func (s *service) Ledger(ctx context.Context, sessionID string) (*Summary, error) {
	l, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Summary{Rows: l.Rows(), Total: l.Total(), State: l.State()}, nil
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	defer s.observe("clear", time.Now())

	if err := requireSession(sessionID); err != nil {
		return err
	}
	err := s.store.Update(ctx, sessionID, func(l *ledger.Ledger) error {
		l.Clear()
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear ledger")
	}
	if s.metrics != nil {
		s.metrics.IncClear()
	}
	return nil
}

func (s *service) Report(ctx context.Context, sessionID, title string) ([]byte, error) {
	defer s.observe("report", time.Now())

	l, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rows := l.Rows()
	reportRows := make([]report.Row, 0, len(rows))
	for _, row := range rows {
		reportRows = append(reportRows, report.Row{
			ItemName:  row.ItemName,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
			Subtotal:  row.Subtotal,
		})
	}

	doc, err := s.renderer.Render(reportRows, strings.TrimSpace(title))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render report")
	}
	if s.metrics != nil {
		s.metrics.IncReport()
	}
	return doc, nil
}

func (s *service) Export(ctx context.Context, sessionID string) (int, error) {
	defer s.observe("export", time.Now())

	if s.exporter == nil || s.exportSheet == "" {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "ledger export is not configured")
	}
	l, err := s.load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	rows := l.Rows()
	if len(rows) == 0 {
		return 0, nil
	}

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, []any{
			row.ItemName,
			strconv.Itoa(row.Quantity),
			row.UnitPrice.StringFixed(2),
			row.Subtotal.StringFixed(2),
		})
	}
	if err := s.exporter.AppendRows(ctx, s.catalogID, s.exportSheet, values); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "export ledger").
			WithDetails(map[string]any{"sheet_name": s.exportSheet})
	}
	return len(values), nil
}

// EndSession discards the session's ledger entirely.
func (s *service) EndSession(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "end session")
	}
	return nil
}

func (s *service) snapshot(ctx context.Context) (catalog.Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	snapshot, err := s.source.Fetch(fetchCtx, s.catalogID, s.sheetName)
	if err != nil {
		details := map[string]any{"sheet_name": s.sheetName}
		var fetchErr *catalog.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Reason != "" {
			details["reason"] = fetchErr.Reason
		}
		return catalog.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog unavailable").WithDetails(details)
	}
	return snapshot, nil
}

func (s *service) load(ctx context.Context, sessionID string) (*ledger.Ledger, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	l, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger")
	}
	return l, nil
}

func (s *service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.IncRejected(reason)
	}
}

func (s *service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSeconds(operation, time.Since(start).Seconds())
	}
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return nil
}

func validationError(err *ledger.InvalidInputError) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
		WithDetails(map[string]any{"field": err.Field, "reason": err.Reason})
}

func catalogMissError(err *ledger.CatalogMissError) error {
	return pkgerrors.Wrap(pkgerrors.CodeCatalogMiss, err, err.Error()).
		WithDetails(map[string]any{
			"item_name":          err.ItemName,
			"default_unit_price": err.DefaultPrice.StringFixed(2),
		})
}
