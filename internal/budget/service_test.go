package budget

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/deliotti/tucosto-backend/internal/catalog"
	"github.com/deliotti/tucosto-backend/internal/ledger"
	"github.com/deliotti/tucosto-backend/internal/sessions"
	"github.com/deliotti/tucosto-backend/pkg/enums"
	pkgerrors "github.com/deliotti/tucosto-backend/pkg/errors"
	"github.com/deliotti/tucosto-backend/pkg/report"
	"github.com/shopspring/decimal"
)

type stubSource struct {
	snapshot    catalog.Snapshot
	err         error
	calls       int
	invalidated int
	gotID       string
	gotSheet    string
}

func (s *stubSource) Fetch(ctx context.Context, catalogID, sheetName string) (catalog.Snapshot, error) {
	s.calls++
	s.gotID, s.gotSheet = catalogID, sheetName
	if s.err != nil {
		return catalog.Snapshot{}, s.err
	}
	return s.snapshot, nil
}

func (s *stubSource) Invalidate(catalogID, sheetName string) {
	s.invalidated++
}

type stubRenderer struct {
	rows  []report.Row
	title string
	err   error
}

func (s *stubRenderer) Render(rows []report.Row, title string) ([]byte, error) {
	s.rows, s.title = rows, title
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-stub"), nil
}

type stubExporter struct {
	rows  [][]any
	id    string
	sheet string
	err   error
}

func (s *stubExporter) AppendRows(ctx context.Context, spreadsheetID, sheetName string, rows [][]any) error {
	s.id, s.sheet = spreadsheetID, sheetName
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, rows...)
	return nil
}

type failingStore struct {
	err error
}

func (f failingStore) Load(ctx context.Context, sessionID string) (*ledger.Ledger, error) {
	return nil, f.err
}

func (f failingStore) Save(ctx context.Context, sessionID string, l *ledger.Ledger) error {
	return f.err
}

func (f failingStore) Delete(ctx context.Context, sessionID string) error {
	return f.err
}

func (f failingStore) Update(ctx context.Context, sessionID string, fn func(*ledger.Ledger) error) error {
	return f.err
}

type recordingMetrics struct {
	appends  map[string]int
	rejected map[string]int
	clears   int
	reports  int
	ops      []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{appends: map[string]int{}, rejected: map[string]int{}}
}

func (m *recordingMetrics) IncAppend(source string)   { m.appends[source]++ }
func (m *recordingMetrics) IncRejected(reason string) { m.rejected[reason]++ }
func (m *recordingMetrics) IncClear()                 { m.clears++ }
func (m *recordingMetrics) IncReport()                { m.reports++ }
func (m *recordingMetrics) ObserveSeconds(op string, _ float64) {
	m.ops = append(m.ops, op)
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func demoSnapshot() catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Item{
		{Name: "Cemento", UnitPrice: dec("150")},
		{Name: "Arena", UnitPrice: dec("100")},
		{Name: "Grava", UnitPrice: dec("80")},
		{Name: "Puerta 90x200", UnitPrice: dec("250.0")},
		{Name: "Lata 4L blanca", UnitPrice: dec("70.0")},
	})
}

type fixture struct {
	svc      Service
	source   *stubSource
	renderer *stubRenderer
	exporter *stubExporter
	metrics  *recordingMetrics
	store    *sessions.MemoryStore
}

func newFixture(t *testing.T, mutate func(*ServiceParams)) fixture {
	t.Helper()
	f := fixture{
		source:   &stubSource{snapshot: demoSnapshot()},
		renderer: &stubRenderer{},
		exporter: &stubExporter{},
		metrics:  newRecordingMetrics(),
		store:    sessions.NewMemoryStore(time.Hour),
	}
	params := ServiceParams{
		Source:      f.source,
		Store:       f.store,
		Renderer:    f.renderer,
		Exporter:    f.exporter,
		CatalogID:   "sheet-123",
		SheetName:   "Hoja 1",
		ExportSheet: "Presupuestos",
		Metrics:     f.metrics,
	}
	if mutate != nil {
		mutate(&params)
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func expectCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error %s, got %v", want, err)
	}
	if typed.Code() != want {
		t.Fatalf("expected code %s, got %s (%v)", want, typed.Code(), err)
	}
}

func mustAdd(t *testing.T, svc Service, sessionID, name string, qty int) *AddItemResult {
	t.Helper()
	res, err := svc.AddItem(context.Background(), sessionID, AddItemInput{ItemName: name, Quantity: qty})
	if err != nil {
		t.Fatalf("AddItem(%s, %d): %v", name, qty, err)
	}
	return res
}

func mustLedger(t *testing.T, svc Service, sessionID string) *Summary {
	t.Helper()
	summary, err := svc.Ledger(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	return summary
}

func TestNewServiceValidatesParams(t *testing.T) {
	t.Parallel()

	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error for empty params")
	}

	_, err := NewService(ServiceParams{
		Source:     &stubSource{},
		Store:      sessions.NewMemoryStore(0),
		Renderer:   &stubRenderer{},
		SheetName:  "Hoja 1",
		MissPolicy: enums.CatalogMissPolicy("guess"),
	})
	if err == nil {
		t.Fatal("expected error for unknown miss policy")
	}
}

func TestAddItemUsesCatalogPrice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	res := mustAdd(t, f.svc, "s1", "Cemento", 2)
	if res.Warning != nil {
		t.Fatalf("unexpected warning %v", res.Warning)
	}
	if !res.Item.UnitPrice.Equal(dec("150")) || !res.Item.Subtotal.Equal(dec("300")) {
		t.Fatalf("unexpected item %+v", res.Item)
	}
	if f.source.gotID != "sheet-123" || f.source.gotSheet != "Hoja 1" {
		t.Fatalf("unexpected catalog coordinates %q/%q", f.source.gotID, f.source.gotSheet)
	}
	if f.metrics.appends["catalog"] != 1 {
		t.Fatalf("expected catalog append metric, got %v", f.metrics.appends)
	}
}

func TestBudgetScenarioTotals(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	mustAdd(t, f.svc, "s1", "Cemento", 2)
	mustAdd(t, f.svc, "s1", "Arena", 3)
	mustAdd(t, f.svc, "s1", "Grava", 1)

	summary := mustLedger(t, f.svc, "s1")
	names := make([]string, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		names = append(names, row.ItemName)
	}
	if !reflect.DeepEqual(names, []string{"Cemento", "Arena", "Grava"}) {
		t.Fatalf("unexpected rows %v", names)
	}
	if !summary.Total.Equal(dec("680")) {
		t.Fatalf("expected total 680, got %s", summary.Total)
	}
	if summary.State != enums.LedgerStateNonEmpty {
		t.Fatalf("expected non_empty, got %s", summary.State)
	}

	if err := f.svc.Clear(context.Background(), "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	summary = mustLedger(t, f.svc, "s1")
	if len(summary.Rows) != 0 || !summary.Total.IsZero() || summary.State != enums.LedgerStateEmpty {
		t.Fatalf("expected empty ledger after clear, got %+v", summary)
	}
	if f.metrics.clears != 1 {
		t.Fatalf("expected 1 clear metric, got %d", f.metrics.clears)
	}
}

func TestPuertaLataScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	first := mustAdd(t, f.svc, "s1", "Puerta 90x200", 2)
	second := mustAdd(t, f.svc, "s1", "Lata 4L blanca", 3)
	if !first.Item.Subtotal.Equal(dec("500")) || !second.Item.Subtotal.Equal(dec("210")) {
		t.Fatalf("unexpected subtotals %s / %s", first.Item.Subtotal, second.Item.Subtotal)
	}
	if total := mustLedger(t, f.svc, "s1").Total; !total.Equal(dec("710")) {
		t.Fatalf("expected total 710, got %s", total)
	}
}

func TestAddItemRejectsInvalidInputWithoutMutation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "s1", AddItemInput{ItemName: "Cemento", Quantity: 0})
	expectCode(t, err, pkgerrors.CodeValidation)
	var invalid *ledger.InvalidInputError
	if !errors.As(err, &invalid) || invalid.Field != "quantity" {
		t.Fatalf("expected quantity InvalidInputError, got %v", err)
	}

	_, err = f.svc.AddItem(ctx, "s1", AddItemInput{ItemName: "  ", Quantity: 1})
	expectCode(t, err, pkgerrors.CodeValidation)

	if rows := mustLedger(t, f.svc, "s1").Rows; len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if f.source.calls != 0 {
		t.Fatalf("invalid input should not hit the catalog, got %d calls", f.source.calls)
	}
	if f.metrics.rejected["invalid_input"] != 2 {
		t.Fatalf("expected 2 invalid_input rejections, got %v", f.metrics.rejected)
	}
}

func TestAddItemCatalogMissRejectPolicy(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.svc.AddItem(context.Background(), "s1", AddItemInput{ItemName: "Madera", Quantity: 1})
	expectCode(t, err, pkgerrors.CodeCatalogMiss)

	var miss *ledger.CatalogMissError
	if !errors.As(err, &miss) || miss.ItemName != "Madera" {
		t.Fatalf("expected CatalogMissError for Madera, got %v", err)
	}

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", pkgerrors.As(err).Details())
	}
	if details["item_name"] != "Madera" || details["default_unit_price"] != "0.00" {
		t.Fatalf("unexpected details %v", details)
	}

	if rows := mustLedger(t, f.svc, "s1").Rows; len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if f.metrics.rejected["catalog_miss"] != 1 {
		t.Fatalf("expected catalog_miss rejection, got %v", f.metrics.rejected)
	}
}

func TestAddItemCatalogMissDefaultPricePolicy(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(p *ServiceParams) {
		p.MissPolicy = enums.CatalogMissPolicyDefaultPrice
	})

	res := mustAdd(t, f.svc, "s1", "Madera", 4)
	if res.Warning == nil || res.Warning.ItemName != "Madera" {
		t.Fatalf("expected warning for Madera, got %+v", res.Warning)
	}
	if !res.Item.UnitPrice.IsZero() || !res.Item.Subtotal.IsZero() {
		t.Fatalf("expected zero-priced row, got %+v", res.Item)
	}
	if f.metrics.appends["default"] != 1 {
		t.Fatalf("expected default append metric, got %v", f.metrics.appends)
	}
	if rows := mustLedger(t, f.svc, "s1").Rows; len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestAddItemCatalogFailureIsDependencyError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.source.err = &catalog.FetchError{CatalogID: "sheet-123", SheetName: "Hoja 1", Reason: "missing columns Costo"}

	_, err := f.svc.AddItem(context.Background(), "s1", AddItemInput{ItemName: "Cemento", Quantity: 1})
	expectCode(t, err, pkgerrors.CodeDependency)

	var fetchErr *catalog.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError in chain, got %v", err)
	}
	details := pkgerrors.As(err).Details().(map[string]any)
	if details["reason"] != "missing columns Costo" {
		t.Fatalf("unexpected details %v", details)
	}
	if f.metrics.rejected["catalog_unavailable"] != 1 {
		t.Fatalf("expected catalog_unavailable rejection, got %v", f.metrics.rejected)
	}
}

func TestStoreFailuresAreDependencyErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("redis down")
	f := newFixture(t, func(p *ServiceParams) {
		p.Store = failingStore{err: boom}
	})
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "s1", AddItemInput{ItemName: "Cemento", Quantity: 1})
	expectCode(t, err, pkgerrors.CodeDependency)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error in chain, got %v", err)
	}

	_, err = f.svc.Ledger(ctx, "s1")
	expectCode(t, err, pkgerrors.CodeDependency)
	expectCode(t, f.svc.Clear(ctx, "s1"), pkgerrors.CodeDependency)
	expectCode(t, f.svc.EndSession(ctx, "s1"), pkgerrors.CodeDependency)
}

func TestSessionIDRequired(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.svc.Ledger(context.Background(), " ")
	expectCode(t, err, pkgerrors.CodeValidation)
	_, err = f.svc.AddItem(context.Background(), "", AddItemInput{ItemName: "Cemento", Quantity: 1})
	expectCode(t, err, pkgerrors.CodeValidation)
	expectCode(t, f.svc.EndSession(context.Background(), ""), pkgerrors.CodeValidation)
}

func TestSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	mustAdd(t, f.svc, "a", "Cemento", 1)

	if rows := mustLedger(t, f.svc, "b").Rows; len(rows) != 0 {
		t.Fatalf("expected session b to be empty, got %d rows", len(rows))
	}
}

func TestEndSessionDropsLedger(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	mustAdd(t, f.svc, "s1", "Cemento", 1)
	mustAdd(t, f.svc, "s2", "Arena", 1)
	if f.store.Len() != 2 {
		t.Fatalf("expected 2 stored sessions, got %d", f.store.Len())
	}

	if err := f.svc.EndSession(context.Background(), "s1"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if f.store.Len() != 1 {
		t.Fatalf("expected 1 stored session, got %d", f.store.Len())
	}
	if rows := mustLedger(t, f.svc, "s1").Rows; len(rows) != 0 {
		t.Fatalf("expected ended session to be empty, got %d rows", len(rows))
	}
}

func TestCatalogView(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	view, err := f.svc.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(view.Items) != 5 || view.Items[0].Name != "Cemento" {
		t.Fatalf("unexpected items %+v", view.Items)
	}
}

func TestRefreshCatalogInvalidatesCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	view, err := f.svc.RefreshCatalog(context.Background())
	if err != nil {
		t.Fatalf("RefreshCatalog: %v", err)
	}
	if f.source.invalidated != 1 || f.source.calls != 1 {
		t.Fatalf("expected invalidate then fetch, got invalidated=%d calls=%d", f.source.invalidated, f.source.calls)
	}
	if len(view.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(view.Items))
	}
}

func TestRefreshCatalogAgainstCachedSource(t *testing.T) {
	t.Parallel()

	upstream := &stubSource{snapshot: demoSnapshot()}
	cached := catalog.NewCachedSource(catalog.CachedSourceParams{Source: upstream, TTL: time.Hour})
	f := newFixture(t, func(p *ServiceParams) {
		p.Source = cached
	})
	ctx := context.Background()

	if _, err := f.svc.Catalog(ctx); err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if _, err := f.svc.Catalog(ctx); err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if upstream.calls != 1 {
		t.Fatalf("expected cached read, got %d upstream calls", upstream.calls)
	}

	if _, err := f.svc.RefreshCatalog(ctx); err != nil {
		t.Fatalf("RefreshCatalog: %v", err)
	}
	if upstream.calls != 2 {
		t.Fatalf("expected refresh to refetch, got %d upstream calls", upstream.calls)
	}
}

func TestReportPassesRowsAndTitle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	mustAdd(t, f.svc, "s1", "Arena", 3)

	doc, err := f.svc.Report(context.Background(), "s1", " Obra Norte ")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if string(doc) != "%PDF-stub" {
		t.Fatalf("unexpected document %q", doc)
	}
	if f.renderer.title != "Obra Norte" {
		t.Fatalf("expected trimmed title, got %q", f.renderer.title)
	}
	if len(f.renderer.rows) != 1 || !f.renderer.rows[0].Subtotal.Equal(dec("300")) {
		t.Fatalf("unexpected report rows %+v", f.renderer.rows)
	}
	if f.metrics.reports != 1 {
		t.Fatalf("expected 1 report metric, got %d", f.metrics.reports)
	}
}

func TestReportRenderFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.renderer.err = errors.New("font missing")

	_, err := f.svc.Report(context.Background(), "s1", "")
	expectCode(t, err, pkgerrors.CodeInternal)
}

func TestExportAppendsStringRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	mustAdd(t, f.svc, "s1", "Cemento", 2)

	n, err := f.svc.Export(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row written, got %d", n)
	}
	if f.exporter.id != "sheet-123" || f.exporter.sheet != "Presupuestos" {
		t.Fatalf("unexpected export target %q/%q", f.exporter.id, f.exporter.sheet)
	}
	want := [][]any{{"Cemento", "2", "150.00", "300.00"}}
	if !reflect.DeepEqual(f.exporter.rows, want) {
		t.Fatalf("expected rows %v, got %v", want, f.exporter.rows)
	}
}

func TestExportEmptyLedgerWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	n, err := f.svc.Export(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 0 || len(f.exporter.rows) != 0 {
		t.Fatalf("expected nothing written, got n=%d rows=%v", n, f.exporter.rows)
	}
}

func TestExportNotConfigured(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(p *ServiceParams) {
		p.Exporter = nil
	})

	_, err := f.svc.Export(context.Background(), "s1")
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestExportFailureKeepsLedger(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	mustAdd(t, f.svc, "s1", "Grava", 1)

	f.exporter.err = errors.New("quota exceeded")
	_, err := f.svc.Export(context.Background(), "s1")
	expectCode(t, err, pkgerrors.CodeDependency)

	if rows := mustLedger(t, f.svc, "s1").Rows; len(rows) != 1 {
		t.Fatalf("expected ledger to survive export failure, got %d rows", len(rows))
	}
}
