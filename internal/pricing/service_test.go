package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kaclira/kaclira-backend/pkg/config"
	"github.com/kaclira/kaclira-backend/pkg/db/models"
	"github.com/kaclira/kaclira-backend/pkg/enums"
	pkgerrors "github.com/kaclira/kaclira-backend/pkg/errors"
	"github.com/kaclira/kaclira-backend/pkg/outbox"
	"github.com/kaclira/kaclira-backend/pkg/outbox/payloads"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeGuard struct {
	denied bool
}

func (f fakeGuard) EnsurePermission(ctx context.Context, sellerID uuid.UUID, permission enums.Permission) error {
	if f.denied {
		return pkgerrors.New(pkgerrors.CodeForbidden, "seller lacks permission "+permission.String())
	}
	return nil
}

type fakeCatalog struct {
	missing   bool
	creatorOf map[uuid.UUID]uuid.UUID
}

func (f fakeCatalog) EnsureListed(ctx context.Context, id uuid.UUID) error {
	if f.missing {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (f fakeCatalog) IsCreator(ctx context.Context, productID, sellerID uuid.UUID) (bool, error) {
	return f.creatorOf[productID] == sellerID, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakePriceRepo struct {
	prices  map[string]*models.ProductPrice
	history []models.PriceHistory
	summary *SummaryRow
}

func priceKey(productID, sellerID uuid.UUID) string {
	return productID.String() + "|" + sellerID.String()
}

func (f *fakePriceRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePriceRepo) FindBySellerProduct(ctx context.Context, productID, sellerID uuid.UUID) (*models.ProductPrice, error) {
	if price, ok := f.prices[priceKey(productID, sellerID)]; ok {
		copied := *price
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePriceRepo) FindForUpdate(tx *gorm.DB, productID, sellerID uuid.UUID) (*models.ProductPrice, error) {
	return f.FindBySellerProduct(context.Background(), productID, sellerID)
}

func (f *fakePriceRepo) Create(tx *gorm.DB, price *models.ProductPrice) error {
	if price.ID == uuid.Nil {
		price.ID = uuid.New()
	}
	if f.prices == nil {
		f.prices = map[string]*models.ProductPrice{}
	}
	stored := *price
	f.prices[priceKey(price.ProductID, price.SellerID)] = &stored
	return nil
}

func (f *fakePriceRepo) Update(tx *gorm.DB, price *models.ProductPrice) error {
	stored := *price
	f.prices[priceKey(price.ProductID, price.SellerID)] = &stored
	return nil
}

func (f *fakePriceRepo) InsertHistory(tx *gorm.DB, row *models.PriceHistory) error {
	f.history = append(f.history, *row)
	return nil
}

func (f *fakePriceRepo) ListHistory(ctx context.Context, productPriceID uuid.UUID, since time.Time, limit int) ([]models.PriceHistory, error) {
	var rows []models.PriceHistory
	for _, row := range f.history {
		if row.ProductPriceID == productPriceID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakePriceRepo) Summary(ctx context.Context, productID uuid.UUID) (*SummaryRow, error) {
	if f.summary != nil {
		return f.summary, nil
	}
	return &SummaryRow{}, nil
}

func (f *fakePriceRepo) ListSellerPrices(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ProductPrice, error) {
	return nil, nil
}

func (f *fakePriceRepo) RecentChanges(ctx context.Context, since time.Time, types []enums.PriceChangeType, limit int) ([]HistoryWithPrice, error) {
	return nil, nil
}

func (f *fakePriceRepo) DeleteHistoryBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	return 0, nil
}

func (f *fakePriceRepo) CountHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type testEnv struct {
	svc     Service
	repo    *fakePriceRepo
	emitter *fakeEmitter
}

func newTestEnv(t *testing.T, mutate func(*ServiceParams)) testEnv {
	t.Helper()
	repo := &fakePriceRepo{prices: map[string]*models.ProductPrice{}}
	emitter := &fakeEmitter{}
	params := ServiceParams{
		DB:       fakeTxRunner{},
		Repo:     repo,
		Sellers:  fakeGuard{},
		Products: fakeCatalog{},
		Emitter:  emitter,
		Config: config.PricingConfig{
			UserAlertPercent:  5.0,
			AdminAlertPercent: 20.0,
			BulkMaxItems:      100,
			BulkChunkSize:     50,
		},
	}
	if mutate != nil {
		mutate(&params)
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return testEnv{svc: svc, repo: repo, emitter: emitter}
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func seedListing(env testEnv, productID, sellerID uuid.UUID, price string, stock int) {
	row := models.ProductPrice{
		ID:        uuid.New(),
		ProductID: productID,
		SellerID:  sellerID,
		Price:     dec(price),
		Stock:     stock,
		IsActive:  true,
	}
	env.repo.prices[priceKey(productID, sellerID)] = &row
}

func TestSetPrice_ValidationBounds(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID := uuid.New()
	productID := uuid.New()

	cases := []struct {
		name  string
		input SetPriceInput
	}{
		{"zero price", SetPriceInput{Price: dec("0"), Stock: intPtr(1)}},
		{"negative price", SetPriceInput{Price: dec("-5"), Stock: intPtr(1)}},
		{"price over cap", SetPriceInput{Price: dec("1000000.00"), Stock: intPtr(1)}},
		{"negative stock", SetPriceInput{Price: dec("10.00"), Stock: intPtr(-1)}},
		{"stock over cap", SetPriceInput{Price: dec("10.00"), Stock: intPtr(1000000)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.SetPrice(context.Background(), sellerID, productID, tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation, got %v", err)
			}
		})
	}
}

func TestSetPrice_WithoutPermission(t *testing.T) {
	env := newTestEnv(t, func(p *ServiceParams) {
		p.Sellers = fakeGuard{denied: true}
	})
	_, err := env.svc.SetPrice(context.Background(), uuid.New(), uuid.New(), SetPriceInput{Price: dec("10.00")})
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSetPrice_NoListingAndNotCreator(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.svc.SetPrice(context.Background(), uuid.New(), uuid.New(), SetPriceInput{Price: dec("10.00"), Stock: intPtr(5)})
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSetPrice_CreatorBootstrapsListing(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	env := newTestEnv(t, func(p *ServiceParams) {
		p.Products = fakeCatalog{creatorOf: map[uuid.UUID]uuid.UUID{productID: sellerID}}
	})

	dto, err := env.svc.SetPrice(context.Background(), sellerID, productID, SetPriceInput{Price: dec("49.90"), Stock: intPtr(12)})
	if err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if !dto.Price.Equal(dec("49.90")) || dto.Stock != 12 {
		t.Fatalf("unexpected listing %v", dto)
	}
	if len(env.repo.history) != 1 {
		t.Fatalf("expected one audit row, got %d", len(env.repo.history))
	}
	row := env.repo.history[0]
	if row.ChangeType != enums.PriceChangeNone {
		t.Fatalf("first listing has nothing to compare against, got %s", row.ChangeType)
	}
	if row.OldPrice != nil || row.OldStock != nil {
		t.Fatal("first listing must record null old values")
	}
	if row.NewStock == nil || *row.NewStock != 12 {
		t.Fatalf("unexpected new stock %v", row.NewStock)
	}
}

func TestSetPrice_AuditsEveryWrite(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID := uuid.New()
	productID := uuid.New()
	seedListing(env, productID, sellerID, "100.00", 10)

	if _, err := env.svc.SetPrice(context.Background(), sellerID, productID, SetPriceInput{Price: dec("90.00"), Stock: intPtr(4)}); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if len(env.repo.history) != 1 {
		t.Fatalf("expected one audit row, got %d", len(env.repo.history))
	}
	row := env.repo.history[0]
	if row.ChangeType != enums.PriceChangeBoth {
		t.Fatalf("expected both, got %s", row.ChangeType)
	}
	if row.OldPrice == nil || !row.OldPrice.Equal(dec("100.00")) {
		t.Fatalf("unexpected old price %v", row.OldPrice)
	}

	// N writes produce N rows: a write with identical values still lands in
	// the trail, classified as no change.
	if _, err := env.svc.SetPrice(context.Background(), sellerID, productID, SetPriceInput{Price: dec("90.00"), Stock: intPtr(4)}); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if len(env.repo.history) != 2 {
		t.Fatalf("every write must append history, got %d rows", len(env.repo.history))
	}
	if env.repo.history[1].ChangeType != enums.PriceChangeNone {
		t.Fatalf("expected no change, got %s", env.repo.history[1].ChangeType)
	}
}

func TestSetPrice_OmittedStockKeepsExisting(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID := uuid.New()
	productID := uuid.New()
	seedListing(env, productID, sellerID, "100.00", 10)

	dto, err := env.svc.SetPrice(context.Background(), sellerID, productID, SetPriceInput{Price: dec("90.00")})
	if err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if dto.Stock != 10 {
		t.Fatalf("omitting stock must keep the stored quantity, got %d", dto.Stock)
	}
	stored := env.repo.prices[priceKey(productID, sellerID)]
	if stored.Stock != 10 {
		t.Fatalf("stored stock changed to %d", stored.Stock)
	}
	if len(env.repo.history) != 1 {
		t.Fatalf("expected one audit row, got %d", len(env.repo.history))
	}
	row := env.repo.history[0]
	if row.ChangeType != enums.PriceChangeDecrease {
		t.Fatalf("expected a pure price decrease, got %s", row.ChangeType)
	}
	if row.NewStock != nil {
		t.Fatalf("omitted stock must not be recorded as new stock, got %d", *row.NewStock)
	}
}

func TestSetPrice_ReactivatesStoredRow(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID := uuid.New()
	productID := uuid.New()
	seedListing(env, productID, sellerID, "100.00", 10)
	env.repo.prices[priceKey(productID, sellerID)].IsActive = false

	dto, err := env.svc.SetPrice(context.Background(), sellerID, productID, SetPriceInput{Price: dec("100.00"), Stock: intPtr(10)})
	if err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if !dto.IsActive {
		t.Fatal("write must report the listing active")
	}
	if stored := env.repo.prices[priceKey(productID, sellerID)]; !stored.IsActive {
		t.Fatal("reactivation must be persisted, not just returned")
	}
}

func TestSetPrice_ExplicitDeactivateViaBody(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID := uuid.New()
	productID := uuid.New()
	seedListing(env, productID, sellerID, "100.00", 10)

	dto, err := env.svc.SetPrice(context.Background(), sellerID, productID, SetPriceInput{Price: dec("100.00"), IsActive: boolPtr(false)})
	if err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if dto.IsActive {
		t.Fatal("isActive=false must deactivate the listing")
	}
	if stored := env.repo.prices[priceKey(productID, sellerID)]; stored.IsActive {
		t.Fatal("deactivation must be persisted")
	}
}

func TestSetPrice_DropBelowThresholdStaysQuiet(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID := uuid.New()
	productID := uuid.New()
	seedListing(env, productID, sellerID, "100.00", 10)

	if _, err := env.svc.SetPrice(context.Background(), sellerID, productID, SetPriceInput{Price: dec("96.00"), Stock: intPtr(10)}); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if len(env.emitter.events) != 0 {
		t.Fatalf("4%% drop must not queue an event, got %d", len(env.emitter.events))
	}
}

func TestSetPrice_DropAtThresholdQueuesEvent(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID := uuid.New()
	productID := uuid.New()
	seedListing(env, productID, sellerID, "100.00", 10)

	if _, err := env.svc.SetPrice(context.Background(), sellerID, productID, SetPriceInput{Price: dec("95.00"), Stock: intPtr(10)}); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if len(env.emitter.events) != 1 {
		t.Fatalf("5%% drop must queue an event, got %d", len(env.emitter.events))
	}
	event := env.emitter.events[0]
	if event.EventType != enums.EventPriceDropped {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	payload, ok := event.Data.(payloads.PriceDropEvent)
	if !ok {
		t.Fatalf("unexpected payload %T", event.Data)
	}
	if !payload.PercentDrop.Equal(dec("5")) {
		t.Fatalf("expected 5%% drop, got %s", payload.PercentDrop)
	}
}

func TestSetPrice_IncreaseNeverQueuesEvent(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID := uuid.New()
	productID := uuid.New()
	seedListing(env, productID, sellerID, "100.00", 10)

	if _, err := env.svc.SetPrice(context.Background(), sellerID, productID, SetPriceInput{Price: dec("150.00"), Stock: intPtr(10)}); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if len(env.emitter.events) != 0 {
		t.Fatalf("price increase must not queue an event, got %d", len(env.emitter.events))
	}
}

func TestBulkSetPrices_CapEnforcedBeforeWrites(t *testing.T) {
	env := newTestEnv(t, nil)
	sellerID := uuid.New()

	items := make([]BulkItem, 101)
	for i := range items {
		items[i] = BulkItem{ProductID: uuid.NewString(), Price: dec("10.00"), Stock: intPtr(1)}
	}
	_, err := env.svc.BulkSetPrices(context.Background(), sellerID, BulkSetPricesInput{Items: items})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", err)
	}
	if len(env.repo.history) != 0 {
		t.Fatalf("no writes may happen when the cap is exceeded, got %d", len(env.repo.history))
	}
}

func TestBulkSetPrices_PartialSuccess(t *testing.T) {
	sellerID := uuid.New()
	good := uuid.New()
	alsoGood := uuid.New()
	env := newTestEnv(t, nil)
	seedListing(env, good, sellerID, "50.00", 5)
	seedListing(env, alsoGood, sellerID, "70.00", 5)

	input := BulkSetPricesInput{Items: []BulkItem{
		{ProductID: good.String(), Price: dec("45.00"), Stock: intPtr(5)},
		{ProductID: "not-a-uuid", Price: dec("10.00"), Stock: intPtr(1)},
		{ProductID: uuid.NewString(), Price: dec("10.00"), Stock: intPtr(1)}, // no listing, not creator
		{ProductID: alsoGood.String(), Price: dec("0"), Stock: intPtr(1)},
	}}
	result, err := env.svc.BulkSetPrices(context.Background(), sellerID, input)
	if err != nil {
		t.Fatalf("BulkSetPrices: %v", err)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("expected 1 success, got %d", result.SuccessCount)
	}
	if result.ErrorCount != 3 {
		t.Fatalf("expected 3 errors, got %d", result.ErrorCount)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("expected 3 error entries, got %d", len(result.Errors))
	}
	if result.Errors[0].Index != 1 || result.Errors[0].Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected first error %+v", result.Errors[0])
	}
	if result.Errors[1].Index != 2 || result.Errors[1].Code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected second error %+v", result.Errors[1])
	}
	if result.Errors[2].Index != 3 || result.Errors[2].Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected third error %+v", result.Errors[2])
	}

	updated := env.repo.prices[priceKey(good, sellerID)]
	if !updated.Price.Equal(dec("45.00")) {
		t.Fatalf("successful entry must commit, price is %s", updated.Price)
	}
	failed := env.repo.prices[priceKey(alsoGood, sellerID)]
	if !failed.Price.Equal(dec("70.00")) {
		t.Fatalf("failed entry must not commit, price is %s", failed.Price)
	}
}

func TestDerivedQueries_ActiveListings(t *testing.T) {
	env := newTestEnv(t, nil)
	env.repo.summary = &SummaryRow{
		SellerCount:  3,
		InStockCount: 2,
		LowestPrice:  decimal.NullDecimal{Decimal: dec("10.00"), Valid: true},
		HighestPrice: decimal.NullDecimal{Decimal: dec("25.00"), Valid: true},
	}
	productID := uuid.New()

	lowest, err := env.svc.LowestActivePrice(context.Background(), productID)
	if err != nil {
		t.Fatalf("LowestActivePrice: %v", err)
	}
	if lowest == nil || !lowest.Equal(dec("10.00")) {
		t.Fatalf("unexpected lowest price %v", lowest)
	}

	inStock, err := env.svc.IsInStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("IsInStock: %v", err)
	}
	if !inStock {
		t.Fatal("expected product to be in stock")
	}

	low, high, err := env.svc.PriceRange(context.Background(), productID)
	if err != nil {
		t.Fatalf("PriceRange: %v", err)
	}
	if low == nil || high == nil || !low.Equal(dec("10.00")) || !high.Equal(dec("25.00")) {
		t.Fatalf("unexpected range %v..%v", low, high)
	}
}

func TestDerivedQueries_NoListings(t *testing.T) {
	env := newTestEnv(t, nil)
	productID := uuid.New()

	lowest, err := env.svc.LowestActivePrice(context.Background(), productID)
	if err != nil {
		t.Fatalf("LowestActivePrice: %v", err)
	}
	if lowest != nil {
		t.Fatalf("expected nil price, got %v", lowest)
	}

	inStock, err := env.svc.IsInStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("IsInStock: %v", err)
	}
	if inStock {
		t.Fatal("expected out of stock when nothing is listed")
	}
}

func TestGetHistory_NoListing(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.svc.GetHistory(context.Background(), uuid.New(), uuid.New(), 30)
	if err == nil {
		t.Fatal("expected not found")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
