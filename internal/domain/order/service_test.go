package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quickcommerce/storefront/internal/config"
	"github.com/quickcommerce/storefront/internal/domain/cart"
	"github.com/quickcommerce/storefront/internal/domain/product"
	"github.com/quickcommerce/storefront/internal/domain/user"
	"github.com/quickcommerce/storefront/internal/pkg/apperror"
	"github.com/quickcommerce/storefront/internal/pkg/logger"
	"github.com/quickcommerce/storefront/internal/pkg/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[uint]product.Product
}

func (c *fakeCatalog) Get(_ context.Context, id uint) (*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, apperror.NotFound("product %d not found", id)
	}
	return &p, nil
}

func (c *fakeCatalog) WithTx(*gorm.DB) product.Catalog { return c }

func (c *fakeCatalog) setPrice(id uint, price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	p.Price = price
	c.products[id] = p
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) PublishJSON(_ context.Context, _ string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, payload.(Event))
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]uint
}

func (m *memoryIdempotency) Reserve(_ context.Context, key string) (uint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.keys[key]; ok {
		return id, false, nil
	}
	m.keys[key] = 0
	return 0, true, nil
}

func (m *memoryIdempotency) Complete(_ context.Context, key string, orderID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = orderID
	return nil
}

func (m *memoryIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

const (
	widget uint = 10
	gadget uint = 11
	gizmo  uint = 12
)

type fixture struct {
	svc       *Service
	carts     *cart.Service
	catalog   *fakeCatalog
	publisher *recordingPublisher
	db        *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t,
		&cart.Cart{}, &cart.CartItem{},
		&user.Address{}, &user.PaymentMethod{},
		&Order{}, &OrderItem{}, &OrderStatusHistory{},
	)

	catalog := &fakeCatalog{products: map[uint]product.Product{
		widget: {ID: widget, Name: "Widget", Price: 1000, Images: []product.ProductImage{{URL: "https://cdn.example/widget.png", IsPrimary: true}}},
		gadget: {ID: gadget, Name: "Gadget", Price: 500},
		gizmo:  {ID: gizmo, Name: "Gizmo", Price: 150},
	}}
	log := logger.Discard()
	carts := cart.NewService(db, catalog, log)
	publisher := &recordingPublisher{}

	cfg := &config.Config{Checkout: config.CheckoutConfig{
		TaxRate:      decimal.RequireFromString("0.10"),
		ShippingCost: 599,
		Currency:     "USD",
	}}

	svc := NewService(db, cfg, Dependencies{
		Carts:          carts,
		Catalog:        catalog,
		Addresses:      user.NewAddressService(),
		PaymentMethods: user.NewPaymentMethodService(),
		Events:         publisher,
		Idempotency:    &memoryIdempotency{keys: map[string]uint{}},
		Logger:         log,
	})

	return &fixture{svc: svc, carts: carts, catalog: catalog, publisher: publisher, db: db}
}

func (f *fixture) fillCart(t *testing.T, userID uint, lines map[uint]int) {
	t.Helper()
	for productID, qty := range lines {
		_, err := f.carts.AddToCart(context.Background(), cart.UserOwner(userID), &cart.AddToCartRequest{ProductID: productID, Quantity: qty})
		require.NoError(t, err)
	}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func checkoutRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		ShippingAddress: &user.AddressInput{
			FirstName:    "Grace",
			LastName:     "Hopper",
			AddressLine1: "1 Navy Yard",
			City:         "Arlington",
			State:        "VA",
			PostalCode:   "22202",
			Country:      "US",
		},
		PaymentMethodID:      "pm_card_visa",
		Notes:                "gift",
		DeliveryInstructions: "leave at the door",
		PromoCode:            "WELCOME10",
	}
}

func (f *fixture) placeOrder(t *testing.T, userID uint) *Order {
	t.Helper()
	f.fillCart(t, userID, map[uint]int{widget: 2, gadget: 1})
	o, err := f.svc.CreateOrder(context.Background(), userID, checkoutRequest())
	require.NoError(t, err)
	return o
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const userID uint = 1

	f.fillCart(t, userID, map[uint]int{widget: 2, gadget: 1})

	o, err := f.svc.CreateOrder(ctx, userID, checkoutRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(o.OrderNumber, "QC-"))
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.Equal(t, int64(2500), o.Subtotal)
	assert.Equal(t, int64(250), o.Tax)
	assert.Equal(t, int64(599), o.ShippingCost)
	assert.Zero(t, o.Discount)
	assert.Equal(t, int64(3349), o.Total)
	assert.Equal(t, "USD", o.Currency)
	assert.Equal(t, "WELCOME10", o.PromoCode)
	assert.Equal(t, "leave at the door", o.DeliveryInstructions)
	assert.False(t, o.IsPaid)

	require.Len(t, o.Items, 2)
	byProduct := map[uint]OrderItem{}
	for _, item := range o.Items {
		byProduct[item.ProductID] = item
	}
	assert.Equal(t, "Widget", byProduct[widget].ProductName)
	assert.Equal(t, "https://cdn.example/widget.png", byProduct[widget].ProductImage)
	assert.Equal(t, 2, byProduct[widget].Quantity)
	assert.Equal(t, int64(1000), byProduct[widget].Price)

	require.NotNil(t, o.ShippingAddress)
	require.NotNil(t, o.BillingAddress)
	assert.Equal(t, o.ShippingAddressID, o.BillingAddressID, "billing defaults to shipping")
	require.NotNil(t, o.PaymentMethod)
	assert.Equal(t, "pm_card_visa", o.PaymentMethod.ProviderReference)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, OrderStatusPending, o.StatusHistory[0].Status)

	count, err := f.carts.ItemCount(ctx, cart.UserOwner(userID))
	require.NoError(t, err)
	assert.Zero(t, count, "cart is emptied by checkout")

	assert.Equal(t, []string{EventOrderCreated}, f.publisher.types())
}

func TestCreateOrderSeparateBilling(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 2, map[uint]int{gizmo: 1})

	req := checkoutRequest()
	useShipping := false
	req.UseShippingAddressForBilling = &useShipping
	req.BillingAddress = &user.AddressInput{
		FirstName: "Accounts", LastName: "Payable", AddressLine1: "500 Pine St",
		City: "Seattle", PostalCode: "98101", Country: "US",
	}

	o, err := f.svc.CreateOrder(context.Background(), 2, req)
	require.NoError(t, err)
	assert.NotEqual(t, o.ShippingAddressID, o.BillingAddressID)
	assert.Equal(t, "Seattle", o.BillingAddress.City)
	assert.Equal(t, "Arlington", o.ShippingAddress.City)
}

func TestCreateOrderFromEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), 3, checkoutRequest())
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Zero(t, f.count(t, &Order{}))
	assert.Zero(t, f.count(t, &user.Address{}))
}

func TestCreateOrderRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const userID uint = 4
	f.fillCart(t, userID, map[uint]int{widget: 1, gadget: 3})

	req := checkoutRequest()
	req.PaymentMethodID = "  "

	_, err := f.svc.CreateOrder(ctx, userID, req)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	assert.Zero(t, f.count(t, &Order{}))
	assert.Zero(t, f.count(t, &OrderItem{}))
	assert.Zero(t, f.count(t, &user.Address{}), "address snapshot is rolled back")

	count, err := f.carts.ItemCount(ctx, cart.UserOwner(userID))
	require.NoError(t, err)
	assert.Equal(t, 4, count, "cart is untouched")
	assert.Empty(t, f.publisher.types())
}

func TestCreateOrderWithUnavailableProduct(t *testing.T) {
	f := newFixture(t)
	const userID uint = 5
	f.fillCart(t, userID, map[uint]int{gizmo: 1})

	f.catalog.mu.Lock()
	delete(f.catalog.products, gizmo)
	f.catalog.mu.Unlock()

	_, err := f.svc.CreateOrder(context.Background(), userID, checkoutRequest())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Zero(t, f.count(t, &Order{}))
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const userID uint = 6
	f.fillCart(t, userID, map[uint]int{widget: 1})

	req := checkoutRequest()
	req.IdempotencyKey = "checkout-abc"

	first, err := f.svc.CreateOrder(ctx, userID, req)
	require.NoError(t, err)

	second, err := f.svc.CreateOrder(ctx, userID, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), f.count(t, &Order{}))
}

func TestGetOrderOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.placeOrder(t, 7)

	got, err := f.svc.GetOrderByID(ctx, 7, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)

	byNumber, err := f.svc.GetOrderByNumber(ctx, 7, strings.ToLower(o.OrderNumber))
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{name: "get by id as another user", call: func() error { _, err := f.svc.GetOrderByID(ctx, 8, o.ID); return err }, wantErr: apperror.ErrUnauthorized},
		{name: "get by number as another user", call: func() error { _, err := f.svc.GetOrderByNumber(ctx, 8, o.OrderNumber); return err }, wantErr: apperror.ErrUnauthorized},
		{name: "cancel as another user", call: func() error { _, err := f.svc.CancelOrder(ctx, 8, o.ID); return err }, wantErr: apperror.ErrUnauthorized},
		{name: "track as another user", call: func() error { _, err := f.svc.TrackOrder(ctx, 8, o.ID); return err }, wantErr: apperror.ErrUnauthorized},
		{name: "reorder as another user", call: func() error { _, err := f.svc.Reorder(ctx, 8, o.ID); return err }, wantErr: apperror.ErrUnauthorized},
		{name: "missing order", call: func() error { _, err := f.svc.GetOrderByID(ctx, 7, 9999); return err }, wantErr: apperror.ErrNotFound},
		{name: "missing order number", call: func() error { _, err := f.svc.GetOrderByNumber(ctx, 7, "QC-00000000"); return err }, wantErr: apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}

	still, err := f.svc.GetOrderByID(ctx, 7, o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, still.Status)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("pending order", func(t *testing.T) {
		o := f.placeOrder(t, 20)
		cancelled, err := f.svc.CancelOrder(ctx, 20, o.ID)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)

		_, err = f.svc.CancelOrder(ctx, 20, o.ID)
		assert.ErrorIs(t, err, apperror.ErrInvalidState)
	})

	t.Run("delivered order", func(t *testing.T) {
		o := f.placeOrder(t, 21)
		for _, next := range []OrderStatus{OrderStatusProcessing, OrderStatusInTransit, OrderStatusDelivered} {
			_, err := f.svc.UpdateOrderStatus(ctx, o.ID, next)
			require.NoError(t, err)
		}

		_, err := f.svc.CancelOrder(ctx, 21, o.ID)
		assert.ErrorIs(t, err, apperror.ErrInvalidState)

		got, err := f.svc.GetOrderByID(ctx, 21, o.ID)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusDelivered, got.Status)
		assert.Nil(t, got.CancelledAt)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.placeOrder(t, 30)

	processing, err := f.svc.UpdateOrderStatus(ctx, o.ID, OrderStatusProcessing)
	require.NoError(t, err)
	require.NotNil(t, processing.ProcessedAt)
	assert.Nil(t, processing.ShippedAt)

	inTransit, err := f.svc.UpdateOrderStatus(ctx, o.ID, OrderStatusInTransit)
	require.NoError(t, err)
	require.NotNil(t, inTransit.ShippedAt)
	assert.True(t, processing.ProcessedAt.Equal(*inTransit.ProcessedAt))

	_, err = f.svc.UpdateOrderStatus(ctx, o.ID, OrderStatusInTransit)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = f.svc.UpdateOrderStatus(ctx, o.ID, OrderStatusPending)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = f.svc.UpdateOrderStatus(ctx, 9999, OrderStatusProcessing)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	tracking, err := f.svc.TrackOrder(ctx, 30, o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusInTransit, tracking.Status)
	require.Len(t, tracking.History, 3)
	assert.Equal(t, OrderStatusProcessing, tracking.History[2].From)
	assert.Equal(t, OrderStatusInTransit, tracking.History[2].Status)

	assert.Equal(t, []string{EventOrderCreated, EventOrderStatusChanged, EventOrderStatusChanged}, f.publisher.types())
}

func TestAssignDeliveryPartner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("processing order goes in transit", func(t *testing.T) {
		o := f.placeOrder(t, 40)
		_, err := f.svc.UpdateOrderStatus(ctx, o.ID, OrderStatusProcessing)
		require.NoError(t, err)

		got, err := f.svc.AssignDeliveryPartner(ctx, o.ID, 501)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusInTransit, got.Status)
		require.NotNil(t, got.DeliveryPartnerID)
		assert.Equal(t, uint(501), *got.DeliveryPartnerID)
		assert.NotNil(t, got.ShippedAt)
	})

	t.Run("pending order keeps its status", func(t *testing.T) {
		o := f.placeOrder(t, 41)
		got, err := f.svc.AssignDeliveryPartner(ctx, o.ID, 502)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusPending, got.Status)
		assert.Equal(t, uint(502), *got.DeliveryPartnerID)
	})

	t.Run("finished orders record the partner only", func(t *testing.T) {
		delivered := f.placeOrder(t, 42)
		for _, next := range []OrderStatus{OrderStatusProcessing, OrderStatusInTransit, OrderStatusDelivered} {
			_, err := f.svc.UpdateOrderStatus(ctx, delivered.ID, next)
			require.NoError(t, err)
		}
		got, err := f.svc.AssignDeliveryPartner(ctx, delivered.ID, 503)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusDelivered, got.Status)
		require.NotNil(t, got.DeliveryPartnerID)
		assert.Equal(t, uint(503), *got.DeliveryPartnerID)

		cancelled := f.placeOrder(t, 43)
		_, err = f.svc.CancelOrder(ctx, 43, cancelled.ID)
		require.NoError(t, err)
		got, err = f.svc.AssignDeliveryPartner(ctx, cancelled.ID, 504)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusCancelled, got.Status)
		assert.Equal(t, uint(504), *got.DeliveryPartnerID)
		assert.Len(t, got.StatusHistory, 2, "no history entry without a status change")
	})

	t.Run("rejected cases", func(t *testing.T) {
		o := f.placeOrder(t, 44)
		_, err := f.svc.AssignDeliveryPartner(ctx, o.ID, 0)
		assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

		_, err = f.svc.AssignDeliveryPartner(ctx, 9999, 503)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestReorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const userID uint = 50
	o := f.placeOrder(t, userID)

	f.catalog.setPrice(widget, 1100)
	f.fillCart(t, userID, map[uint]int{gizmo: 5})

	resp, err := f.svc.Reorder(ctx, userID, o.ID)
	require.NoError(t, err)

	got := map[uint]cart.CartItemResponse{}
	for _, item := range resp.Items {
		got[item.ProductID] = item
	}
	require.Len(t, got, 2, "previous cart contents are replaced")
	assert.Equal(t, 2, got[widget].Quantity)
	assert.Equal(t, int64(1100), got[widget].Price, "reorder uses the current price")
	assert.Equal(t, 1, got[gadget].Quantity)
	assert.Equal(t, int64(500), got[gadget].Price)

	original, err := f.svc.GetOrderByID(ctx, userID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3349), original.Total, "historical order is unchanged")
}

func TestReorderRollsBackWhenProductIsGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const userID uint = 51
	o := f.placeOrder(t, userID)
	f.fillCart(t, userID, map[uint]int{gizmo: 2})

	f.catalog.mu.Lock()
	delete(f.catalog.products, gadget)
	f.catalog.mu.Unlock()

	_, err := f.svc.Reorder(ctx, userID, o.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	count, err := f.carts.ItemCount(ctx, cart.UserOwner(userID))
	require.NoError(t, err)
	assert.Equal(t, 2, count, "cart keeps its previous contents")
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.placeOrder(t, 60)
	f.placeOrder(t, 60)
	f.placeOrder(t, 60)
	f.placeOrder(t, 61)
	_, err := f.svc.CancelOrder(ctx, 60, first.ID)
	require.NoError(t, err)

	page, err := f.svc.GetUserOrders(ctx, 60, &OrderListRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	assert.False(t, page.Pagination.HasPrev)
	for _, o := range page.Orders {
		assert.Equal(t, uint(60), o.UserID)
		assert.NotEmpty(t, o.Items)
	}

	cancelled, err := f.svc.GetUserOrders(ctx, 60, &OrderListRequest{Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, cancelled.Orders, 1)
	assert.Equal(t, first.ID, cancelled.Orders[0].ID)

	all, err := f.svc.GetOrders(ctx, &OrderListRequest{Status: string(OrderStatusPending), Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Pagination.Total)

	_, err = f.svc.GetOrders(ctx, &OrderListRequest{Status: "shipped"})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestCheckoutAndReorderWithDatabaseCatalog(t *testing.T) {
	db := testdb.Open(t,
		&product.Product{}, &product.ProductImage{},
		&cart.Cart{}, &cart.CartItem{},
		&user.Address{}, &user.PaymentMethod{},
		&Order{}, &OrderItem{}, &OrderStatusHistory{},
	)
	bread := product.Product{SKU: "BREAD-1", Name: "Sourdough", Slug: "sourdough", Price: 450, IsActive: true,
		Images: []product.ProductImage{{URL: "https://cdn.example/bread.jpg", IsPrimary: true}}}
	require.NoError(t, db.Create(&bread).Error)

	catalog := product.NewCatalog(db)
	log := logger.Discard()
	carts := cart.NewService(db, catalog, log)
	svc := NewService(db, &config.Config{Checkout: config.CheckoutConfig{
		TaxRate:      decimal.RequireFromString("0.10"),
		ShippingCost: 599,
		Currency:     "USD",
	}}, Dependencies{
		Carts:          carts,
		Catalog:        catalog,
		Addresses:      user.NewAddressService(),
		PaymentMethods: user.NewPaymentMethodService(),
		Logger:         log,
	})

	// One pooled connection: any lookup outside the transaction would block
	// until the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	const userID uint = 70

	_, err := carts.AddToCart(ctx, cart.UserOwner(userID), &cart.AddToCartRequest{ProductID: bread.ID, Quantity: 2})
	require.NoError(t, err)

	o, err := svc.CreateOrder(ctx, userID, checkoutRequest())
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Sourdough", o.Items[0].ProductName)
	assert.Equal(t, "https://cdn.example/bread.jpg", o.Items[0].ProductImage)
	assert.Equal(t, int64(900+90+599), o.Total)

	require.NoError(t, db.Model(&bread).Update("price", 500).Error)

	resp, err := svc.Reorder(ctx, userID, o.ID)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Sourdough", resp.Items[0].ProductName)
	assert.Equal(t, int64(500), resp.Items[0].Price)
	assert.Equal(t, 2, resp.Items[0].Quantity)
}

func TestCreateOrderSurvivesFailedReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const userID uint = 71

	failReads := false
	err := f.db.Callback().Query().Before("gorm:query").Register("test:fail_order_reads", func(tx *gorm.DB) {
		if failReads && tx.Statement.Table == "orders" {
			_ = tx.AddError(errors.New("connection reset by peer"))
		}
	})
	require.NoError(t, err)

	f.fillCart(t, userID, map[uint]int{widget: 2, gadget: 1})
	req := checkoutRequest()
	req.IdempotencyKey = "checkout-71"

	failReads = true
	o, err := f.svc.CreateOrder(ctx, userID, req)
	failReads = false
	require.NoError(t, err, "the order is committed even if it cannot be read back")
	assert.NotZero(t, o.ID)
	assert.Equal(t, int64(3349), o.Total)
	require.NotNil(t, o.ShippingAddress)
	assert.Equal(t, "Arlington", o.ShippingAddress.City)

	again, err := f.svc.CreateOrder(ctx, userID, req)
	require.NoError(t, err)
	assert.Equal(t, o.ID, again.ID)
	assert.Equal(t, int64(1), f.count(t, &Order{}))
}
