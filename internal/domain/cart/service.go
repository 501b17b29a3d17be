// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/quickcommerce/storefront/internal/domain/product"
	"github.com/quickcommerce/storefront/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	store   *Store
	catalog product.Catalog
	logger  *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, catalog product.Catalog, logger *logrus.Logger) *Service {
	return &Service{
		store:   NewStore(db),
		catalog: catalog,
		logger:  logger,
	}
}

// WithTx returns a service whose reads, writes and catalog lookups join tx
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{
		store:   s.store.WithTx(tx),
		catalog: s.catalog.WithTx(tx),
		logger:  s.logger,
	}
}

// CartItemResponse represents a cart item with product details
type CartItemResponse struct {
	ID           uint      `json:"id"`
	ProductID    uint      `json:"productId"`
	ProductName  string    `json:"productName"`
	ProductImage string    `json:"productImage,omitempty"`
	Quantity     int       `json:"quantity"`
	Price        int64     `json:"price"`
	Subtotal     int64     `json:"subtotal"`
	AddedAt      time.Time `json:"addedAt"`
}

// CartResponse represents a shopping cart with items and summary
type CartResponse struct {
	ID        uint               `json:"id,omitempty"`
	UserID    *uint              `json:"userId,omitempty"`
	Items     []CartItemResponse `json:"items"`
	Total     int64              `json:"total"`
	ItemCount int                `json:"itemCount"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// GetCart returns the owner's cart, creating an empty one on first access
func (s *Service) GetCart(ctx context.Context, owner Owner) (*CartResponse, error) {
	cart, created, err := s.store.Resolve(ctx, owner)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.WithFields(logrus.Fields{"cart_id": cart.ID, "owner": owner.String()}).Info("cart created")
	}
	if !cart.Persisted() {
		return s.buildResponse(ctx, cart), nil
	}
	return s.view(ctx, s.store, cart.ID)
}

// ItemCount returns the total quantity in the owner's cart
func (s *Service) ItemCount(ctx context.Context, owner Owner) (int, error) {
	if owner.Kind() == OwnerNone {
		return 0, nil
	}
	return s.store.CountItems(ctx, owner)
}

// AddToCart adds quantity of a product. An existing line is incremented and
// keeps the price it was first added at.
func (s *Service) AddToCart(ctx context.Context, owner Owner, req *AddToCartRequest) (*CartResponse, error) {
	if req.Quantity < 1 {
		return nil, apperror.InvalidArgument("quantity must be at least 1")
	}
	if owner.Kind() == OwnerNone {
		return nil, apperror.InvalidArgument("cart owner required")
	}

	prod, err := s.catalog.Get(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, owner, func(store *Store, cart *Cart) error {
		existing, err := store.FindItemByProduct(ctx, cart.ID, req.ProductID)
		switch {
		case err == nil:
			return store.IncrementItem(ctx, existing.ID, req.Quantity)
		case errors.Is(err, apperror.ErrNotFound):
			return store.InsertItem(ctx, &CartItem{
				CartID:    cart.ID,
				ProductID: req.ProductID,
				Quantity:  req.Quantity,
				Price:     prod.Price,
			})
		default:
			return err
		}
	})
}

// UpdateCartItem sets the quantity of an item in the owner's cart
func (s *Service) UpdateCartItem(ctx context.Context, owner Owner, itemID uint, req *UpdateCartItemRequest) (*CartResponse, error) {
	if req.Quantity < 1 {
		return nil, apperror.InvalidArgument("quantity must be at least 1")
	}
	if owner.Kind() == OwnerNone {
		return nil, apperror.NotFound("cart item %d not found", itemID)
	}

	return s.mutate(ctx, owner, func(store *Store, cart *Cart) error {
		item, err := store.FindItem(ctx, cart.ID, itemID)
		if err != nil {
			return err
		}
		return store.SetItemQuantity(ctx, item.ID, req.Quantity)
	})
}

// RemoveFromCart deletes an item from the owner's cart
func (s *Service) RemoveFromCart(ctx context.Context, owner Owner, itemID uint) (*CartResponse, error) {
	if owner.Kind() == OwnerNone {
		return nil, apperror.NotFound("cart item %d not found", itemID)
	}

	return s.mutate(ctx, owner, func(store *Store, cart *Cart) error {
		item, err := store.FindItem(ctx, cart.ID, itemID)
		if err != nil {
			return err
		}
		return store.DeleteItem(ctx, item.ID)
	})
}

// ClearCart removes every item. Clearing a missing or empty cart succeeds.
func (s *Service) ClearCart(ctx context.Context, owner Owner) error {
	if owner.Kind() == OwnerNone {
		return nil
	}

	return s.store.Transaction(ctx, func(store *Store) error {
		cart, err := store.FindByOwner(ctx, owner)
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := store.Lock(ctx, cart.ID); err != nil {
			return err
		}
		if err := store.DeleteItems(ctx, cart.ID); err != nil {
			return err
		}
		return store.Touch(ctx, cart.ID)
	})
}

// MergeCarts folds the guest cart for sessionToken into the user's cart and
// deletes it. Quantities of products already in the user's cart are summed
// at the user's price; other lines move over with the guest price. Without a
// guest cart, or with an empty one, the user's cart is returned unchanged.
func (s *Service) MergeCarts(ctx context.Context, userID uint, sessionToken string) (*CartResponse, error) {
	userOwner := UserOwner(userID)
	if userOwner.Kind() == OwnerNone {
		return nil, apperror.InvalidArgument("user id required")
	}
	if sessionToken == "" {
		return s.GetCart(ctx, userOwner)
	}

	var moved, summed int
	var userCartID uint
	err := s.store.Transaction(ctx, func(store *Store) error {
		guest, err := store.FindByOwner(ctx, SessionOwner(sessionToken))
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := store.Lock(ctx, guest.ID); err != nil {
			return err
		}
		guest, err = store.Load(ctx, guest.ID)
		if err != nil {
			return err
		}
		if len(guest.Items) == 0 {
			return nil
		}

		userCart, _, err := store.Resolve(ctx, userOwner)
		if err != nil {
			return err
		}
		if err := store.Lock(ctx, userCart.ID); err != nil {
			return err
		}
		userCartID = userCart.ID

		for _, item := range guest.Items {
			existing, err := store.FindItemByProduct(ctx, userCart.ID, item.ProductID)
			switch {
			case err == nil:
				if err := store.IncrementItem(ctx, existing.ID, item.Quantity); err != nil {
					return err
				}
				summed++
			case errors.Is(err, apperror.ErrNotFound):
				if err := store.MoveItem(ctx, item.ID, userCart.ID); err != nil {
					return err
				}
				moved++
			default:
				return err
			}
		}

		if err := store.DeleteCart(ctx, guest.ID); err != nil {
			return err
		}
		return store.Touch(ctx, userCart.ID)
	})
	if err != nil {
		return nil, err
	}

	if userCartID != 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id":      userID,
			"cart_id":      userCartID,
			"items_moved":  moved,
			"items_summed": summed,
		}).Info("guest cart merged")
	}

	return s.GetCart(ctx, userOwner)
}

// Snapshot locks the owner's cart inside the caller's transaction and returns
// it with its items as stored. Use on a service bound with WithTx.
func (s *Service) Snapshot(ctx context.Context, owner Owner) (*Cart, error) {
	cart, _, err := s.store.Resolve(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !cart.Persisted() {
		return cart, nil
	}
	if err := s.store.Lock(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.store.Load(ctx, cart.ID)
}

// mutate resolves and locks the owner's cart and applies fn within one
// transaction, then returns the refreshed cart.
func (s *Service) mutate(ctx context.Context, owner Owner, fn func(store *Store, cart *Cart) error) (*CartResponse, error) {
	var cartID uint
	err := s.store.Transaction(ctx, func(store *Store) error {
		cart, created, err := store.Resolve(ctx, owner)
		if err != nil {
			return err
		}
		if created {
			s.logger.WithFields(logrus.Fields{"cart_id": cart.ID, "owner": owner.String()}).Info("cart created")
		}
		if err := store.Lock(ctx, cart.ID); err != nil {
			return err
		}
		if err := fn(store, cart); err != nil {
			return err
		}
		cartID = cart.ID
		return store.Touch(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, s.store, cartID)
}

func (s *Service) view(ctx context.Context, store *Store, cartID uint) (*CartResponse, error) {
	cart, err := store.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, cart), nil
}

// buildResponse decorates items with current product details. A product that
// has since left the catalog keeps its line with an empty name.
func (s *Service) buildResponse(ctx context.Context, cart *Cart) *CartResponse {
	items := make([]CartItemResponse, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Subtotal(),
			AddedAt:   item.CreatedAt,
		}
		prod, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			if !errors.Is(err, apperror.ErrNotFound) {
				s.logger.WithError(err).WithField("product_id", item.ProductID).Warn("failed to load product details")
			}
			continue
		}
		items[i].ProductName = prod.Name
		items[i].ProductImage = prod.ImageURL()
	}

	return &CartResponse{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     items,
		Total:     cart.Total(),
		ItemCount: cart.ItemCount(),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
}
