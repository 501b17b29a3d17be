// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/quickcommerce/storefront/internal/config"
	"github.com/quickcommerce/storefront/internal/interfaces/http/handlers"
	"github.com/quickcommerce/storefront/internal/interfaces/http/middleware"
	"github.com/quickcommerce/storefront/internal/pkg/auth"
)

// Handlers groups the API handlers mounted under /api/v1
type Handlers struct {
	Cart    *handlers.CartHandler
	Order   *handlers.OrderHandler
	Invoice *handlers.InvoiceHandler
}

// SetupRoutes mounts every API route on rg
func SetupRoutes(rg *gin.RouterGroup, cfg *config.Config, jwtManager *auth.JWTManager, h Handlers) {
	SetupCartRoutes(rg, cfg, jwtManager, h.Cart)
	SetupOrderRoutes(rg, jwtManager, h.Order, h.Invoice)
}

// SetupCartRoutes sets up cart routes. Guests are identified by the session
// cookie, signed-in users by their token.
func SetupCartRoutes(rg *gin.RouterGroup, cfg *config.Config, jwtManager *auth.JWTManager, cartHandler *handlers.CartHandler) {
	cart := rg.Group("/cart")
	cart.Use(middleware.Session(cfg))
	{
		shopper := cart.Group("")
		shopper.Use(middleware.OptionalAuthMiddleware(jwtManager))
		{
			shopper.GET("", cartHandler.GetCart)
			shopper.GET("/count", cartHandler.GetCartCount)
			shopper.POST("/items", cartHandler.AddToCart)
			shopper.PUT("/items/:itemId", cartHandler.UpdateCartItem)
			shopper.DELETE("/items/:itemId", cartHandler.RemoveFromCart)
			shopper.DELETE("", cartHandler.ClearCart)
		}

		cart.POST("/merge", middleware.AuthMiddleware(jwtManager), cartHandler.MergeCart)
	}
}

// SetupOrderRoutes sets up order routes
func SetupOrderRoutes(rg *gin.RouterGroup, jwtManager *auth.JWTManager, orderHandler *handlers.OrderHandler, invoiceHandler *handlers.InvoiceHandler) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(jwtManager))
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("", orderHandler.GetOrders)
		orders.GET("/number/:orderNumber", orderHandler.GetOrderByNumber)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.POST("/:id/cancel", orderHandler.CancelOrder)
		orders.GET("/:id/tracking", orderHandler.TrackOrder)
		orders.POST("/:id/reorder", orderHandler.Reorder)
		orders.GET("/:id/invoice", invoiceHandler.GenerateInvoice)

		admin := orders.Group("/admin")
		admin.Use(middleware.AdminMiddleware())
		{
			admin.GET("", orderHandler.AdminGetOrders)
			admin.PUT("/:id/status", orderHandler.AdminUpdateOrderStatus)
			admin.PUT("/:id/delivery-partner", orderHandler.AdminAssignDeliveryPartner)
		}
	}
}
