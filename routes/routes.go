package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/skewcube/skewcube-backend-go/handlers"
	customMiddleware "github.com/skewcube/skewcube-backend-go/middleware"
)

// Handlers bundles everything SetupRoutes wires onto the router.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Category  *handlers.CategoryHandler
	Product   *handlers.ProductHandler
	Cart      *handlers.CartHandler
	Review    *handlers.ReviewHandler
	Order     *handlers.OrderHandler
	Dashboard *handlers.DashboardHandler
	Search    *handlers.SearchHandler
}

func SetupRoutes(e *echo.Echo, db *mongo.Database, h Handlers) {
	// public
	e.POST("/signup", h.Auth.Signup)
	e.POST("/login", h.Auth.Login)
	e.POST("/logout", h.Auth.Logout)

	e.GET("/allcategories", h.Category.List)
	e.GET("/products", h.Product.List)
	e.GET("/products/category", h.Product.ListByCategory)
	e.GET("/products/randomgroups", h.Product.RandomGroups)
	e.GET("/productsbyid/:id", h.Product.GetByID)
	e.GET("/search/:word", h.Search.Handle)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// authenticated
	auth := e.Group("", customMiddleware.Auth(db))

	auth.GET("/user/view", h.Auth.ViewProfile)
	auth.PUT("/user/edit", h.Auth.EditProfile)

	auth.POST("/cart", h.Cart.AddToCart)
	auth.GET("/cartproduct", h.Cart.GetCart)
	auth.PUT("/cart/updatequantity/:productId/:action", h.Cart.UpdateQuantity)
	auth.DELETE("/cart/:id", h.Cart.RemoveFromCart)
	auth.POST("/wishlist/:id", h.Cart.AddToWishlist)
	auth.GET("/wishlistproduct", h.Cart.GetWishlist)
	auth.DELETE("/wishlist/movetocart/:id", h.Cart.MoveToCart)
	auth.DELETE("/wishlist/:id", h.Cart.RemoveFromWishlist)

	auth.POST("/reviews/:productId", h.Review.Add)
	auth.PUT("/editreviews/:reviewId", h.Review.Edit)
	auth.DELETE("/deletereviews/:reviewId", h.Review.Delete)

	auth.POST("/order", h.Order.Place)
	auth.GET("/user/orders", h.Order.ListMine)
	auth.PATCH("/ordercancel/:orderId", h.Order.Cancel)

	// admin-only
	admin := e.Group("", customMiddleware.Auth(db), customMiddleware.AdminOnly)

	admin.POST("/addcategory", h.Category.Create)
	admin.DELETE("/deletecategory/:id", h.Category.Delete)

	admin.POST("/addproduct", h.Product.Create)
	admin.DELETE("/deleteproduct/:id", h.Product.Delete)
	admin.PATCH("/editproduct/:id", h.Product.Update)

	admin.GET("/adminorderlist", h.Order.ListAdmin)
	admin.PUT("/order/:orderId/status/:orderStatus", h.Order.UpdateStatus)
	admin.DELETE("/orderdelete/:orderId", h.Order.Delete)

	admin.GET("/dashboard", h.Dashboard.Summary)
}
