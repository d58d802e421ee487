package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ecommerce_backend/internal/authz"
	"github.com/Skotchmaster/ecommerce_backend/internal/handlers"
	"github.com/Skotchmaster/ecommerce_backend/internal/service/token"
)

type Deps struct {
	AuthHandler       *handlers.AuthHandler
	CategoryHandler   *handlers.CategoryHandler
	ProductHandler    *handlers.ProductHandler
	OrderHandler      *handlers.OrderHandler
	StatisticsHandler *handlers.StatisticsHandler
	TokenService      *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)

	// catalog reads are public
	v1.GET("/categories", d.CategoryHandler.GetCategories)
	v1.GET("/categories/:id", d.CategoryHandler.GetCategory)
	v1.GET("/categories/:id/products", d.CategoryHandler.GetCategoryProducts)
	v1.GET("/products", d.ProductHandler.GetProducts)
	v1.GET("/products/search", d.ProductHandler.SearchProducts)
	v1.GET("/products/:id", d.ProductHandler.GetProduct)

	categories := v1.Group("/categories", d.TokenService.Require(authz.ActionManageCategories))
	categories.POST("", d.CategoryHandler.CreateCategory)
	categories.PATCH("/:id", d.CategoryHandler.PatchCategory)
	categories.DELETE("/:id", d.CategoryHandler.DeleteCategory)

	products := v1.Group("/products", d.TokenService.Require(authz.ActionManageProducts))
	products.POST("", d.ProductHandler.CreateProduct)
	products.PATCH("/:id", d.ProductHandler.PatchProduct)
	products.POST("/:id/restock", d.ProductHandler.Restock)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct)

	v1.POST("/orders", d.OrderHandler.CreateOrder, d.TokenService.Require(authz.ActionCreateOrder))
	v1.GET("/orders", d.OrderHandler.GetOrders, d.TokenService.Require(authz.ActionReadOrders))
	v1.GET("/orders/:id", d.OrderHandler.GetOrder, d.TokenService.Require(authz.ActionReadOrders))
	v1.PUT("/orders/:id/status", d.OrderHandler.UpdateStatus, d.TokenService.Require(authz.ActionUpdateOrderStatus))

	v1.GET("/statistics", d.StatisticsHandler.GetStatistics, d.TokenService.Require(authz.ActionViewStatistics))
}
