package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ecommerce_backend/internal/authz"
	"github.com/Skotchmaster/ecommerce_backend/internal/logging"
	"github.com/Skotchmaster/ecommerce_backend/internal/mykafka"
	"github.com/Skotchmaster/ecommerce_backend/internal/service/order"
	"github.com/Skotchmaster/ecommerce_backend/internal/service/token"
	"github.com/Skotchmaster/ecommerce_backend/internal/util"
)

type OrderHandler struct {
	Svc      *order.Service
	Producer *mykafka.Producer
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	userID, ok := token.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req struct {
		Items []order.Line `json:"items"`
		Notes string       `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	placed, err := h.Svc.PlaceOrder(ctx, userID, req.Items, req.Notes)
	if err != nil {
		var stockErr *order.InsufficientStockError
		var notFoundErr *order.ProductNotFoundError
		switch {
		case errors.Is(err, order.ErrValidation):
			l.Warn("create_order_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, order.ErrCustomerNotFound):
			l.Warn("create_order_failed", "status", 403, "error", err)
			return echo.NewHTTPError(http.StatusForbidden, "no customer profile")
		case errors.As(err, &notFoundErr):
			l.Warn("create_order_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.As(err, &stockErr):
			l.Warn("create_order_failed", "status", 409, "error", err)
			return echo.NewHTTPError(http.StatusConflict, echo.Map{
				"error":      "insufficient stock",
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			})
		case errors.Is(err, order.ErrConflict):
			l.Warn("create_order_failed", "status", 409, "error", err)
			return echo.NewHTTPError(http.StatusConflict, "order conflicts with concurrent updates, retry")
		default:
			l.Error("create_order_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create order")
		}
	}

	publish(c, h.Producer, "order_events", placed.ID, map[string]any{
		"type":    "order_created",
		"orderID": placed.ID,
		"userID":  userID,
		"total":   placed.TotalAmount,
	})

	l.Info("create_order_success", "order_id", placed.ID, "total", placed.TotalAmount)
	return c.JSON(http.StatusCreated, placed)
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	userID, ok := token.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	role, _ := token.RoleOf(c)

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.ListOrders(ctx, userID, authz.SeesAllOrders(role), offset, limit)
	if err != nil {
		if errors.Is(err, order.ErrCustomerNotFound) {
			return echo.NewHTTPError(http.StatusForbidden, "no customer profile")
		}
		l.Error("list_orders_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := token.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	role, _ := token.RoleOf(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	found, err := h.Svc.GetOrder(ctx, uint(id), userID, authz.SeesAllOrders(role))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrCustomerNotFound):
			return echo.NewHTTPError(http.StatusForbidden, "no customer profile")
		default:
			logging.FromContext(ctx).Error("get_order_failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot get order")
		}
	}
	return c.JSON(http.StatusOK, found)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	updated, err := h.Svc.UpdateStatus(ctx, uint(id), req.Status)
	if err != nil {
		var transitionErr *order.InvalidTransitionError
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrValidation):
			l.Warn("update_status_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.As(err, &transitionErr):
			l.Warn("update_status_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			l.Error("update_status_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update order")
		}
	}

	publish(c, h.Producer, "order_events", updated.ID, map[string]any{
		"type":    "order_status_changed",
		"orderID": updated.ID,
		"status":  updated.Status,
	})

	l.Info("update_status_success", "order_id", updated.ID, "new_status", updated.Status)
	return c.JSON(http.StatusOK, updated)
}
