package stats

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/ecommerce_backend/internal/models"
)

type TopProduct struct {
	ProductID     uint    `json:"product_id"`
	Name          string  `json:"name"`
	TotalQuantity uint64  `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
}

type Statistics struct {
	TotalCustomers int64        `json:"total_customers"`
	TotalOrders    int64        `json:"total_orders"`
	TotalProducts  int64        `json:"total_products"`
	TopProducts    []TopProduct `json:"top_5_products"`
}

type Service struct {
	DB *gorm.DB
}

// Compute is a read only rollup over the catalog and order stores. Top
// products rank by the summed quantity across all order items, not by any
// single order's line.
func (s *Service) Compute(ctx context.Context) (*Statistics, error) {
	db := s.DB.WithContext(ctx)

	var result Statistics
	if err := db.Model(&models.Customer{}).Count(&result.TotalCustomers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Order{}).Count(&result.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).Count(&result.TotalProducts).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.OrderItem{}).
		Select("order_items.product_id AS product_id, products.name AS name, SUM(order_items.quantity) AS total_quantity, SUM(order_items.quantity * order_items.unit_price) AS total_revenue").
		Joins("JOIN products ON products.id = order_items.product_id").
		Group("order_items.product_id, products.name").
		Order("total_quantity DESC").
		Limit(5).
		Scan(&result.TopProducts).Error; err != nil {
		return nil, err
	}

	return &result, nil
}
