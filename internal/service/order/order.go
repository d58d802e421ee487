package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/ecommerce_backend/internal/models"
)

var (
	ErrValidation       = errors.New("validation")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrConflict         = errors.New("conflict")
)

type ProductNotFoundError struct {
	ProductID uint
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID uint
	Requested uint
	Available uint
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

type Line struct {
	ProductID uint `json:"product_id"`
	Quantity  uint `json:"quantity"`
}

type Service struct {
	DB *gorm.DB
}

// Retries of the whole placement transaction on serialization failure.
const maxPlaceAttempts = 3

// PlaceOrder runs the order placement transaction for the customer owning
// userID: every line is checked against availability and stock under a row
// lock, items snapshot the current unit price, stock is decremented and the
// total accumulated. Any failure rolls the whole order back.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, lines []Line, notes string) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	for _, l := range lines {
		if l.Quantity == 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
	}

	var customer models.Customer
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxPlaceAttempts; attempt++ {
		order, err := s.placeOnce(ctx, customer.ID, lines, notes)
		if err != nil && isSerializationFailure(err) {
			lastErr = err
			continue
		}
		return order, err
	}
	return nil, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func (s *Service) placeOnce(ctx context.Context, customerID uint, lines []Line, notes string) (*models.Order, error) {
	var order models.Order

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order = models.Order{
			CustomerID:  customerID,
			Status:      models.OrderStatusNew,
			TotalAmount: 0,
			Notes:       notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var total float64
		for _, line := range lines {
			var p models.Product
			if err := lockForUpdate(tx).First(&p, line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &ProductNotFoundError{ProductID: line.ProductID}
				}
				return err
			}

			if !p.IsAvailable || p.StockQuantity < line.Quantity {
				available := p.StockQuantity
				if !p.IsAvailable {
					available = 0
				}
				return &InsufficientStockError{
					ProductID: p.ID,
					Requested: line.Quantity,
					Available: available,
				}
			}

			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: p.ID,
				Quantity:  line.Quantity,
				UnitPrice: p.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, item)

			p.StockQuantity -= line.Quantity
			if err := tx.Save(&p).Error; err != nil {
				return err
			}

			total += p.Price * float64(line.Quantity)
		}

		order.TotalAmount = total
		return tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("total_amount", total).Error
	})

	if txErr != nil {
		return nil, txErr
	}
	return &order, nil
}

// GetOrder loads an order with its items, scoped to the customer owning
// userID unless seesAll is set.
func (s *Service) GetOrder(ctx context.Context, id uint, userID uint, seesAll bool) (*models.Order, error) {
	q := s.DB.WithContext(ctx).Preload("Items")
	if !seesAll {
		var customer models.Customer
		if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCustomerNotFound
			}
			return nil, err
		}
		q = q.Where("customer_id = ?", customer.ID)
	}

	var order models.Order
	if err := q.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) ListOrders(ctx context.Context, userID uint, seesAll bool, offset, limit int) (int64, []models.Order, error) {
	q := s.DB.WithContext(ctx).Model(&models.Order{})
	if !seesAll {
		var customer models.Customer
		if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, nil, ErrCustomerNotFound
			}
			return 0, nil, err
		}
		q = q.Where("customer_id = ?", customer.ID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("order_date DESC").
		Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// Legal status transitions. Completed and Cancelled are terminal.
var transitions = map[string][]string{
	models.OrderStatusNew:        {models.OrderStatusProcessing, models.OrderStatusCompleted, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

func (s *Service) UpdateStatus(ctx context.Context, id uint, newStatus string) (*models.Order, error) {
	switch newStatus {
	case models.OrderStatusNew, models.OrderStatusProcessing,
		models.OrderStatusCompleted, models.OrderStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	var order models.Order
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if !transitionAllowed(order.Status, newStatus) {
			return &InvalidTransitionError{From: order.Status, To: newStatus}
		}

		order.Status = newStatus
		return tx.Save(&order).Error
	})

	if txErr != nil {
		return nil, txErr
	}
	return &order, nil
}

func transitionAllowed(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// lockForUpdate guards the read-check-then-decrement against lost updates.
// sqlite has no row locks and serializes writers on its own, so the clause
// only applies on postgres.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure and deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
