package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-api/internal/dto"
	"storefront-api/internal/events"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderService interface {
	CreateOrder(ctx context.Context, user *model.User, req *dto.CreateOrderRequest) (*model.Order, error)
	GetOrderByID(ctx context.Context, orderID string) (*model.Order, error)
	// GetOrderForUser is GetOrderByID restricted to the owner and admins.
	GetOrderForUser(ctx context.Context, orderID string, user *model.User) (*model.Order, error)
	GetMyOrders(ctx context.Context, user *model.User) ([]*model.Order, error)
	ListOrders(ctx context.Context) ([]*model.Order, error)
	// UpdateOrderStatus is the administrative path for shipping and delivery.
	// It never moves an order into paid; only MarkPaid does.
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error)
	// MarkPaid moves a pending order to paid inside tx. It reports false when
	// the order had already reached paid, leaving it untouched.
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) (bool, error)
}

type orderServiceImpl struct {
	db           *gorm.DB
	productRepo  repository.ProductRepository
	orderRepo    repository.OrderRepository
	productCache repository.ProductCache
	publisher    events.Publisher
	logger       *zap.Logger
}

func NewOrderService(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	productCache repository.ProductCache,
	publisher events.Publisher,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		db:           db,
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		productCache: productCache,
		publisher:    publisher,
		logger:       logger,
	}
}

func validateOrderRequest(req *dto.CreateOrderRequest) error {
	if req == nil || len(req.OrderItems) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	for _, item := range req.OrderItems {
		if item == nil || item.ProductID == "" {
			return fmt.Errorf("%w: order item is missing a product id", ErrInvalidInput)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for product %s must be positive", ErrInvalidInput, item.ProductID)
		}
	}
	return nil
}

func (s *orderServiceImpl) CreateOrder(ctx context.Context, user *model.User, req *dto.CreateOrderRequest) (*model.Order, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	order := &model.Order{
		UserID: user.ID,
		Status: model.OrderStatusPending,
		ShippingAddress: model.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
	}
	reserved := make([]string, 0, len(req.OrderItems))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		items := make([]model.OrderItem, 0, len(req.OrderItems))

		for _, item := range req.OrderItems {
			product, err := s.productRepo.ReserveStock(ctx, tx, item.ProductID, item.Quantity)
			if errors.Is(err, repository.ErrInsufficientStock) {
				return fmt.Errorf("%w: not enough stock for %s (requested %d, available %d)",
					ErrInsufficientStock, product.Name, item.Quantity, product.Stock)
			}
			if err != nil {
				return storeError(err, "reserve product %s", item.ProductID)
			}

			// price is taken from the catalog, never from the request
			items = append(items, model.OrderItem{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     product.Price,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			reserved = append(reserved, product.ID)
		}

		order.Items = items
		order.Total = total

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order in db: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.productCache.Invalidate(ctx, reserved...); err != nil {
		s.logger.Warn("invalidate product cache", zap.Strings("product_ids", reserved), zap.Error(err))
	}

	created, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, storeError(err, "reload order %s", order.ID)
	}

	if err := s.publisher.Publish(ctx, events.NewOrderEvent(events.TypeOrderCreated, created)); err != nil {
		s.logger.Error("publish order created event", zap.String("order_id", created.ID), zap.Error(err))
	}

	s.logger.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("user_id", user.ID),
		zap.String("total", created.Total.StringFixed(2)))

	return created, nil
}

func (s *orderServiceImpl) GetOrderByID(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "order %s", orderID)
	}
	return order, nil
}

func (s *orderServiceImpl) GetOrderForUser(ctx context.Context, orderID string, user *model.User) (*model.Order, error) {
	order, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(user) && user.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
	}
	return order, nil
}

func (s *orderServiceImpl) GetMyOrders(ctx context.Context, user *model.User) ([]*model.Order, error) {
	orders, err := s.orderRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get orders of user %s: %w", user.ID, err)
	}
	return orders, nil
}

func (s *orderServiceImpl) ListOrders(ctx context.Context) ([]*model.Order, error) {
	orders, err := s.orderRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *orderServiceImpl) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, status)
	}
	if status == model.OrderStatusPaid {
		return nil, fmt.Errorf("%w: orders become paid only through a completed payment", ErrInvalidStatusTransition)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindByIDTx(ctx, tx, orderID)
		if err != nil {
			return storeError(err, "order %s", orderID)
		}

		if !order.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, status)
		}
		if order.Status == status {
			return nil
		}

		if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, status); err != nil {
			return storeError(err, "update status of order %s", orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrderByID(ctx, orderID)
}

func (s *orderServiceImpl) MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) (bool, error) {
	order, err := s.orderRepo.FindByIDTx(ctx, tx, orderID)
	if err != nil {
		return false, storeError(err, "order %s", orderID)
	}

	if order.Status.Reached(model.OrderStatusPaid) {
		return false, nil
	}

	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, model.OrderStatusPaid); err != nil {
		return false, storeError(err, "mark order %s paid", orderID)
	}
	return true, nil
}
