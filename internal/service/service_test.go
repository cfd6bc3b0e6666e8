package service

import (
	"context"
	"path/filepath"
	"sync"

	"storefront-api/internal/client"
	"storefront-api/internal/config"
	"storefront-api/internal/events"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

type mockPaymentClient struct {
	mock.Mock
}

func (m *mockPaymentClient) CreateCheckoutSession(ctx context.Context, req *client.CheckoutSessionRequest) (*client.CheckoutSession, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*client.CheckoutSession)
	return session, args.Error(1)
}

func (m *mockPaymentClient) ConstructEvent(payload []byte, signature string) (*client.PaymentEvent, error) {
	args := m.Called(payload, signature)
	event, _ := args.Get(0).(*client.PaymentEvent)
	return event, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(eventType string) []events.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.OrderEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []string
}

func (n *recordingNotifier) OrderPaid(_ context.Context, order *model.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order.ID)
	return nil
}

// ServiceSuite wires every service against a fresh sqlite file per test.
type ServiceSuite struct {
	suite.Suite

	ctx       context.Context
	db        *gorm.DB
	logger    *zap.Logger
	publisher *recordingPublisher
	notifier  *recordingNotifier

	productRepo      repository.ProductRepository
	orderRepo        repository.OrderRepository
	userRepo         repository.UserRepository
	webhookEventRepo repository.WebhookEventRepository

	orders  OrderService
	catalog CatalogService
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	db, err := client.InitDBClient(config.Database{
		Driver: "sqlite",
		DSN:    filepath.Join(s.T().TempDir(), "test.db"),
	})
	s.Require().NoError(err)
	s.db = db
	s.logger = zap.NewNop()
	s.publisher = &recordingPublisher{}
	s.notifier = &recordingNotifier{}

	s.productRepo = repository.NewProductRepository(db)
	s.orderRepo = repository.NewOrderRepository(db)
	s.userRepo = repository.NewUserRepository(db)
	s.webhookEventRepo = repository.NewWebhookEventRepository(db)

	cache := repository.NewNopProductCache()
	s.orders = NewOrderService(db, s.productRepo, s.orderRepo, cache, s.publisher, s.logger)
	s.catalog = NewCatalogService(
		s.productRepo,
		repository.NewCategoryRepository(db),
		repository.NewReviewRepository(db),
		cache,
		s.logger,
	)
}

func (s *ServiceSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *ServiceSuite) paymentService(paymentClient client.PaymentClient) PaymentService {
	return NewPaymentService(
		s.db,
		paymentClient,
		"http://shop.test/",
		"usd",
		s.orders,
		s.orderRepo,
		s.webhookEventRepo,
		s.publisher,
		s.notifier,
		s.logger,
	)
}

func (s *ServiceSuite) createUser(email string, role model.Role) *model.User {
	user := &model.User{Email: email, PasswordHash: "x", Role: role}
	s.Require().NoError(s.userRepo.Create(s.ctx, user))
	return user
}

func (s *ServiceSuite) createProduct(name, price string, stock int) *model.Product {
	product := &model.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	s.Require().NoError(s.productRepo.Create(s.ctx, product))
	return product
}

func (s *ServiceSuite) stockOf(productID string) int {
	product, err := s.productRepo.FindByID(s.ctx, productID)
	s.Require().NoError(err)
	return product.Stock
}

func (s *ServiceSuite) markPaid(orderID string) {
	err := s.db.WithContext(s.ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.orders.MarkPaid(s.ctx, tx, orderID)
		return err
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) eventRecorded(eventID string) bool {
	var count int64
	s.Require().NoError(s.db.Model(&model.WebhookEvent{}).Where("event_id = ?", eventID).Count(&count).Error)
	return count > 0
}

func (s *ServiceSuite) statusOf(orderID string) model.OrderStatus {
	order, err := s.orderRepo.FindByID(s.ctx, orderID)
	s.Require().NoError(err)
	return order.Status
}
