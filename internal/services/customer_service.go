package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"neodukaan-backend/internal/cache"
	"neodukaan-backend/internal/logger"
	"neodukaan-backend/internal/metrics"
	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/monitoring"
	"neodukaan-backend/internal/store"
)

// CustomerService owns customers and their khata.
type CustomerService struct {
	Store  store.Store
	Cache  *cache.Cache
	Events monitoring.Publisher
	log    *logrus.Entry
}

func NewCustomerService(s store.Store, c *cache.Cache, events monitoring.Publisher) *CustomerService {
	if events == nil {
		events = noopPublisher{}
	}
	return &CustomerService{Store: s, Cache: c, Events: events, log: logger.For("customer_service")}
}

// PaymentReceipt is the result of recording a khata payment.
type PaymentReceipt struct {
	Entry   *models.LedgerEntry `json:"entry"`
	Balance models.Money        `json:"balance"`
}

func (s *CustomerService) CreateCustomer(ctx context.Context, shopID string, req *models.CreateCustomerRequest) (*models.Customer, error) {
	phone := models.NormalizePhone(req.Phone)
	if len(phone) != 10 {
		return nil, invalid("phone", "must contain a 10 digit mobile number")
	}
	customer := &models.Customer{
		ID:    uuid.New().String(),
		Name:  strings.TrimSpace(req.Name),
		Phone: phone,
	}

	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		return tx.Customers().Create(ctx, customer)
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CustomerService) ListCustomers(ctx context.Context, shopID string) ([]*models.Customer, error) {
	var customers []*models.Customer
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		customers, err = tx.Customers().List(ctx)
		return err
	})
	return customers, err
}

func (s *CustomerService) SearchByPhone(ctx context.Context, shopID, phone string) (*models.Customer, error) {
	normalized := models.NormalizePhone(phone)
	if normalized == "" {
		return nil, invalid("phone", "phone number is required")
	}
	var customer *models.Customer
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		customer, err = tx.Customers().GetByPhone(ctx, normalized)
		return err
	})
	return customer, err
}

// GetCustomer returns the customer with the full ledger, oldest entry first.
func (s *CustomerService) GetCustomer(ctx context.Context, shopID, customerID string) (*models.Customer, error) {
	var customer *models.Customer
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		if customer, err = tx.Customers().Get(ctx, customerID); err != nil {
			return err
		}
		customer.Ledger, err = tx.Ledger().Entries(ctx, customerID)
		return err
	})
	return customer, err
}

func (s *CustomerService) Balance(ctx context.Context, shopID, customerID string) (*models.CustomerBalance, error) {
	customer, err := s.GetCustomer(ctx, shopID, customerID)
	if err != nil {
		return nil, err
	}
	balance := models.SummarizeLedger(customer)
	return &balance, nil
}

// ReceivePayment records money received against the customer's udhaar. A
// payment larger than the balance is rejected with *store.ExceedsBalanceError.
func (s *CustomerService) ReceivePayment(ctx context.Context, shopID, customerID string, req *models.ReceivePaymentRequest) (*PaymentReceipt, error) {
	if req.Amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Payment received"
	}

	var receipt PaymentReceipt
	err := writeTx(ctx, s.Store, shopID, func(tx store.Tx) error {
		entry, err := tx.Ledger().AppendCredit(ctx, customerID, req.Amount, description)
		if err != nil {
			return err
		}
		receipt.Entry = entry
		receipt.Balance, err = tx.Ledger().CurrentBalance(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.LedgerEntriesTotal.WithLabelValues(string(models.LedgerEntryTypeCredit)).Inc()
	s.Cache.InvalidateReports(ctx, shopID)
	s.Events.Publish(shopID, monitoring.EventKhataPayment, map[string]any{
		"customer_id": customerID,
		"amount":      req.Amount,
		"balance":     receipt.Balance,
	})
	s.log.WithFields(logrus.Fields{
		"shop_id":     shopID,
		"customer_id": customerID,
		"amount":      req.Amount.String(),
	}).Info("khata payment received")
	return &receipt, nil
}
