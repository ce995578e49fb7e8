package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"neodukaan-backend/internal/archive"
	"neodukaan-backend/internal/cache"
	"neodukaan-backend/internal/logger"
	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/reports"
	"neodukaan-backend/internal/store"
	"neodukaan-backend/internal/timeutil"
)

// ReportService loads snapshots from the store and hands them to the pure
// projections in package reports. Results are cached per shop until the
// shop's next write.
type ReportService struct {
	Store    store.Store
	Cache    *cache.Cache
	Archiver *archive.Archiver // nil when R2 is not configured
	TTL      time.Duration
	log      *logrus.Entry
	now      func() time.Time
}

func NewReportService(s store.Store, c *cache.Cache, archiver *archive.Archiver, ttl time.Duration) *ReportService {
	return &ReportService{
		Store:    s,
		Cache:    c,
		Archiver: archiver,
		TTL:      ttl,
		log:      logger.For("report_service"),
		now:      timeutil.Now,
	}
}

func (s *ReportService) SalesReport(ctx context.Context, shopID string, r reports.Range, customFrom, customTo string) (*reports.SalesSummary, error) {
	from, to, err := reports.Window(r, s.now(), customFrom, customTo)
	if err != nil {
		return nil, invalid("range", err.Error())
	}

	key := s.Cache.ReportKey(ctx, shopID, "sales", timeutil.DayKey(from), timeutil.DayKey(to))
	var summary reports.SalesSummary
	if s.Cache.GetJSON(ctx, key, &summary) {
		return &summary, nil
	}

	var sales []*models.Sale
	var items []*models.Item
	err = s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		if sales, err = tx.Sales().ListBetween(ctx, from, to); err != nil {
			return err
		}
		items, err = tx.Items().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	summary = reports.SummarizeSales(sales, items, from, to)
	s.Cache.SetJSON(ctx, key, summary, s.TTL)
	return &summary, nil
}

func (s *ReportService) Dashboard(ctx context.Context, shopID string) (*reports.DashboardSummary, error) {
	now := s.now()
	key := s.Cache.ReportKey(ctx, shopID, "dashboard", timeutil.DayKey(now))
	var summary reports.DashboardSummary
	if s.Cache.GetJSON(ctx, key, &summary) {
		return &summary, nil
	}

	from, to := reports.DashboardWindow(now)
	var sales []*models.Sale
	var items []*models.Item
	var customers []*models.Customer
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		if sales, err = tx.Sales().ListBetween(ctx, from, to); err != nil {
			return err
		}
		if items, err = tx.Items().List(ctx); err != nil {
			return err
		}
		customers, err = tx.Customers().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	summary = reports.Dashboard(sales, items, customers, now)
	s.Cache.SetJSON(ctx, key, summary, s.TTL)
	return &summary, nil
}

func (s *ReportService) Khata(ctx context.Context, shopID string) (*reports.KhataSummary, error) {
	var customers []*models.Customer
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		if customers, err = tx.Customers().List(ctx); err != nil {
			return err
		}
		for _, c := range customers {
			if c.TotalUdhaar <= 0 {
				continue
			}
			if c.Ledger, err = tx.Ledger().Entries(ctx, c.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := reports.KhataView(customers, s.now())
	return &summary, nil
}

// ArchiveDay uploads one IST day's sales as CSV to R2. An empty date means yesterday.
func (s *ReportService) ArchiveDay(ctx context.Context, shopID, date string) (*archive.Result, error) {
	if s.Archiver == nil {
		return nil, ErrArchiveDisabled
	}

	day := timeutil.StartOfDay(s.now()).AddDate(0, 0, -1)
	if date != "" {
		var err error
		if day, err = timeutil.ParseDate(date); err != nil {
			return nil, invalid("date", "must be YYYY-MM-DD")
		}
	}

	var sales []*models.Sale
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		sales, err = tx.Sales().ListBetween(ctx, day, timeutil.NextDay(day))
		return err
	})
	if err != nil {
		return nil, err
	}

	res, err := s.Archiver.ArchiveDay(ctx, shopID, day, sales)
	if err != nil {
		logger.LogError(s.log, "ArchiveDay", "upload failed", map[string]string{"shop_id": shopID, "date": timeutil.DayKey(day)}, err)
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"shop_id": shopID, "key": res.Key, "sales": res.SaleCount}).Info("sales archived")
	return res, nil
}
