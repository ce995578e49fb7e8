// Package archive writes daily sales reports as CSV to R2.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/timeutil"
)

// ObjectPutter is the part of the S3 client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Archiver struct {
	client ObjectPutter
	bucket string
}

func NewArchiver(client ObjectPutter, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// Result says where a report went.
type Result struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	SaleCount int    `json:"sale_count"`
	Bytes     int    `json:"bytes"`
}

// ObjectKey is reports/<shop>/sales/<YYYY-MM-DD>.csv
func ObjectKey(shopID string, day time.Time) string {
	return fmt.Sprintf("reports/%s/sales/%s.csv", shopID, timeutil.DayKey(day))
}

var header = []string{
	"invoice_number", "created_at", "customer_id", "item_id", "batch_id",
	"quantity", "unit_selling_price", "unit_cost", "line_amount",
	"sale_total", "cash", "upi", "credit", "profit",
}

// WriteSalesCSV writes one row per sale line. Sale-level columns repeat on
// every line of the sale.
func WriteSalesCSV(buf *bytes.Buffer, sales []*models.Sale) error {
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, s := range sales {
		for _, l := range s.Lines {
			row := []string{
				s.InvoiceNumber,
				s.CreatedAt.In(timeutil.IST).Format(timeutil.DateTimeLayout),
				s.CustomerID,
				l.ItemID,
				l.BatchID,
				strconv.Itoa(l.Quantity),
				l.UnitSellingPrice.String(),
				l.UnitCost.String(),
				l.Amount().String(),
				s.TotalAmount.String(),
				s.Payment.Cash.String(),
				s.Payment.UPI.String(),
				s.Payment.Credit.String(),
				s.Profit.String(),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// ArchiveDay uploads the given day's sales of a shop.
func (a *Archiver) ArchiveDay(ctx context.Context, shopID string, day time.Time, sales []*models.Sale) (*Result, error) {
	var buf bytes.Buffer
	if err := WriteSalesCSV(&buf, sales); err != nil {
		return nil, fmt.Errorf("failed to build csv: %w", err)
	}

	key := ObjectKey(shopID, day)
	size := buf.Len()
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return &Result{Bucket: a.bucket, Key: key, SaleCount: len(sales), Bytes: size}, nil
}
