package airtable

import (
	"context"

	"github.com/rotisserie/eris"
)

// Order is one buyer's order as pushed to the base.
type Order struct {
	OrderID   string
	OrderDate string
	BuyerName string
	Lines     []LineItem
}

// LineItem is one blanket within an order.
type LineItem struct {
	BuyerName         string
	CustomizationName string
	Quantity          int
	BlanketColor      string
	ThreadColor       string
	Beanie            bool
	GiftBox           bool
	GiftNote          bool
	GiftMessage       string
}

// PushTables names the destination tables and sets the per-request batch
// size. A BatchSize of zero, or above the API cap, falls back to the cap.
type PushTables struct {
	Orders    string
	LineItems string
	BatchSize int
}

// PushResult holds the record IDs a push created.
type PushResult struct {
	OrderRecordID string
	LineRecordIDs []string
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}

func orderFields(o Order) map[string]any {
	return map[string]any{
		"Order ID":   o.OrderID,
		"Order Date": o.OrderDate,
		"Buyer Name": o.BuyerName,
		"Status":     "New",
	}
}

func lineItemFields(li LineItem, orderRecordID string) map[string]any {
	f := map[string]any{
		"Buyer Name":                   li.BuyerName,
		"Order ID":                     []string{orderRecordID},
		"Customization Name Placement": li.CustomizationName,
		"Quantity":                     li.Quantity,
		"Blanket Color":                li.BlanketColor,
		"Thread Color":                 li.ThreadColor,
		"Include Beanie":               yesNo(li.Beanie),
		"Gift Box":                     yesNo(li.GiftBox),
		"Gift Note":                    yesNo(li.GiftNote),
		"Status":                       "Pending",
	}
	if li.GiftMessage != "" {
		f["Gift Message"] = li.GiftMessage
	}
	return f
}

// PushOrder creates one record in the orders table, then one linked record
// per line item, batched to the configured size. Rate limiting and retries
// are handled by the Client.
func PushOrder(ctx context.Context, c Client, tables PushTables, o Order) (*PushResult, error) {
	created, err := c.CreateRecords(ctx, tables.Orders, []Record{{Fields: orderFields(o)}})
	if err != nil {
		return nil, eris.Wrapf(err, "airtable: create order record %s", o.OrderID)
	}
	if len(created) != 1 {
		return nil, eris.Errorf("airtable: expected 1 created order record, got %d", len(created))
	}

	result := &PushResult{OrderRecordID: created[0].ID}

	batch := tables.BatchSize
	if batch <= 0 || batch > maxBatchSize {
		batch = maxBatchSize
	}

	for start := 0; start < len(o.Lines); start += batch {
		end := min(start+batch, len(o.Lines))
		records := make([]Record, 0, end-start)
		for _, li := range o.Lines[start:end] {
			records = append(records, Record{Fields: lineItemFields(li, result.OrderRecordID)})
		}

		createdLines, err := c.CreateRecords(ctx, tables.LineItems, records)
		if err != nil {
			return nil, eris.Wrapf(err, "airtable: create line items for order %s", o.OrderID)
		}
		for _, r := range createdLines {
			result.LineRecordIDs = append(result.LineRecordIDs, r.ID)
		}
	}

	return result, nil
}
