package model

import "time"

// OrderLine is one line item parsed from an Amazon packing slip. One slip
// page can carry several customization blocks; each becomes its own line
// and, later, its own manufacturing label page.
type OrderLine struct {
	OrderID           string `json:"order_id"`
	OrderDate         string `json:"order_date"`
	BuyerName         string `json:"buyer_name"`
	Quantity          int    `json:"quantity"`
	BlanketColor      string `json:"blanket_color"`
	ThreadColor       string `json:"thread_color"`
	CustomizationName string `json:"customization_name"`
	Beanie            bool   `json:"beanie"`
	GiftBox           bool   `json:"gift_box"`
	GiftNote          bool   `json:"gift_note"`
	GiftMessage       string `json:"gift_message,omitempty"`
}

// Order groups the line items that share an Amazon order ID, in slip order.
type Order struct {
	OrderID   string      `json:"order_id"`
	OrderDate string      `json:"order_date"`
	BuyerName string      `json:"buyer_name"`
	Lines     []OrderLine `json:"lines"`
}

// GroupOrders buckets lines by order ID, preserving first-seen order of both
// the orders and the lines within each order.
func GroupOrders(lines []OrderLine) []Order {
	byID := make(map[string]int)
	orders := make([]Order, 0)
	for _, line := range lines {
		idx, ok := byID[line.OrderID]
		if !ok {
			idx = len(orders)
			byID[line.OrderID] = idx
			orders = append(orders, Order{
				OrderID:   line.OrderID,
				OrderDate: line.OrderDate,
				BuyerName: line.BuyerName,
			})
		}
		orders[idx].Lines = append(orders[idx].Lines, line)
	}
	return orders
}

// StoredOrderLine is an OrderLine as persisted by the local store.
type StoredOrderLine struct {
	ID         string    `json:"id"`
	SourceFile string    `json:"source_file"`
	CreatedAt  time.Time `json:"created_at"`
	OrderLine
}
