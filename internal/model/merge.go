package model

import (
	"fmt"
	"time"
)

// MatchStrategy names the scanner strategy that located a buyer name on a
// shipping page.
type MatchStrategy string

const (
	StrategyAnchor   MatchStrategy = "anchor"   // "SHIP TO" header block
	StrategyFullText MatchStrategy = "fulltext" // whole-page substring scan
	StrategyOCR      MatchStrategy = "ocr"      // rasterize + tesseract
)

// QCStatus is the per-buyer outcome shown in the QC report.
type QCStatus string

const (
	QCMatched QCStatus = "MATCHED"
	QCMissing QCStatus = "MISSING"
)

// MatchResult records one shipping page claiming one buyer's label pages.
// Created once per successful match; never revised.
type MatchResult struct {
	Buyer        string        `json:"buyer"`
	ShippingPage int           `json:"shipping_page"` // 1-based
	LabelPages   []int         `json:"label_pages"`   // 0-based indices into the labels document
	Score        int           `json:"score"`         // 0-100
	Strategy     MatchStrategy `json:"strategy"`
}

// QCEntry is one row of the QC report. Every buyer in the manufacturing
// index gets exactly one entry; MISSING rows are the ones a human must
// resolve before shipping.
type QCEntry struct {
	Buyer        string        `json:"buyer"`
	Status       QCStatus      `json:"status"`
	ShippingPage int           `json:"shipping_page,omitempty"` // 1-based, MATCHED only
	Score        int           `json:"score,omitempty"`
	Strategy     MatchStrategy `json:"strategy,omitempty"`
}

// StatusLabel renders the status column, e.g. "MATCHED (page 3)".
func (e QCEntry) StatusLabel() string {
	if e.Status == QCMatched {
		return fmt.Sprintf("%s (page %d)", QCMatched, e.ShippingPage)
	}
	return string(e.Status)
}

// MergeRun summarizes one merge invocation for the run history.
type MergeRun struct {
	ID            string    `json:"id"`
	SlipFile      string    `json:"slip_file"`
	ShippingFile  string    `json:"shipping_file"`
	ShippingPages int       `json:"shipping_pages"`
	LabelPages    int       `json:"label_pages"`
	Matched       int       `json:"matched"`
	Missing       int       `json:"missing"`
	Entries       []QCEntry `json:"entries"`
	Warnings      []string  `json:"warnings,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// FailedPush is a dead-lettered Airtable push, kept for retry after
// transient outages. Permanent failures stay queued past max_retries so a
// human can inspect the payload.
type FailedPush struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	Payload      []byte    `json:"payload"` // JSON-encoded Order
	Error        string    `json:"error"`
	ErrorType    string    `json:"error_type"` // "transient" or "permanent"
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	NextRetryAt  time.Time `json:"next_retry_at"`
	CreatedAt    time.Time `json:"created_at"`
	LastFailedAt time.Time `json:"last_failed_at"`
}
