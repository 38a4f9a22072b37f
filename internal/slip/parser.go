package slip

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/model"
)

// Amazon packing slips carry no structured data, so fields are pulled out
// of the page text by pattern. One page holds the order header plus one
// customization block per line item.
var (
	shipToRe    = regexp.MustCompile(`(?s)Ship To:\s*(.*?)Order ID:`)
	orderIDRe   = regexp.MustCompile(`Order ID:\s*([\d\-]+)`)
	orderDateRe = regexp.MustCompile(`Order Date:\s*([A-Za-z]{3,},?\s*[A-Za-z]+\s*\d{1,2},?\s*\d{4})`)
	quantityRe  = regexp.MustCompile(`Quantity\s*\n\s*(\d+)`)
	blanketRe   = regexp.MustCompile(`Color:\s*([^\n]+)`)
	threadRe    = regexp.MustCompile(`(?i)Thread Color:\s*([^\n]+)`)
	nameRe      = regexp.MustCompile(`Name:\s*([^\n]+)`)
	beanieRe    = regexp.MustCompile(`(?i)Personalized Baby Beanie:\s*Yes`)
	giftBoxRe   = regexp.MustCompile(`(?i)Gift Box\s*&\s*Gift Card:\s*Yes`)
	giftNoteRe  = regexp.MustCompile(`(?i)Gift Message:`)

	// The message body runs until the next slip section or end of block.
	giftMsgRe = regexp.MustCompile(`(?is)Gift Message:\s*(.*?)(?:\n(?:Grand total|Returning your item|Visit|Quantity|Order Totals)|\n?\z)`)
)

const blockMarker = "Customizations:"

// Parser turns extracted packing slip page text into order lines.
type Parser struct {
	colors *ColorTable
}

// NewParser builds a parser using the given thread color table.
func NewParser(colors *ColorTable) *Parser {
	if colors == nil {
		colors = DefaultColorTable()
	}
	return &Parser{colors: colors}
}

// Parse extracts order lines from the pages of a packing slip, one line
// per customization block, in page order. It fails only when the whole
// document yields nothing.
func (p *Parser) Parse(pages []string) ([]model.OrderLine, error) {
	var lines []model.OrderLine
	for i, text := range pages {
		pageLines := p.ParsePage(text)
		if len(pageLines) == 0 {
			zap.L().Debug("page has no customization blocks", zap.Int("page", i+1))
			continue
		}
		lines = append(lines, pageLines...)
	}
	if len(lines) == 0 {
		return nil, eris.New("slip: no orders detected in document")
	}
	return lines, nil
}

// ParsePage extracts the order lines of a single slip page.
func (p *Parser) ParsePage(text string) []model.OrderLine {
	buyer := extractBuyer(text)

	var orderID, orderDate string
	if m := orderIDRe.FindStringSubmatch(text); m != nil {
		orderID = strings.TrimSpace(m[1])
	}
	if m := orderDateRe.FindStringSubmatch(text); m != nil {
		orderDate = strings.TrimSpace(m[1])
	}

	var lines []model.OrderLine
	for _, block := range splitBlocks(text) {
		line := model.OrderLine{
			OrderID:   orderID,
			OrderDate: orderDate,
			BuyerName: buyer,
			Quantity:  1,
		}

		if m := quantityRe.FindStringSubmatch(block); m != nil {
			if q, err := strconv.Atoi(m[1]); err == nil {
				line.Quantity = q
			}
		}
		if m := blanketRe.FindStringSubmatch(block); m != nil {
			line.BlanketColor = Clean(m[1])
		}
		if m := threadRe.FindStringSubmatch(block); m != nil {
			line.ThreadColor = p.colors.Translate(Clean(m[1]))
		}
		if m := nameRe.FindStringSubmatch(block); m != nil {
			line.CustomizationName = strings.ToUpper(Clean(m[1]))
		}
		line.Beanie = beanieRe.MatchString(block)
		line.GiftBox = giftBoxRe.MatchString(block)
		line.GiftNote = giftNoteRe.MatchString(block)
		if line.GiftNote {
			if m := giftMsgRe.FindStringSubmatch(block); m != nil {
				line.GiftMessage = Clean(m[1])
			}
		}

		lines = append(lines, line)
	}
	return lines
}

// extractBuyer returns the first non-empty line of the Ship To block.
func extractBuyer(text string) string {
	m := shipToRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	for _, line := range strings.Split(m[1], "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// splitBlocks slices the page text into customization blocks, one per
// occurrence of the block marker, each running to the next marker.
func splitBlocks(text string) []string {
	var starts []int
	for from := 0; ; {
		i := strings.Index(text[from:], blockMarker)
		if i < 0 {
			break
		}
		starts = append(starts, from+i)
		from += i + len(blockMarker)
	}

	blocks := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		blocks = append(blocks, text[start:end])
	}
	return blocks
}
