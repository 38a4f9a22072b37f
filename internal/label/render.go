package label

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/unidoc/unipdf/v3/creator"
	"github.com/unidoc/unipdf/v3/model"

	mdl "github.com/loomhaven/order-cli/internal/model"
)

const pointsPerInch = 72.0

// Page geometry and line steps, in inches. The sheet is landscape with a
// generous left margin so the embroidery team can pin labels to blankets
// without covering text.
const (
	marginLeft = 0.4
	marginTop  = 0.4
)

// Renderer draws 6x4 manufacturing labels, one page per order line. Page
// order follows row order exactly; label page i always belongs to row i.
type Renderer struct {
	width  float64 // points
	height float64
}

// NewRenderer builds a renderer for the given sheet size in inches.
func NewRenderer(widthInches, heightInches float64) *Renderer {
	return &Renderer{
		width:  widthInches * pointsPerInch,
		height: heightInches * pointsPerInch,
	}
}

// Render produces the manufacturing labels document for the given order
// lines, one label page per line, in input order.
func (r *Renderer) Render(lines []mdl.OrderLine) ([]byte, error) {
	if len(lines) == 0 {
		return nil, eris.New("label: no order lines to render")
	}

	regular, err := model.NewStandard14Font(model.HelveticaName)
	if err != nil {
		return nil, eris.Wrap(err, "label: load font")
	}
	bold, err := model.NewStandard14Font(model.HelveticaBoldName)
	if err != nil {
		return nil, eris.Wrap(err, "label: load bold font")
	}

	c := creator.New()
	c.SetPageSize(creator.PageSize{r.width, r.height})

	for _, line := range lines {
		c.NewPage()
		if err := r.drawLabel(c, regular, bold, line); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "label: write pdf")
	}
	return buf.Bytes(), nil
}

// drawLabel lays out one label in four separated groups: order header,
// product colors, embroidery, packaging.
func (r *Renderer) drawLabel(c *creator.Creator, regular, bold *model.PdfFont, line mdl.OrderLine) error {
	left := marginLeft * pointsPerInch
	y := marginTop * pointsPerInch

	type textLine struct {
		text string
		font *model.PdfFont
		size float64
		step float64 // inches down to the next element
	}

	rows := []textLine{
		{fmt.Sprintf("Order ID: %s", line.OrderID), bold, 11, 0.22},
		{line.BuyerName, regular, 10, 0.22},
		{fmt.Sprintf("Order Date: %s", line.OrderDate), regular, 10, 0.22},
		{fmt.Sprintf("Quantity: %d", line.Quantity), regular, 10, 0.20},
		{"", nil, 0, 0.25}, // separator
		{fmt.Sprintf("Blanket: %s", line.BlanketColor), bold, 13, 0.35},
		{fmt.Sprintf("Thread: %s", line.ThreadColor), bold, 13, 0.20},
		{"", nil, 0, 0.25},
		{fmt.Sprintf("Name: %s", line.CustomizationName), bold, 15, 0.40},
		{fmt.Sprintf("Include Beanie: %s", yesNo(line.Beanie)), bold, 13, 0.20},
		{"", nil, 0, 0.25},
		{fmt.Sprintf("Gift Box: %s", yesNo(line.GiftBox)), bold, 13, 0.35},
		{fmt.Sprintf("Gift Note: %s", yesNo(line.GiftNote)), bold, 13, 0.20},
		{"", nil, 0, 0},
	}

	for _, row := range rows {
		if row.font == nil {
			if err := r.drawSeparator(c, y); err != nil {
				return err
			}
		} else {
			p := c.NewParagraph(row.text)
			p.SetFont(row.font)
			p.SetFontSize(row.size)
			p.SetPos(left, y)
			if err := c.Draw(p); err != nil {
				return eris.Wrap(err, "label: draw text")
			}
		}
		y += row.step * pointsPerInch
	}

	return nil
}

// drawSeparator draws the light horizontal rule between label groups.
func (r *Renderer) drawSeparator(c *creator.Creator, y float64) error {
	line := c.NewLine(marginLeft*pointsPerInch, y, r.width-marginLeft*pointsPerInch, y)
	line.SetColor(creator.ColorRGBFromHex("#d3d3d3"))
	line.SetLineWidth(0.5)
	if err := c.Draw(line); err != nil {
		return eris.Wrap(err, "label: draw separator")
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
