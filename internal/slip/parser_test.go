package slip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slipPage = `Shipping Address: Prime Standard
Ship To:
John Smith
123 Elm St
Springfield, IL 62704
Order ID: 111-2223334-5556667
Thank you for buying from Loomhaven on Amazon Marketplace.
Order Date: Mon, Oct 6, 2025
Quantity
1
Product Details
Handmade Baby Blanket
Customizations:
Color: Light Blue (#ADD8E6)
Thread Color: White
Name: EMMA ■
Personalized Baby Beanie: Yes
Gift Box & Gift Card: Yes
Gift Message:
Welcome to the world, little one!
Grand total: $64.99
`

const slipPageTwoItems = `Ship To:
Mary O'Brien
9 Oak Lane
Austin, TX 78701
Order ID: 222-3334445-6667778
Order Date: Tue, Oct 7, 2025
Quantity
2
Customizations:
Color: Pink (FFC0CB)
Thread Color: Hot Pink
Name: sofia
Quantity
1
Customizations:
Color: Gray
Thread Color: Silver
Name: Luca
Personalized Baby Beanie: No
Grand total: $89.98
`

func TestParsePage(t *testing.T) {
	p := NewParser(nil)
	lines := p.ParsePage(slipPage)

	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "111-2223334-5556667", line.OrderID)
	assert.Equal(t, "Mon, Oct 6, 2025", line.OrderDate)
	assert.Equal(t, "John Smith", line.BuyerName)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, "Light Blue", line.BlanketColor)
	assert.Equal(t, "White (Blanco)", line.ThreadColor)
	assert.Equal(t, "EMMA", line.CustomizationName)
	assert.True(t, line.Beanie)
	assert.True(t, line.GiftBox)
	assert.True(t, line.GiftNote)
	assert.Equal(t, "Welcome to the world, little one!", line.GiftMessage)
}

func TestParsePageMultipleBlocks(t *testing.T) {
	p := NewParser(nil)
	lines := p.ParsePage(slipPageTwoItems)

	require.Len(t, lines, 2)

	assert.Equal(t, "Mary O'Brien", lines[0].BuyerName)
	assert.Equal(t, "222-3334445-6667778", lines[0].OrderID)
	assert.Equal(t, "Pink", lines[0].BlanketColor)
	assert.Equal(t, "Hot Pink (Rosa Fucsia)", lines[0].ThreadColor)
	assert.Equal(t, "SOFIA", lines[0].CustomizationName)
	assert.False(t, lines[0].Beanie)
	assert.False(t, lines[0].GiftNote)

	assert.Equal(t, "Gray", lines[1].BlanketColor)
	assert.Equal(t, "Silver (Plateado)", lines[1].ThreadColor)
	assert.Equal(t, "LUCA", lines[1].CustomizationName)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.False(t, lines[1].Beanie, "Beanie: No must not read as yes")
}

func TestParsePageQuantityPerBlock(t *testing.T) {
	p := NewParser(nil)
	lines := p.ParsePage(slipPageTwoItems)

	require.Len(t, lines, 2)
	// First block starts after the page-level "Quantity\n2" run, so the
	// block itself carries the next quantity.
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestParsePageNoCustomizations(t *testing.T) {
	p := NewParser(nil)
	lines := p.ParsePage("Order Totals\nGrand total: $12.00\n")
	assert.Empty(t, lines)
}

func TestParsePageMissingFields(t *testing.T) {
	p := NewParser(nil)
	lines := p.ParsePage("Customizations:\nsomething unstructured\n")

	require.Len(t, lines, 1)
	assert.Equal(t, "", lines[0].OrderID)
	assert.Equal(t, "", lines[0].BuyerName)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "", lines[0].BlanketColor)
}

func TestParse(t *testing.T) {
	p := NewParser(nil)
	lines, err := p.Parse([]string{slipPage, "Order Totals page\n", slipPageTwoItems})

	require.NoError(t, err)
	assert.Len(t, lines, 3)
	assert.Equal(t, "John Smith", lines[0].BuyerName)
	assert.Equal(t, "Mary O'Brien", lines[1].BuyerName)
	assert.Equal(t, "Mary O'Brien", lines[2].BuyerName)
}

func TestParseEmptyDocument(t *testing.T) {
	p := NewParser(nil)
	_, err := p.Parse([]string{"nothing here", ""})
	assert.Error(t, err)
}

func TestExtractBuyerSkipsBlankLines(t *testing.T) {
	text := "Ship To:\n\n   \nJane Doe\n456 Main Rd\nOrder ID: 1-2-3\n"
	assert.Equal(t, "Jane Doe", extractBuyer(text))
}

func TestExtractBuyerNoAnchor(t *testing.T) {
	assert.Equal(t, "", extractBuyer("no address block at all"))
}

func TestSplitBlocks(t *testing.T) {
	text := "header\nCustomizations:\nfirst\nCustomizations:\nsecond\n"
	blocks := splitBlocks(text)

	require.Len(t, blocks, 2)
	assert.Equal(t, "Customizations:\nfirst\n", blocks[0])
	assert.Equal(t, "Customizations:\nsecond\n", blocks[1])
}

func TestSplitBlocksNone(t *testing.T) {
	assert.Empty(t, splitBlocks("no marker here"))
}
