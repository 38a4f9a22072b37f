package airtable

import (
	"context"

	"github.com/rotisserie/eris"
)

// Schema reports the outcome of EnsureSchema.
type Schema struct {
	OrdersTableID    string
	LineItemsTableID string
	CreatedOrders    bool
	CreatedLineItems bool
}

func yesNoChoices() []Choice {
	return []Choice{
		{Name: "YES", Color: "greenBright"},
		{Name: "NO", Color: "grayBright"},
	}
}

// OrdersTableSpec is the orders table definition: one record per buyer order,
// with the production status ladder.
func OrdersTableSpec(name string) TableSpec {
	return TableSpec{
		Name: name,
		Fields: []FieldSpec{
			{Name: "Order ID", Type: "singleLineText"},
			{Name: "Order Date", Type: "singleLineText"},
			{Name: "Buyer Name", Type: "singleLineText"},
			{Name: "Status", Type: "singleSelect", Options: &FieldOptions{Choices: []Choice{
				{Name: "New", Color: "blueBright"},
				{Name: "In Production", Color: "yellowBright"},
				{Name: "Quality Check", Color: "orangeBright"},
				{Name: "Packaging", Color: "purpleBright"},
				{Name: "Shipped", Color: "greenBright"},
				{Name: "Remake", Color: "redBright"},
			}}},
			{Name: "Notes", Type: "multilineText"},
			{Name: "Shipping Address", Type: "multilineText"},
		},
	}
}

// LineItemsTableSpec is the line items table definition: one record per
// blanket, linked to its parent order record.
func LineItemsTableSpec(name, ordersTableID string) TableSpec {
	zero := 0
	return TableSpec{
		Name: name,
		Fields: []FieldSpec{
			{Name: "Buyer Name", Type: "singleLineText"},
			{Name: "Order ID", Type: "multipleRecordLinks", Options: &FieldOptions{LinkedTableID: ordersTableID}},
			{Name: "Customization Name Placement", Type: "singleLineText"},
			{Name: "Quantity", Type: "number", Options: &FieldOptions{Precision: &zero}},
			{Name: "Blanket Color", Type: "singleLineText"},
			{Name: "Thread Color", Type: "singleLineText"},
			{Name: "Include Beanie", Type: "singleSelect", Options: &FieldOptions{Choices: yesNoChoices()}},
			{Name: "Gift Box", Type: "singleSelect", Options: &FieldOptions{Choices: yesNoChoices()}},
			{Name: "Gift Note", Type: "singleSelect", Options: &FieldOptions{Choices: yesNoChoices()}},
			{Name: "Gift Message", Type: "multilineText"},
			{Name: "Bobbin Color", Type: "singleSelect", Options: &FieldOptions{Choices: []Choice{
				{Name: "Black Bobbin", Color: "grayDark1"},
				{Name: "White Bobbin", Color: "grayBright"},
			}}},
			{Name: "Design Files", Type: "multipleAttachments"},
			{Name: "Status", Type: "singleSelect", Options: &FieldOptions{Choices: []Choice{
				{Name: "Pending", Color: "grayBright"},
				{Name: "Cutting", Color: "blueBright"},
				{Name: "Embroidery", Color: "yellowBright"},
				{Name: "Quality Check", Color: "orangeBright"},
				{Name: "Complete", Color: "greenBright"},
			}}},
			{Name: "Assigned To", Type: "singleLineText"},
			{Name: "Notes", Type: "multilineText"},
		},
	}
}

// EnsureSchema creates the orders and line items tables if the base does not
// already have them. Existing tables are left untouched, so the call is safe
// to repeat.
func EnsureSchema(ctx context.Context, c Client, ordersTable, itemsTable string) (*Schema, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "airtable: inspect base")
	}

	byName := make(map[string]Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	schema := &Schema{}

	if existing, ok := byName[ordersTable]; ok {
		schema.OrdersTableID = existing.ID
	} else {
		created, err := c.CreateTable(ctx, OrdersTableSpec(ordersTable))
		if err != nil {
			return nil, eris.Wrapf(err, "airtable: create %s table", ordersTable)
		}
		schema.OrdersTableID = created.ID
		schema.CreatedOrders = true
	}

	if existing, ok := byName[itemsTable]; ok {
		schema.LineItemsTableID = existing.ID
	} else {
		created, err := c.CreateTable(ctx, LineItemsTableSpec(itemsTable, schema.OrdersTableID))
		if err != nil {
			return nil, eris.Wrapf(err, "airtable: create %s table", itemsTable)
		}
		schema.LineItemsTableID = created.ID
		schema.CreatedLineItems = true
	}

	return schema, nil
}
