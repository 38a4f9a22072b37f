package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhaven/order-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleLines() []model.OrderLine {
	return []model.OrderLine{
		{
			OrderID:           "111-2223334-5556667",
			OrderDate:         "Feb 10, 2025",
			BuyerName:         "John Smith",
			Quantity:          1,
			BlanketColor:      "Light Pink (Rosa Claro)",
			ThreadColor:       "White (Blanco)",
			CustomizationName: "EMMA",
			Beanie:            true,
			GiftNote:          true,
			GiftMessage:       "Welcome little one!",
		},
		{
			OrderID:           "111-2223334-5556667",
			OrderDate:         "Feb 10, 2025",
			BuyerName:         "John Smith",
			Quantity:          1,
			BlanketColor:      "Navy (Azul Marino)",
			ThreadColor:       "Gold (Dorado)",
			CustomizationName: "LIAM",
		},
		{
			OrderID:           "112-0001112-2223334",
			OrderDate:         "Feb 11, 2025",
			BuyerName:         "Mary O'Brien",
			Quantity:          2,
			BlanketColor:      "Beige (Beis)",
			ThreadColor:       "Pink (Rosa)",
			CustomizationName: "AVA",
			GiftBox:           true,
		},
	}
}

// --- Order lines ---

func TestSQLite_OrderLines_ReplaceAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	stored, err := st.ReplaceOrderLines(ctx, "slips.pdf", sampleLines())
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, l := range stored {
		assert.NotEmpty(t, l.ID)
		assert.Equal(t, "slips.pdf", l.SourceFile)
		assert.False(t, l.CreatedAt.IsZero())
	}

	lines, err := st.ListOrderLines(ctx, LineFilter{})
	require.NoError(t, err)
	require.Len(t, lines, 3)

	// Slip order is preserved.
	assert.Equal(t, "EMMA", lines[0].CustomizationName)
	assert.Equal(t, "LIAM", lines[1].CustomizationName)
	assert.Equal(t, "AVA", lines[2].CustomizationName)

	assert.True(t, lines[0].Beanie)
	assert.True(t, lines[0].GiftNote)
	assert.Equal(t, "Welcome little one!", lines[0].GiftMessage)
	assert.False(t, lines[1].Beanie)
	assert.True(t, lines[2].GiftBox)
	assert.Equal(t, 2, lines[2].Quantity)
}

func TestSQLite_OrderLines_ReplaceIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ReplaceOrderLines(ctx, "slips.pdf", sampleLines())
	require.NoError(t, err)
	_, err = st.ReplaceOrderLines(ctx, "slips.pdf", sampleLines())
	require.NoError(t, err)

	lines, err := st.ListOrderLines(ctx, LineFilter{SourceFile: "slips.pdf"})
	require.NoError(t, err)
	assert.Len(t, lines, 3)

	// A re-parse that found fewer lines replaces, never appends.
	_, err = st.ReplaceOrderLines(ctx, "slips.pdf", sampleLines()[:1])
	require.NoError(t, err)

	lines, err = st.ListOrderLines(ctx, LineFilter{SourceFile: "slips.pdf"})
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestSQLite_OrderLines_FilterByOrderID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ReplaceOrderLines(ctx, "slips.pdf", sampleLines())
	require.NoError(t, err)

	lines, err := st.ListOrderLines(ctx, LineFilter{OrderID: "111-2223334-5556667"})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "EMMA", lines[0].CustomizationName)
	assert.Equal(t, "LIAM", lines[1].CustomizationName)
}

func TestSQLite_OrderLines_FilterByBuyer(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ReplaceOrderLines(ctx, "slips.pdf", sampleLines())
	require.NoError(t, err)

	lines, err := st.ListOrderLines(ctx, LineFilter{BuyerName: "Mary O'Brien"})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "AVA", lines[0].CustomizationName)
}

func TestSQLite_OrderLines_FilterBySourceFile(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ReplaceOrderLines(ctx, "monday.pdf", sampleLines()[:2])
	require.NoError(t, err)
	_, err = st.ReplaceOrderLines(ctx, "tuesday.pdf", sampleLines()[2:])
	require.NoError(t, err)

	lines, err := st.ListOrderLines(ctx, LineFilter{SourceFile: "tuesday.pdf"})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "AVA", lines[0].CustomizationName)

	all, err := st.ListOrderLines(ctx, LineFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLite_OrderLines_ListEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)

	lines, err := st.ListOrderLines(context.Background(), LineFilter{})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

// --- Merge runs ---

func sampleMergeRun() model.MergeRun {
	return model.MergeRun{
		SlipFile:      "slips.pdf",
		ShippingFile:  "shipping.pdf",
		ShippingPages: 4,
		LabelPages:    5,
		Matched:       3,
		Missing:       1,
		Entries: []model.QCEntry{
			{Buyer: "JOHN SMITH", Status: model.QCMatched, ShippingPage: 1, Score: 100, Strategy: model.StrategyAnchor},
			{Buyer: "MARY OBRIEN", Status: model.QCMissing},
		},
		Warnings: []string{"labels document has 5 pages but 4 manufacturing rows"},
	}
}

func TestSQLite_MergeRun_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateMergeRun(ctx, sampleMergeRun())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := st.GetMergeRun(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "slips.pdf", got.SlipFile)
	assert.Equal(t, "shipping.pdf", got.ShippingFile)
	assert.Equal(t, 4, got.ShippingPages)
	assert.Equal(t, 3, got.Matched)
	assert.Equal(t, 1, got.Missing)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "JOHN SMITH", got.Entries[0].Buyer)
	assert.Equal(t, model.QCMatched, got.Entries[0].Status)
	assert.Equal(t, 1, got.Entries[0].ShippingPage)
	assert.Equal(t, model.StrategyAnchor, got.Entries[0].Strategy)
	assert.Equal(t, model.QCMissing, got.Entries[1].Status)
	require.Len(t, got.Warnings, 1)
}

func TestSQLite_MergeRun_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetMergeRun(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge run not found")
}

func TestSQLite_MergeRun_List(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateMergeRun(ctx, sampleMergeRun())
	require.NoError(t, err)
	second := sampleMergeRun()
	second.SlipFile = "later.pdf"
	_, err = st.CreateMergeRun(ctx, second)
	require.NoError(t, err)

	runs, err := st.ListMergeRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, !runs[0].CreatedAt.Before(runs[1].CreatedAt), "newest run listed first")
}

func TestSQLite_MergeRun_ListLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.CreateMergeRun(ctx, sampleMergeRun())
		require.NoError(t, err)
	}

	runs, err := st.ListMergeRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
