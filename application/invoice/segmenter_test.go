package invoice

import (
	"os"
	"strings"
	"testing"

	"invoice_automation/domain/entities"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSample(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestSegment_NoMarkers(t *testing.T) {
	raw := "  just some text\nwithout sections  "
	blocks := Segment(raw)

	require.Len(t, blocks, 1)
	assert.Equal(t, "just some text\nwithout sections", blocks.Text(entities.BlockHeader))
	assert.Equal(t, 0, blocks[entities.BlockHeader].Start)
	assert.Equal(t, len(raw), blocks[entities.BlockHeader].End)
}

func TestSegment_Empty(t *testing.T) {
	blocks := Segment("")

	require.Len(t, blocks, 1)
	assert.Equal(t, "", blocks.Text(entities.BlockHeader))
}

func TestSegment_SampleInvoice(t *testing.T) {
	raw := loadSample(t, "void_invoice.txt")
	blocks := Segment(raw)

	for _, name := range []entities.BlockName{
		entities.BlockHeader,
		entities.BlockSummary,
		entities.BlockDescription,
		entities.BlockPayments,
		entities.BlockDetails,
		entities.BlockLogs,
		entities.BlockEvents,
		entities.BlockMetadata,
	} {
		assert.True(t, blocks.Has(name), "missing block %s", name)
	}
	assert.False(t, blocks.Has(entities.BlockRecentActivity))

	assert.True(t, strings.HasPrefix(blocks.Text(entities.BlockHeader), "Invoices"))
	assert.True(t, strings.HasPrefix(blocks.Text(entities.BlockSummary), "Summary"))
	assert.True(t, strings.HasSuffix(blocks.Text(entities.BlockSummary), "USD - US Dollar"))
	assert.True(t, strings.HasPrefix(blocks.Text(entities.BlockDescription), "Description\nQty"))
	assert.Equal(t, "Payments\nNo payments", blocks.Text(entities.BlockPayments))
}

func TestSegment_BlocksAreOrderedAndDisjoint(t *testing.T) {
	raw := loadSample(t, "void_invoice.txt")
	blocks := Segment(raw)

	var spans []entities.Block
	for _, b := range blocks {
		spans = append(spans, b)
	}
	for i := range spans {
		assert.LessOrEqual(t, spans[i].Start, spans[i].End)
		for j := range spans {
			if i == j {
				continue
			}
			a, b := spans[i], spans[j]
			overlap := a.Start < b.End && b.Start < a.End
			assert.False(t, overlap, "%s overlaps %s", a.Name, b.Name)
		}
	}
}

func TestSegment_DetailsStopsAtBlocklistedHeader(t *testing.T) {
	raw := loadSample(t, "void_invoice.txt")
	details := Segment(raw)[entities.BlockDetails]

	assert.True(t, strings.HasPrefix(details.Text, "Details\nID\nin_1OabcDEF234"))
	assert.True(t, strings.HasSuffix(details.Text, "Jan 20, 2024, 9:15 AM"))
	assert.NotContains(t, details.Text, "Connections")
	assert.NotContains(t, details.Text, "cus_123")
}

func TestSegment_DetailsWithoutBlocklistKeepsGenericEnd(t *testing.T) {
	raw := "Details\nID\nin_123\nCreated\nJan 1\nLogs\nentry"
	details := Segment(raw)[entities.BlockDetails]

	assert.Equal(t, "Details\nID\nin_123\nCreated\nJan 1", details.Text)
}

func TestSegment_MarkersAreCaseInsensitiveAndLineAnchored(t *testing.T) {
	raw := "intro mentions summary inline\nSUMMARY\nInvoice number\nAB-1"
	blocks := Segment(raw)

	require.True(t, blocks.Has(entities.BlockSummary))
	assert.Equal(t, "SUMMARY\nInvoice number\nAB-1", blocks.Text(entities.BlockSummary))
	assert.Equal(t, "intro mentions summary inline", blocks.Text(entities.BlockHeader))
}

func TestSegment_DescriptionNeedsQtyLine(t *testing.T) {
	blocks := Segment("Description\nSomething else\nmore")
	assert.False(t, blocks.Has(entities.BlockDescription))

	blocks = Segment("Description\nQty\nUnit price\nAmount")
	assert.True(t, blocks.Has(entities.BlockDescription))
}

func TestSegment_RepeatedHeaderLastWins(t *testing.T) {
	logger, hook := test.NewNullLogger()
	parser := NewParser(logger)

	raw := "Summary\nCurrency\nEUR\nLogs\nx\nSummary\nCurrency\nUSD"
	blocks := parser.Segment(raw)

	assert.Equal(t, "Summary\nCurrency\nUSD", blocks.Text(entities.BlockSummary))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, entities.BlockSummary, hook.LastEntry().Data["block"])
}
