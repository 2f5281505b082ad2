// Package invoice turns the clipboard dump of a rendered invoice page into an InvoiceRecord
// and renders records into the flat text report.
package invoice

import (
	"regexp"
	"sort"
	"strings"

	"invoice_automation/domain/entities"

	"github.com/sirupsen/logrus"
)

type marker struct {
	name    entities.BlockName
	pattern *regexp.Regexp
}

// Section headers, in the order they are tried. All are case-insensitive and line anchored.
var markers = []marker{
	{entities.BlockSummary, regexp.MustCompile(`(?im)^[ \t]*summary\b`)},
	{entities.BlockDescription, regexp.MustCompile(`(?im)^[ \t]*description[ \t]*\r?\n[^\n]*\bqty\b`)},
	{entities.BlockDetails, detailsMarker},
	{entities.BlockPayments, regexp.MustCompile(`(?im)^[ \t]*payments\b`)},
	{entities.BlockLogs, regexp.MustCompile(`(?im)^[ \t]*logs\b`)},
	{entities.BlockEvents, regexp.MustCompile(`(?im)^[ \t]*events\b`)},
	{entities.BlockMetadata, regexp.MustCompile(`(?im)^[ \t]*metadata\b`)},
	{entities.BlockRecentActivity, regexp.MustCompile(`(?im)^[ \t]*recent activity\b`)},
}

var (
	detailsMarker = regexp.MustCompile(`(?im)^[ \t]*details[ \t]*\r?\n[^\n]*\bid\b`)

	// Headers that follow the details list on the page but are not part of the marker set
	detailsBlocklist = regexp.MustCompile(`(?im)^[ \t]*(connections|payment attempts|credit notes|upcoming invoices?|invoice pdf|pending invoice items|related objects)\b`)
)

// Parser segments and extracts invoice pages. The zero value is ready to use and logs nothing.
type Parser struct {
	logger logrus.FieldLogger
}

// NewParser creates a parser that reports segmentation anomalies to logger
func NewParser(logger logrus.FieldLogger) *Parser {
	return &Parser{logger: logger}
}

var defaultParser = &Parser{}

// Segment splits raw using the package default parser
func Segment(raw string) entities.BlockMap {
	return defaultParser.Segment(raw)
}

type markerHit struct {
	start int
	name  entities.BlockName
}

// Segment splits raw into named blocks. Each block runs from its marker to the next marker
// (or the end of the text). When a name matches more than once the last occurrence wins.
func (p *Parser) Segment(raw string) entities.BlockMap {
	hits := []markerHit{{start: 0, name: entities.BlockHeader}}
	for _, m := range markers {
		for _, loc := range m.pattern.FindAllStringIndex(raw, -1) {
			hits = append(hits, markerHit{start: loc[0], name: m.name})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].start < hits[j].start
	})

	blocks := make(entities.BlockMap, len(hits))
	for i, h := range hits {
		end := len(raw)
		if i+1 < len(hits) {
			end = hits[i+1].start
		}
		if prev, dup := blocks[h.name]; dup && p.logger != nil {
			p.logger.WithFields(logrus.Fields{
				"block":          h.name,
				"dropped_offset": prev.Start,
				"kept_offset":    h.start,
			}).Warn("Section header repeated, keeping the later occurrence")
		}
		blocks[h.name] = entities.Block{
			Name:  h.name,
			Start: h.start,
			End:   end,
			Text:  strings.TrimSpace(raw[h.start:end]),
		}
	}

	refineDetails(raw, blocks)
	return blocks
}

// refineDetails cuts the details block at the first blocklisted header after its marker.
// The block never grows past its generic boundary.
func refineDetails(raw string, blocks entities.BlockMap) {
	b, ok := blocks[entities.BlockDetails]
	if !ok {
		return
	}
	loc := detailsMarker.FindStringIndex(raw[b.Start:])
	if loc == nil {
		return
	}
	bodyStart := b.Start + loc[1]
	cut := detailsBlocklist.FindStringIndex(raw[bodyStart:])
	if cut == nil {
		return
	}
	stop := bodyStart + cut[0]
	if stop >= b.End {
		return
	}
	b.End = stop
	b.Text = strings.TrimSpace(raw[b.Start:stop])
	blocks[entities.BlockDetails] = b
}
