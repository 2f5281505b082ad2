package invoice

import (
	"regexp"
	"strings"

	"invoice_automation/domain/entities"
)

var (
	statusPattern      = regexp.MustCompile(`(?i)\b(void|open|paid|draft|uncollectible)\b`)
	totalPattern       = regexp.MustCompile(`(?m)^[ \t]*(?i:total)[ \t]*\r?\n[ \t]*(-?[$€£¥]?[\d,]+\.\d{2})`)
	emailPattern       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	paymentPagePattern = regexp.MustCompile(`https://invoice\.stripe\.com/i/[^\s]+`)

	invoiceNumberPattern = labelled(`invoice number`, `([A-Z0-9][A-Z0-9-]*)[ \t]*\r?$`)
	dueDatePattern       = labelledLine(`due date`)
	billedToPattern      = labelledLine(`billed to`)
	currencyPattern      = labelledLine(`currency`)
	internalIDPattern    = labelled(`id`, `(in_[A-Za-z0-9]+)\b`)

	tableHeaderPattern = regexp.MustCompile(`(?im)^[ \t]*description[ \t]*\r?\n[ \t]*qty[ \t]*\r?\n[ \t]*unit price[ \t]*\r?\n[ \t]*amount[ \t]*$`)
	subtotalPattern    = regexp.MustCompile(`(?im)^[ \t]*subtotal\b`)
)

// Dates looked up in the details block. Due comes from the summary and Sent is never extracted.
var datePatterns = []struct {
	key     entities.DateKey
	pattern *regexp.Regexp
}{
	{entities.DateCreated, labelledLine(`created`)},
	{entities.DateFinalized, labelledLine(`finalized`)},
	{entities.DateVoided, labelledLine(`voided|invoice was voided`)},
}

const lineItemFields = 5

// labelled matches a label alone on its line followed by a value on the next line.
// Only the label is case-insensitive.
func labelled(label, value string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*(?i:` + label + `)[ \t]*\r?\n[ \t]*` + value)
}

func labelledLine(label string) *regexp.Regexp {
	return labelled(label, `(\S[^\r\n]*)`)
}

// Extract parses raw using the package default parser
func Extract(raw string, blocks entities.BlockMap) entities.InvoiceRecord {
	return defaultParser.Extract(raw, blocks)
}

// Parse segments and extracts raw using the package default parser
func Parse(raw string) entities.InvoiceRecord {
	return defaultParser.Parse(raw)
}

// Parse segments raw and extracts the record from it
func (p *Parser) Parse(raw string) entities.InvoiceRecord {
	return p.Extract(raw, p.Segment(raw))
}

// Extract reads every field from blocks, falling back to the whole capture when the
// relevant block has no match. Fields that cannot be found keep their sentinel.
func (p *Parser) Extract(raw string, blocks entities.BlockMap) entities.InvoiceRecord {
	record := entities.NewInvoiceRecord()

	if v, ok := firstGroup(statusPattern, raw); ok {
		record.Status = entities.InvoiceStatus(titleCase(v))
	}
	if v, ok := firstGroup(totalPattern, raw); ok {
		record.TotalAmount = v
	}
	if v, ok := lookup(invoiceNumberPattern, blocks, entities.BlockSummary, raw); ok {
		record.InvoiceNumber = v
	}
	if v, ok := lookup(dueDatePattern, blocks, entities.BlockSummary, raw); ok {
		record.DueDate = stripCommas(v)
	}
	if v := emailPattern.FindString(raw); v != "" {
		record.BilledToEmail = v
	}
	if v, ok := lookup(billedToPattern, blocks, entities.BlockSummary, raw); ok {
		if name := billedName(v); name != "" {
			record.BilledToName = name
		}
	}
	if v, ok := lookup(currencyPattern, blocks, entities.BlockSummary, raw); ok {
		record.Currency = v
	}
	if v, ok := lookup(internalIDPattern, blocks, entities.BlockDetails, raw); ok {
		record.InternalID = v
	}
	if v := paymentPagePattern.FindString(raw); v != "" {
		record.PaymentPage = v
	}

	for _, dp := range datePatterns {
		if v, ok := lookup(dp.pattern, blocks, entities.BlockDetails, raw); ok {
			record.Dates[dp.key] = stripCommas(v)
		}
	}
	if record.DueDate != entities.NotAvailable {
		record.Dates[entities.DateDue] = record.DueDate
	}

	record.LineItems = lineItems(raw, blocks)
	return record
}

// lookup tries the named block first and the whole capture second
func lookup(re *regexp.Regexp, blocks entities.BlockMap, name entities.BlockName, raw string) (string, bool) {
	if text := blocks.Text(name); text != "" {
		if v, ok := firstGroup(re, text); ok {
			return v, true
		}
	}
	return firstGroup(re, raw)
}

func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

// lineItems reads the description table. There is deliberately no global fallback other
// than the explicit table header, other tables on the page have the same shape.
func lineItems(raw string, blocks entities.BlockMap) []entities.LineItem {
	span := blocks.Text(entities.BlockDescription)
	if span != "" {
		if loc := subtotalPattern.FindStringIndex(span); loc != nil {
			span = span[:loc[0]]
		}
	} else {
		span = tableSpan(raw)
	}

	lines := nonEmptyLines(span)
	if len(lines) > 0 && strings.EqualFold(lines[0], "description") {
		if len(lines) > 4 {
			lines = lines[4:]
		} else {
			lines = nil
		}
	}

	items := make([]entities.LineItem, 0, len(lines)/lineItemFields)
	for i := 0; i+lineItemFields <= len(lines); i += lineItemFields {
		chunk := lines[i : i+lineItemFields]
		items = append(items, entities.LineItem{
			Description: chunk[0],
			Period:      chunk[1],
			Qty:         chunk[2],
			UnitPrice:   chunk[3],
			Amount:      chunk[4],
		})
	}
	return items
}

// tableSpan returns the text between the table header and the following Subtotal line
func tableSpan(raw string) string {
	header := tableHeaderPattern.FindStringIndex(raw)
	if header == nil {
		return ""
	}
	end := subtotalPattern.FindStringIndex(raw[header[1]:])
	if end == nil {
		return ""
	}
	return raw[header[1] : header[1]+end[0]]
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// billedName drops the " · email" suffix the page renders next to the customer name
func billedName(v string) string {
	if i := strings.Index(v, "·"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "Â"))
}

// commas are the report delimiter
func stripCommas(v string) string {
	return strings.ReplaceAll(v, ",", " ")
}

func titleCase(v string) string {
	if v == "" {
		return v
	}
	return strings.ToUpper(v[:1]) + strings.ToLower(v[1:])
}
