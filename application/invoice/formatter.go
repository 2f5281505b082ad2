package invoice

import (
	"fmt"
	"sort"
	"strings"

	"invoice_automation/domain/entities"
)

var separator = strings.Repeat("-", 50)

var preferredDateOrder = []entities.DateKey{
	entities.DateCreated,
	entities.DateFinalized,
	entities.DateSent,
	entities.DateDue,
	entities.DateVoided,
}

// FormatRecord renders one record as a report block. The block ends with a separator line
// followed by a blank line. Only description commas are escaped (as semicolons).
func FormatRecord(record entities.InvoiceRecord) string {
	lines := []string{
		"INVOICE REPORT",
		separator,
		fmt.Sprintf("Invoice Number, %s, Status, %s", record.InvoiceNumber, record.Status),
		fmt.Sprintf("Billed To, %s, Email, %s", record.BilledToName, record.BilledToEmail),
		fmt.Sprintf("Total Amount, %s, Currency, %s", record.TotalAmount, record.Currency),
		fmt.Sprintf("Internal ID, %s", record.InternalID),
		"",
		"IMPORTANT DATES",
	}

	if len(record.Dates) == 0 {
		lines = append(lines, "No dates found")
	} else {
		keys := sortedDateKeys(record.Dates)
		header := make([]string, 0, len(keys))
		values := make([]string, 0, len(keys))
		for _, k := range keys {
			header = append(header, string(k))
			values = append(values, record.Dates[k])
		}
		lines = append(lines, strings.Join(header, ", "), strings.Join(values, ", "))
	}

	lines = append(lines, "", "LINE ITEMS", "Description, Period, Qty, Unit Price, Amount")
	if len(record.LineItems) == 0 {
		lines = append(lines, "No items found or parsing failed")
	}
	for _, item := range record.LineItems {
		lines = append(lines, fmt.Sprintf("%s, %s, %s, %s, %s",
			strings.ReplaceAll(item.Description, ",", ";"),
			item.Period, item.Qty, item.UnitPrice, item.Amount))
	}

	lines = append(lines, separator, "", "")
	return strings.Join(lines, "\n")
}

// FormatReport concatenates the blocks of all records in order
func FormatReport(records []entities.InvoiceRecord) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(FormatRecord(r))
	}
	return b.String()
}

// sortedDateKeys puts known keys in report order, then unknown keys alphabetically
func sortedDateKeys(dates map[entities.DateKey]string) []entities.DateKey {
	rank := func(k entities.DateKey) int {
		for i, p := range preferredDateOrder {
			if p == k {
				return i
			}
		}
		return len(preferredDateOrder)
	}

	keys := make([]entities.DateKey, 0, len(dates))
	for k := range dates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}
