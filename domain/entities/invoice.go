package entities

// InvoiceStatus represents the lifecycle state printed on an invoice page
type InvoiceStatus string

const (
	StatusVoid          InvoiceStatus = "Void"
	StatusOpen          InvoiceStatus = "Open"
	StatusPaid          InvoiceStatus = "Paid"
	StatusDraft         InvoiceStatus = "Draft"
	StatusUncollectible InvoiceStatus = "Uncollectible"
	StatusUnknown       InvoiceStatus = "Unknown"
)

// NotAvailable is the sentinel stored in any scalar field that could not be extracted
const NotAvailable = "N/A"

// DateKey names a column of the IMPORTANT DATES table
type DateKey string

const (
	DateCreated   DateKey = "Created"
	DateFinalized DateKey = "Finalized"
	DateSent      DateKey = "Sent"
	DateDue       DateKey = "Due"
	DateVoided    DateKey = "Voided"
)

// LineItem is one row of the invoice description table. All values are kept as printed.
type LineItem struct {
	Description string `json:"description"`
	Period      string `json:"period"`
	Qty         string `json:"qty"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

// InvoiceRecord is the structured result of parsing one captured page
type InvoiceRecord struct {
	Status        InvoiceStatus      `json:"status"`
	InvoiceNumber string             `json:"invoice_number"`
	TotalAmount   string             `json:"total_amount"`
	Currency      string             `json:"currency"`
	BilledToName  string             `json:"billed_to_name"`
	BilledToEmail string             `json:"billed_to_email"`
	InternalID    string             `json:"internal_id"`
	DueDate       string             `json:"due_date"`
	PaymentPage   string             `json:"payment_page"` // hosted invoice link, not part of the .csv layout
	Dates         map[DateKey]string `json:"dates"`
	LineItems     []LineItem         `json:"line_items"`
}

// NewInvoiceRecord returns a record with every field set to its sentinel
func NewInvoiceRecord() InvoiceRecord {
	return InvoiceRecord{
		Status:        StatusUnknown,
		InvoiceNumber: NotAvailable,
		TotalAmount:   NotAvailable,
		Currency:      NotAvailable,
		BilledToName:  NotAvailable,
		BilledToEmail: NotAvailable,
		InternalID:    NotAvailable,
		DueDate:       NotAvailable,
		PaymentPage:   NotAvailable,
		Dates:         make(map[DateKey]string),
		LineItems:     []LineItem{},
	}
}
