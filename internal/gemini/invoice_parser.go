package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// ParseInvoiceTimeout bounds one Gemini call unless WithTimeout says otherwise.
const ParseInvoiceTimeout = 30 * time.Second

// ErrParseTimeout indicates the Gemini API call timed out.
var ErrParseTimeout = errors.New("invoice parsing timed out")

// ErrNoData indicates no usable data could be extracted from the invoice.
var ErrNoData = errors.New("no usable data extracted from invoice")

// InvoiceData is what Gemini read from an invoice photo.
type InvoiceData struct {
	Amount      decimal.Decimal
	VATAmount   decimal.Decimal
	VATRate     finance.VATMode
	Vendor      string
	Description string
	Date        time.Time
	Confidence  float64
}

// HasAmount returns true if the total was extracted.
func (d *InvoiceData) HasAmount() bool {
	return d.Amount.IsPositive()
}

// IsEmpty returns true if neither a total nor a vendor was extracted.
func (d *InvoiceData) IsEmpty() bool {
	return !d.HasAmount() && d.Vendor == "" && d.Description == ""
}

// DeductibleVAT is the VAT to store on the expense: the printed VAT total
// when there is one, otherwise VAT at the printed rate, otherwise zero.
func (d *InvoiceData) DeductibleVAT() decimal.Decimal {
	if d.VATAmount.IsPositive() {
		return finance.ExpenseVAT(d.Amount, finance.VATModeManual, d.VATAmount)
	}
	return finance.ExpenseVAT(d.Amount, d.VATRate, decimal.Zero)
}

// Label is the expense description: the vendor and what was bought.
func (d *InvoiceData) Label() string {
	parts := make([]string, 0, 2)
	if d.Vendor != "" {
		parts = append(parts, d.Vendor)
	}
	if d.Description != "" {
		parts = append(parts, d.Description)
	}
	label := strings.Join(parts, " - ")
	if label == "" {
		label = "Invoice"
	}
	if r := []rune(label); len(r) > models.MaxDescriptionLength {
		label = strings.TrimSpace(string(r[:models.MaxDescriptionLength]))
	}
	return label
}

// invoiceResponse is the JSON structure returned by Gemini.
type invoiceResponse struct {
	Amount      string  `json:"amount"`
	VATAmount   string  `json:"vat_amount"`
	VATRate     string  `json:"vat_rate"`
	Vendor      string  `json:"vendor"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Confidence  float64 `json:"confidence"`
}

// ParseInvoice extracts the total, VAT, vendor and date from an invoice or
// fuel receipt photo.
func (c *Client) ParseInvoice(ctx context.Context, imageBytes []byte, mimeType string) (*InvoiceData, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image data is required")
	}

	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.generator.GenerateContent(timeoutCtx, c.model, []*genai.Content{
		{
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageBytes}},
				{Text: invoicePrompt},
			},
		},
	}, c.generationConfig())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrParseTimeout
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	var textContent strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		textContent.WriteString(part.Text)
	}
	if textContent.Len() == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	data, err := parseInvoiceResponse(textContent.String())
	if err != nil {
		return nil, err
	}
	if data.IsEmpty() {
		return nil, ErrNoData
	}
	return data, nil
}

const invoicePrompt = `Analyze this invoice or receipt image and extract the following information.
Return ONLY a JSON object with no additional text or markdown formatting.

Required fields:
- amount: The total amount paid including VAT (numeric string, e.g., "62.00")
- vat_amount: The total VAT printed on the invoice (numeric string), "0" if none is printed
- vat_rate: The VAT rate applied, "13" or "24", or "" if unknown
- vendor: The seller's name
- description: A short description of what was bought (e.g., "Diesel", "Oil change")
- date: The date of the invoice in YYYY-MM-DD format
- confidence: Your confidence in the extraction accuracy (0.0 to 1.0)

If a field cannot be determined, use an empty string for text fields, "0" for amounts, or 0.0 for confidence.

Example response:
{"amount": "62.00", "vat_amount": "12.00", "vat_rate": "24", "vendor": "Shell", "description": "Diesel", "date": "2024-01-15", "confidence": 0.95}`

func parseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s %q: %w", field, s, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s %q is negative", field, s)
	}
	return amount, nil
}

func parseInvoiceResponse(response string) (*InvoiceData, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var ir invoiceResponse
	if err := json.Unmarshal([]byte(response), &ir); err != nil {
		return nil, fmt.Errorf("failed to parse invoice response: %w", err)
	}

	data := &InvoiceData{
		VATRate:     finance.VATModeNone,
		Vendor:      strings.Join(strings.Fields(ir.Vendor), " "),
		Description: strings.Join(strings.Fields(ir.Description), " "),
		Confidence:  ir.Confidence,
	}

	var err error
	if data.Amount, err = parseAmount("amount", ir.Amount); err != nil {
		return nil, err
	}
	if data.VATAmount, err = parseAmount("VAT amount", ir.VATAmount); err != nil {
		return nil, err
	}
	if mode, err := finance.ParseVATMode(ir.VATRate); err == nil && mode != finance.VATModeManual {
		data.VATRate = mode
	}

	if ir.Date != "" {
		if date, err := time.Parse("2006-01-02", ir.Date); err == nil {
			data.Date = date
		}
	}

	return data, nil
}
