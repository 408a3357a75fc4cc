package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
)

type mockGenerator struct {
	response *genai.GenerateContentResponse
	err      error

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
}

func (m *mockGenerator) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	m.gotModel = model
	m.gotContents = contents
	m.gotConfig = config
	return m.response, m.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

func TestParseInvoice(t *testing.T) {
	t.Parallel()

	t.Run("extracts invoice", func(t *testing.T) {
		t.Parallel()
		gen := &mockGenerator{response: textResponse(
			`{"amount": "62.00", "vat_amount": "12.00", "vat_rate": "24", "vendor": "Shell", "description": "Diesel", "date": "2024-03-02", "confidence": 0.93}`,
		)}
		client := NewClientWithGenerator(gen)

		data, err := client.ParseInvoice(context.Background(), []byte{0xff, 0xd8}, "")
		require.NoError(t, err)
		require.True(t, data.Amount.Equal(decimal.RequireFromString("62")))
		require.True(t, data.VATAmount.Equal(decimal.RequireFromString("12")))
		require.Equal(t, finance.VATModeStandard, data.VATRate)
		require.Equal(t, "Shell - Diesel", data.Label())
		require.Equal(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), data.Date)

		require.Equal(t, DefaultModel, gen.gotModel)
		require.Equal(t, "application/json", gen.gotConfig.ResponseMIMEType)
		require.Len(t, gen.gotContents, 1)
		require.Equal(t, "image/jpeg", gen.gotContents[0].Parts[0].InlineData.MIMEType)
		require.Contains(t, gen.gotContents[0].Parts[1].Text, "vat_amount")
	})

	t.Run("empty image", func(t *testing.T) {
		t.Parallel()
		client := NewClientWithGenerator(&mockGenerator{})
		_, err := client.ParseInvoice(context.Background(), nil, "image/png")
		require.ErrorContains(t, err, "image data is required")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		client := NewClientWithGenerator(&mockGenerator{err: context.DeadlineExceeded})
		_, err := client.ParseInvoice(context.Background(), []byte{1}, "image/png")
		require.ErrorIs(t, err, ErrParseTimeout)
	})

	t.Run("api error", func(t *testing.T) {
		t.Parallel()
		client := NewClientWithGenerator(&mockGenerator{err: errors.New("quota exceeded")})
		_, err := client.ParseInvoice(context.Background(), []byte{1}, "image/png")
		require.ErrorContains(t, err, "quota exceeded")
	})

	t.Run("no candidates", func(t *testing.T) {
		t.Parallel()
		client := NewClientWithGenerator(&mockGenerator{response: &genai.GenerateContentResponse{}})
		_, err := client.ParseInvoice(context.Background(), []byte{1}, "image/png")
		require.ErrorContains(t, err, "no response")
	})

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		client := NewClientWithGenerator(&mockGenerator{response: textResponse("")})
		_, err := client.ParseInvoice(context.Background(), []byte{1}, "image/png")
		require.ErrorContains(t, err, "empty response")
	})

	t.Run("nothing extracted", func(t *testing.T) {
		t.Parallel()
		client := NewClientWithGenerator(&mockGenerator{response: textResponse(`{"amount": "0", "vendor": ""}`)})
		_, err := client.ParseInvoice(context.Background(), []byte{1}, "image/png")
		require.ErrorIs(t, err, ErrNoData)
	})
}

func TestParseInvoiceResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		amount   string
		vat      string
		rate     finance.VATMode
		vendor   string
		date     time.Time
		wantErr  bool
	}{
		{
			name:     "markdown wrapped",
			response: "```json\n{\"amount\": \"10.50\", \"vendor\": \"Kiosk\", \"date\": \"2024-01-15\", \"confidence\": 0.8}\n```",
			amount:   "10.5",
			vat:      "0",
			rate:     finance.VATModeNone,
			vendor:   "Kiosk",
			date:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "comma decimal separator",
			response: `{"amount": "45,90", "vat_rate": "13%", "vendor": "  Garage   Nikos "}`,
			amount:   "45.9",
			vat:      "0",
			rate:     finance.VATModeReduced,
			vendor:   "Garage Nikos",
		},
		{
			name:     "invalid date is ignored",
			response: `{"amount": "30", "vendor": "Shop", "date": "yesterday"}`,
			amount:   "30",
			vat:      "0",
			rate:     finance.VATModeNone,
			vendor:   "Shop",
		},
		{
			name:     "unknown rate is dropped",
			response: `{"amount": "30", "vat_rate": "17", "vendor": "Shop"}`,
			amount:   "30",
			vat:      "0",
			rate:     finance.VATModeNone,
			vendor:   "Shop",
		},
		{
			name:     "invalid json",
			response: `not json`,
			wantErr:  true,
		},
		{
			name:     "invalid amount",
			response: `{"amount": "abc"}`,
			wantErr:  true,
		},
		{
			name:     "negative VAT",
			response: `{"amount": "10", "vat_amount": "-1"}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseInvoiceResponse(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, decimal.RequireFromString(tt.amount).Equal(got.Amount), "amount %s", got.Amount)
			require.True(t, decimal.RequireFromString(tt.vat).Equal(got.VATAmount), "vat %s", got.VATAmount)
			require.Equal(t, tt.rate, got.VATRate)
			require.Equal(t, tt.vendor, got.Vendor)
			require.Equal(t, tt.date, got.Date)
		})
	}
}

func TestInvoiceData_DeductibleVAT(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data InvoiceData
		want string
	}{
		{"printed VAT wins", InvoiceData{Amount: decimal.RequireFromString("62"), VATAmount: decimal.RequireFromString("12"), VATRate: finance.VATModeReduced}, "12"},
		{"printed VAT capped at total", InvoiceData{Amount: decimal.RequireFromString("10"), VATAmount: decimal.RequireFromString("50")}, "10"},
		{"rate only", InvoiceData{Amount: decimal.RequireFromString("124"), VATRate: finance.VATModeStandard}, "24"},
		{"nothing", InvoiceData{Amount: decimal.RequireFromString("124"), VATRate: finance.VATModeNone}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.data.DeductibleVAT()
			require.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestInvoiceData_Label(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Invoice", (&InvoiceData{}).Label())
	require.Equal(t, "Shell", (&InvoiceData{Vendor: "Shell"}).Label())
	require.Equal(t, "Oil change", (&InvoiceData{Description: "Oil change"}).Label())

	long := &InvoiceData{Vendor: strings.Repeat("x", 300)}
	require.Len(t, []rune(long.Label()), 200)
}

func TestInvoiceData_IsEmpty(t *testing.T) {
	t.Parallel()

	require.True(t, (&InvoiceData{}).IsEmpty())
	require.False(t, (&InvoiceData{Vendor: "Shell"}).IsEmpty())
	require.False(t, (&InvoiceData{Amount: decimal.NewFromInt(5)}).IsEmpty())
	require.True(t, (&InvoiceData{Amount: decimal.NewFromInt(5)}).HasAmount())
}
