package gemini

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInvoice_Integration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, apiKey)
	require.NoError(t, err)

	if path := os.Getenv("TEST_INVOICE_IMAGE"); path != "" {
		t.Run("parses sample invoice", func(t *testing.T) {
			imageBytes, err := os.ReadFile(path)
			require.NoError(t, err)

			data, err := client.ParseInvoice(ctx, imageBytes, "image/jpeg")
			require.NoError(t, err)
			require.True(t, data.HasAmount(), "should extract the total")
			require.False(t, data.DeductibleVAT().GreaterThan(data.Amount))
			t.Logf("Extracted invoice: Amount=%s, VAT=%s, Vendor=%s", data.Amount, data.DeductibleVAT(), data.Vendor)
		})
	}

	t.Run("returns error for empty image", func(t *testing.T) {
		_, err := client.ParseInvoice(ctx, []byte{}, "image/jpeg")
		require.ErrorContains(t, err, "image data is required")
	})

	t.Run("handles invalid image gracefully", func(t *testing.T) {
		_, err := client.ParseInvoice(ctx, []byte("not a valid image"), "image/jpeg")
		require.Error(t, err)
	})
}
