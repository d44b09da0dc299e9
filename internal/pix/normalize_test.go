package pix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNestedSectionWins(t *testing.T) {
	doc := map[string]any{
		"code": "top-level-code",
		"pix": map[string]any{
			"qr_code": "nested-code",
		},
	}
	p := Extract(doc)
	require.NotNil(t, p)
	assert.Equal(t, "nested-code", p.Code)
}

func TestExtractAliasPriorityOrder(t *testing.T) {
	// qrcode outranks qr_code_text, which outranks emv
	doc := map[string]any{
		"pix": map[string]any{
			"emv":          "third",
			"qr_code_text": "second",
			"qrcode":       "first",
		},
	}
	p := Extract(doc)
	require.NotNil(t, p)
	assert.Equal(t, "first", p.Code)
}

func TestExtractTopLevelFallback(t *testing.T) {
	doc := map[string]any{
		"payload":        "00020126pix-emv-payload",
		"expirationDate": "2024-06-01T00:00:00Z",
		"end_to_end_id":  "E123456",
		"qrcode_base64":  "",
		"transactionId":  "tx-1",
	}
	p := Extract(doc)
	require.NotNil(t, p)
	assert.Equal(t, "00020126pix-emv-payload", p.Code)
	assert.Equal(t, "2024-06-01T00:00:00Z", p.Expiration)
	assert.Equal(t, "E123456", p.EndToEndID)
}

func TestExtractAbsentOrEmptyIsNil(t *testing.T) {
	assert.Nil(t, Extract(map[string]any{"status": "pending"}))
	assert.Nil(t, Extract(map[string]any{
		"pix": map[string]any{"qrcode": "", "qr_code": "   "},
	}))
	// an image without a code is not a payable artifact
	assert.Nil(t, Extract(map[string]any{
		"pix": map[string]any{"qrcode_base64": "aGVsbG8="},
	}))
}

func TestNormalizeStatusTable(t *testing.T) {
	cases := map[string]Status{
		"PAID":            StatusPaid,
		"approved":        StatusPaid,
		"completed":       StatusPaid,
		"Waiting_Payment": StatusPending,
		"processing":      StatusPending,
		"created":         StatusPending,
		"canceled":        StatusCancelled,
		"failed":          StatusCancelled,
		"refunded":        StatusRefunded,
		"expired":         StatusExpired,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeStatus(raw), "raw=%s", raw)
	}
}

func TestNormalizeStatusUnknownFallback(t *testing.T) {
	// strict path collapses unmapped vocabulary
	assert.Equal(t, StatusUnknown, NormalizeStatus("totally-unknown-status"))
	assert.Equal(t, StatusUnknown, NormalizeStatus(""))
}

func TestNormalizeStatusLenientPassthrough(t *testing.T) {
	// lenient path keeps unmapped vocabulary, lower-cased
	assert.Equal(t, "totally-unknown-status", NormalizeStatusLenient("Totally-Unknown-Status"))
	assert.Equal(t, "paid", NormalizeStatusLenient("APPROVED"))
	assert.Equal(t, "unknown", NormalizeStatusLenient(""))
}

func TestRepairImageURI(t *testing.T) {
	blob := strings.Repeat("QUJD", 40) // >100 chars of base64 alphabet
	assert.Equal(t, "data:image/png;base64,"+blob, RepairImageURI(blob))

	already := "data:image/png;base64,QUJD"
	assert.Equal(t, already, RepairImageURI(already))

	assert.Equal(t, "short", RepairImageURI("short"))
	assert.Equal(t, "", RepairImageURI(""))
}
