package pix

import (
	"regexp"
	"strings"
)

// Payload is the canonical PIX artifact extracted from a gateway response.
// Code is the "copia e cola" string; everything else is best-effort.
type Payload struct {
	Code       string `json:"qrcode"`
	Image      string `json:"qrcodeImage,omitempty"`
	Expiration string `json:"expirationDate,omitempty"`
	EndToEndID string `json:"end2EndId,omitempty"`
}

// Status is the canonical payment status vocabulary.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusRefunded  Status = "refunded"
	StatusUnknown   Status = "unknown"
)

// Alias tables in priority order. Gateways (and gateway API versions) move
// the same PIX fields around under different names; extraction probes the
// nested "pix" object first, then the response top level.
var (
	codeAliases = []string{
		"qrcode", "qr_code_text", "qr_code", "pix_qr_code",
		"copy_paste", "qrCode", "emv", "code", "payload",
	}
	imageAliases = []string{
		"qrcodeImage", "image_base64", "qrcode_base64",
		"qr_code_image", "qrcode_image", "image",
	}
	expirationAliases = []string{
		"expirationDate", "expiration_date", "expirationDateTime", "expires_at",
	}
	endToEndAliases = []string{
		"end2EndId", "end_to_end_id", "endToEndId", "e2e_id",
	}
	pixSectionKeys = []string{"pix", "pix_payment", "payment"}
)

var statusTable = map[string]Status{
	"pending":         StatusPending,
	"processing":      StatusPending,
	"waiting_payment": StatusPending,
	"created":         StatusPending,
	"paid":            StatusPaid,
	"approved":        StatusPaid,
	"completed":       StatusPaid,
	"canceled":        StatusCancelled,
	"cancelled":       StatusCancelled,
	"failed":          StatusCancelled,
	"refunded":        StatusRefunded,
	"expired":         StatusExpired,
}

// NormalizeStatus maps a raw gateway status onto the canonical vocabulary.
// Unmapped values collapse to StatusUnknown.
func NormalizeStatus(raw string) Status {
	if raw == "" {
		return StatusUnknown
	}
	if s, ok := statusTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}

// NormalizeStatusLenient maps like NormalizeStatus but passes unmapped values
// through lower-cased instead of collapsing them. Used on the creation path,
// where callers display whatever the gateway said. See DESIGN.md.
func NormalizeStatusLenient(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return string(StatusUnknown)
	}
	if s, ok := statusTable[lowered]; ok {
		return string(s)
	}
	return lowered
}

// Extract probes a decoded gateway response for PIX data. It returns nil when
// no alias holds a non-empty code; a payload without a code is never valid.
func Extract(doc map[string]any) *Payload {
	sections := make([]map[string]any, 0, 2)
	for _, key := range pixSectionKeys {
		if nested, ok := doc[key].(map[string]any); ok {
			sections = append(sections, nested)
		}
	}
	sections = append(sections, doc)

	code := firstString(sections, codeAliases)
	if code == "" {
		return nil
	}
	return &Payload{
		Code:       code,
		Image:      RepairImageURI(firstString(sections, imageAliases)),
		Expiration: firstString(sections, expirationAliases),
		EndToEndID: firstString(sections, endToEndAliases),
	}
}

func firstString(sections []map[string]any, aliases []string) string {
	for _, section := range sections {
		for _, alias := range aliases {
			if v, ok := section[alias].(string); ok {
				if trimmed := strings.TrimSpace(v); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}

var bareBase64 = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)

// RepairImageURI wraps a bare base64 image blob into a data URI so clients
// can render it directly. Values that already carry a data: prefix, or that
// are too short to be an encoded image, pass through unchanged.
func RepairImageURI(img string) string {
	if img == "" || strings.HasPrefix(img, "data:image") {
		return img
	}
	compact := strings.Join(strings.Fields(img), "")
	if len(compact) > 100 && bareBase64.MatchString(compact) {
		return "data:image/png;base64," + compact
	}
	return img
}
