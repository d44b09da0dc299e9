package client

import (
	"encoding/base64"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderQR encodes the copy-and-paste PIX code as a scannable QR PNG.
// Whitespace is stripped first; embedded spaces break bank app scanners.
func RenderQR(code string) ([]byte, error) {
	sanitized := strings.Join(strings.Fields(code), "")
	return qrcode.Encode(sanitized, qrcode.Medium, 220)
}

// PNGDataURI wraps a PNG into a data URI, matching the format gateways use
// when they supply the image themselves.
func PNGDataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
