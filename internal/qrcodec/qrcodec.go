// Package qrcodec converts ticket codes to and from the text carried in a QR
// image. Image rendering and capture are left to the client.
package qrcodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PayloadType tags structured payloads produced by Encode.
const PayloadType = "ticket"

// ErrEmptyPayload is returned by Decode for blank input.
var ErrEmptyPayload = errors.New("empty qr payload")

// Payload is the structured QR content.
type Payload struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	Timestamp int64  `json:"timestamp"`
}

// Encode renders code as a structured payload stamped with issuedAt in unix millis.
func Encode(code string, issuedAt time.Time) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("encode qr payload: %w", ErrEmptyPayload)
	}
	b, err := json.Marshal(Payload{Type: PayloadType, Code: code, Timestamp: issuedAt.UnixMilli()})
	if err != nil {
		return "", fmt.Errorf("encode qr payload: %w", err)
	}
	return string(b), nil
}

// Decode extracts the ticket code from raw scanner output. A structured
// ticket payload yields its code; anything else is taken as a bare code and
// returned trimmed. The embedded timestamp is informational and ignored.
func Decode(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyPayload
	}
	if raw[0] == '{' {
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err == nil && p.Type == PayloadType && strings.TrimSpace(p.Code) != "" {
			return strings.TrimSpace(p.Code), nil
		}
	}
	return raw, nil
}
