package cleanup

import (
	"bufio"
	"bytes"
	"mime"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/emersion/go-message/charset"
	"github.com/jhillyerd/enmime"

	"github.com/brandon/imap-sweep/pkg/types"
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// DecodeHeader decodes an RFC 2047 encoded header value into plain text.
// Plain values pass through unchanged; any decode failure returns the
// trimmed input as-is. It never fails.
func DecodeHeader(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return strings.TrimSpace(decoded)
}

// Fallback layouts for Date headers that net/mail rejects, after the
// RFC 5322 permutations.
var dateLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"02 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate converts a Date header into an absolute UTC instant. The second
// return value is false when the header is empty or unparsable.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(raw); err == nil {
		return t.UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// AddressOf extracts the address portion of a From header value, falling
// back to the text between angle brackets, then to the input itself.
func AddressOf(senderFull string) string {
	if addr, err := mail.ParseAddress(senderFull); err == nil {
		return addr.Address
	}
	if i := strings.IndexByte(senderFull, '<'); i >= 0 {
		if j := strings.IndexByte(senderFull[i+1:], '>'); j >= 0 {
			return senderFull[i+1 : i+1+j]
		}
	}
	return senderFull
}

// ParseHeaders builds a MessageSummary from a raw header block. Malformed
// input degrades to best-effort values, never an error; an unparsable or
// missing Date leaves the summary's Date zero.
func ParseHeaders(id uint32, raw []byte) types.MessageSummary {
	senderFull, subject, dateRaw := envelopeHeaders(raw)

	summary := types.MessageSummary{
		ID:         id,
		Sender:     AddressOf(senderFull),
		SenderFull: senderFull,
		Subject:    subject,
	}
	if t, ok := ParseDate(dateRaw); ok {
		summary.Date = t
	}
	return summary
}

// envelopeHeaders parses the header block with enmime, which handles
// charset detection and tolerates invalid bytes. On failure it degrades to
// a line-level MIME header read plus word decoding.
func envelopeHeaders(raw []byte) (from, subject, date string) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err == nil {
		return strings.TrimSpace(env.GetHeader("From")),
			strings.TrimSpace(env.GetHeader("Subject")),
			env.GetHeader("Date")
	}

	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(raw)))
	hdr, err := tp.ReadMIMEHeader()
	if err != nil && len(hdr) == 0 {
		return "", "", ""
	}
	return DecodeHeader(hdr.Get("From")), DecodeHeader(hdr.Get("Subject")), hdr.Get("Date")
}
