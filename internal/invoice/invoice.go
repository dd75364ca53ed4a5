package invoice

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/daguilastro/Los5deSergito/internal/upstream"
)

var ErrEmptyInvoice = errors.New("invoice attachment has no content")

const defaultMIME = "application/pdf"

// File is a decoded invoice artifact, ready to be handed to the operator as a
// download.
type File struct {
	Filename string
	MIME     string
	Content  []byte
}

// Decode turns the wire attachment into a File. Missing metadata falls back
// to application/pdf and factura_<saleID>.pdf.
func Decode(att *upstream.InvoiceAttachment, saleID int64) (*File, error) {
	if att == nil || att.Base64 == "" {
		return nil, ErrEmptyInvoice
	}

	content, err := base64.StdEncoding.DecodeString(att.Base64)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice encoding: %w", err)
	}

	mime := att.MIME
	if mime == "" {
		mime = defaultMIME
	}

	name := sanitizeFilename(att.Filename)
	if name == "" {
		name = fmt.Sprintf("factura_%d.pdf", saleID)
	}

	return &File{Filename: name, MIME: mime, Content: content}, nil
}

// sanitizeFilename strips path separators and control characters so the value
// is safe to echo into a Content-Disposition header.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == '"':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			// drop control characters
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
