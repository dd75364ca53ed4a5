package invoice

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daguilastro/Los5deSergito/internal/upstream"
)

func TestDecode(t *testing.T) {
	content := []byte("%PDF-1.4 fake")
	att := &upstream.InvoiceAttachment{
		Base64:   base64.StdEncoding.EncodeToString(content),
		MIME:     "application/pdf",
		Filename: "factura_42.pdf",
	}

	f, err := Decode(att, 42)
	require.NoError(t, err)
	assert.Equal(t, "factura_42.pdf", f.Filename)
	assert.Equal(t, "application/pdf", f.MIME)
	assert.Equal(t, content, f.Content)
}

func TestDecode_Defaults(t *testing.T) {
	att := &upstream.InvoiceAttachment{
		Base64: base64.StdEncoding.EncodeToString([]byte("x")),
	}

	f, err := Decode(att, 7)
	require.NoError(t, err)
	assert.Equal(t, "factura_7.pdf", f.Filename)
	assert.Equal(t, "application/pdf", f.MIME)
}

func TestDecode_EmptyAttachment(t *testing.T) {
	_, err := Decode(nil, 1)
	assert.ErrorIs(t, err, ErrEmptyInvoice)

	_, err = Decode(&upstream.InvoiceAttachment{}, 1)
	assert.ErrorIs(t, err, ErrEmptyInvoice)
}

func TestDecode_InvalidBase64(t *testing.T) {
	_, err := Decode(&upstream.InvoiceAttachment{Base64: "!!not base64!!"}, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyInvoice)
}

func TestDecode_SanitizesFilename(t *testing.T) {
	att := &upstream.InvoiceAttachment{
		Base64:   base64.StdEncoding.EncodeToString([]byte("x")),
		Filename: "  ../..\\evil\"name\x00.pdf ",
	}

	f, err := Decode(att, 1)
	require.NoError(t, err)
	assert.NotContains(t, f.Filename, "/")
	assert.NotContains(t, f.Filename, "\\")
	assert.NotContains(t, f.Filename, `"`)
	assert.NotContains(t, f.Filename, "\x00")
}

func TestVault_TakeIsOneShot(t *testing.T) {
	v := NewVault()
	f := &File{Filename: "factura_1.pdf", MIME: "application/pdf", Content: []byte("x")}

	v.Put(1, f)

	got, ok := v.Take(1)
	require.True(t, ok)
	assert.Same(t, f, got)

	_, ok = v.Take(1)
	assert.False(t, ok)
}

func TestVault_MissingSale(t *testing.T) {
	_, ok := NewVault().Take(99)
	assert.False(t, ok)
}
