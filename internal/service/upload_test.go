package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memStore struct {
	name string
	data []byte
}

func (m *memStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.name, m.data = name, b
	return "/uploads/" + name, nil
}

func TestUploadService_SaveImage(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	svc := &UploadService{Store: store, MaxBytes: 1024}
	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 600)...)

	url, err := svc.SaveImage(context.Background(), bytes.NewReader(payload))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(store.name, ".png"))
	assert.Equal(t, payload, store.data, "sniffed bytes are written too")
}

func TestUploadService_Rejects(t *testing.T) {
	t.Parallel()

	svc := &UploadService{Store: &memStore{}, MaxBytes: 100}

	_, err := svc.SaveImage(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrValidation, "empty")

	_, err = svc.SaveImage(context.Background(), strings.NewReader("plain text, not an image"))
	assert.ErrorIs(t, err, ErrValidation, "not an image")

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 200)...)
	_, err = svc.SaveImage(context.Background(), bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrValidation, "too large")
}
