package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var errTooLarge = errors.New("upload exceeds size limit")

type ImageStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

type UploadService struct {
	Store    ImageStore
	MaxBytes int64
}

// SaveImage sniffs the content type, enforces the size limit while
// streaming, and stores the image under a random name.
func (s *UploadService) SaveImage(ctx context.Context, r io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", fmt.Errorf("%w: empty file", ErrValidation)
	}

	ext, ok := imageExt[http.DetectContentType(head)]
	if !ok {
		return "", fmt.Errorf("%w: only jpeg, png, gif and webp images are accepted", ErrValidation)
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	if s.MaxBytes > 0 {
		body = &capReader{r: body, left: s.MaxBytes}
	}

	url, err := s.Store.Save(ctx, uuid.NewString()+ext, body)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return "", fmt.Errorf("%w: image larger than %d bytes", ErrValidation, s.MaxBytes)
		}
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

type capReader struct {
	r    io.Reader
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, errTooLarge
	}
	return n, err
}
