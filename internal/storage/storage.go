// Package storage keeps uploaded blobs: feedback photos and QR logos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrInvalidKey = errors.New("invalid storage key")

// Storage - хранилище загруженных файлов
type Storage interface {
	// Put stores the blob under key and returns its public URL.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)

	Delete(ctx context.Context, key string) error

	// URL returns the public URL for key.
	URL(key string) string

	// KeyFromURL reverses URL for blobs this storage owns.
	KeyFromURL(url string) (string, bool)
}

// Config holds storage configuration
type Config struct {
	Type       string // local, cloudflare_r2
	BasePath   string // For local storage
	BaseURL    string // Public URL base
	Bucket     string // For R2
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicRead bool
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg)
	case "cloudflare_r2":
		return NewCloudflareR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" || strings.Contains(key, "..") || strings.ContainsRune(key, '\\') {
		return "", ErrInvalidKey
	}
	return key, nil
}

func keyFromURL(baseURL, url string) (string, bool) {
	prefix := strings.TrimRight(baseURL, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key, err := cleanKey(strings.TrimPrefix(url, prefix))
	return key, err == nil
}
