package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reviewflow/internal/imageprocessor"
	"reviewflow/internal/logger"
	"reviewflow/internal/storage"
	"reviewflow/pkg/apperrors"

	"github.com/google/uuid"
)

// UploadLimits - ограничения на вложения
type UploadLimits struct {
	MaxSize      int64
	MaxImages    int
	AllowedTypes []string
	LogoSize     int
}

// AttachmentService stores images that arrive inline as data URLs.
type AttachmentService interface {
	// SaveImages stores feedback photos and returns their URLs in input order.
	SaveImages(ctx context.Context, tenantKey string, dataURLs []string) ([]string, error)
	// SaveLogo returns value unchanged for http(s) URLs and "" and uploads data URLs scaled to the logo size.
	SaveLogo(ctx context.Context, ownerID, value string) (string, error)
	// Remove deletes blobs this storage owns and ignores foreign URLs.
	Remove(ctx context.Context, urls ...string)
}

type attachmentService struct {
	storage   storage.Storage
	processor *imageprocessor.Processor
	limits    UploadLimits
}

func NewAttachmentService(store storage.Storage, processor *imageprocessor.Processor, limits UploadLimits) AttachmentService {
	if limits.MaxSize <= 0 {
		limits.MaxSize = 5 << 20
	}
	if limits.MaxImages <= 0 {
		limits.MaxImages = 5
	}
	if len(limits.AllowedTypes) == 0 {
		limits.AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	}
	if limits.LogoSize <= 0 {
		limits.LogoSize = 256
	}
	return &attachmentService{storage: store, processor: processor, limits: limits}
}

func (s *attachmentService) SaveImages(ctx context.Context, tenantKey string, dataURLs []string) ([]string, error) {
	if len(dataURLs) == 0 {
		return []string{}, nil
	}
	if len(dataURLs) > s.limits.MaxImages {
		return nil, apperrors.ValidationError(map[string]string{
			"images": fmt.Sprintf("at most %d images allowed", s.limits.MaxImages),
		})
	}

	decoded := make([]decodedImage, 0, len(dataURLs))
	for _, raw := range dataURLs {
		img, err := s.decode(raw)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, img)
	}

	urls := make([]string, 0, len(decoded))
	for _, img := range decoded {
		key := fmt.Sprintf("feedback/%s/%s/%s%s", tenantKey, time.Now().UTC().Format("2006/01"), uuid.NewString(), extFor(img.contentType))
		u, err := s.storage.Put(ctx, key, bytes.NewReader(img.data), img.contentType)
		if err != nil {
			// не оставляем половину загрузки
			s.Remove(ctx, urls...)
			return nil, apperrors.ErrStoreWrite(err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func (s *attachmentService) SaveLogo(ctx context.Context, ownerID, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || isHTTPURL(value) {
		return value, nil
	}

	img, err := s.decode(value)
	if err != nil {
		return "", err
	}
	data, contentType, err := s.processor.Fit(img.data, s.limits.LogoSize)
	if err != nil {
		return "", apperrors.ErrInvalidFileType.WithError(err)
	}

	key := fmt.Sprintf("logos/%s/%s%s", ownerID, uuid.NewString(), extFor(contentType))
	u, err := s.storage.Put(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return "", apperrors.ErrStoreWrite(err)
	}
	return u, nil
}

func (s *attachmentService) Remove(ctx context.Context, urls ...string) {
	for _, u := range urls {
		key, ok := s.storage.KeyFromURL(u)
		if !ok {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			logger.CtxWithError(ctx, "Failed to delete attachment", err, "url", u)
		}
	}
}

type decodedImage struct {
	data        []byte
	contentType string
}

// decode parses "data:<mime>;base64,<payload>". The declared type must match the sniffed one.
func (s *attachmentService) decode(raw string) (decodedImage, error) {
	header, payload, ok := strings.Cut(raw, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return decodedImage{}, apperrors.ErrInvalidFileType
	}
	declared := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")

	// base64 раздувает на 4/3, отсекаем до декодирования
	if int64(len(payload))*3/4 > s.limits.MaxSize {
		return decodedImage{}, apperrors.ErrFileTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return decodedImage{}, apperrors.ErrInvalidFileType.WithError(err)
	}
	if int64(len(data)) > s.limits.MaxSize {
		return decodedImage{}, apperrors.ErrFileTooLarge
	}

	sniffed := http.DetectContentType(data)
	if sniffed != declared || !s.allowed(sniffed) {
		return decodedImage{}, apperrors.ErrInvalidFileType
	}
	return decodedImage{data: data, contentType: sniffed}, nil
}

func (s *attachmentService) allowed(mimeType string) bool {
	for _, t := range s.limits.AllowedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
