package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/forecourt-hq/sentinel/internal/review"
)

// ErrUnsupportedFormat indicates a clip upload with an unknown extension.
var ErrUnsupportedFormat = errors.New("video: unsupported clip format")

var allowedExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".avi": {},
	".mkv": {},
}

// RepositoryPort abstracts clip metadata persistence.
type RepositoryPort interface {
	InsertClip(ctx context.Context, clip review.Clip) (review.Clip, error)
	GetClip(ctx context.Context, id int64) (review.Clip, error)
}

// Service stores clip bytes on local disk and metadata in the repository.
type Service struct {
	repo      RepositoryPort
	uploadDir string
}

// NewService builds Service. The upload directory is created on demand.
func NewService(repo RepositoryPort, uploadDir string) *Service {
	return &Service{repo: repo, uploadDir: uploadDir}
}

// Store saves an uploaded clip. The transaction id is optional: a clip may
// arrive before or without a matching transaction.
func (s *Service) Store(ctx context.Context, filename string, src io.Reader, transactionID string, duration *float64, actor string) (review.Clip, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return review.Clip{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return review.Clip{}, fmt.Errorf("video: create upload dir: %w", err)
	}

	storedName := uuid.NewString() + ext
	path := filepath.Join(s.uploadDir, storedName)
	dst, err := os.Create(path)
	if err != nil {
		return review.Clip{}, fmt.Errorf("video: create clip file: %w", err)
	}
	size, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return review.Clip{}, fmt.Errorf("video: write clip file: %w", err)
	}

	clip := review.Clip{
		TransactionID: transactionID,
		StoredName:    storedName,
		Filename:      filename,
		Size:          size,
		Duration:      duration,
		UploadedBy:    actor,
	}
	stored, err := s.repo.InsertClip(ctx, clip)
	if err != nil {
		_ = os.Remove(path)
		return review.Clip{}, err
	}
	return stored, nil
}

// Open resolves a clip id to its metadata and an open file handle for
// range-aware streaming. The caller closes the file.
func (s *Service) Open(ctx context.Context, id int64) (review.Clip, *os.File, error) {
	clip, err := s.repo.GetClip(ctx, id)
	if err != nil {
		return review.Clip{}, nil, err
	}
	f, err := os.Open(filepath.Join(s.uploadDir, clip.StoredName))
	if err != nil {
		return review.Clip{}, nil, fmt.Errorf("video: open clip file: %w", err)
	}
	return clip, f, nil
}
