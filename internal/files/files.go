// Package files is the file registry: upload metadata plus the blob store that
// holds the bytes.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"filedrop/internal/blob"
	"filedrop/internal/models"

	"github.com/sirupsen/logrus"
)

// Repository persists file records. ListFiles and SearchFiles return records
// in insertion order. GetFile and DeleteFile return models.ErrNotFound for an
// unknown id; DeleteFile hands back the record it removed.
type Repository interface {
	CreateFile(ctx context.Context, f *models.File) error
	GetFile(ctx context.Context, id int) (*models.File, error)
	GetFileByLocator(ctx context.Context, locator string) (*models.File, error)
	DeleteFile(ctx context.Context, id int) (*models.File, error)
	ListFiles(ctx context.Context) ([]models.File, error)
	SearchFiles(ctx context.Context, query string) ([]models.File, error)
}

// BlobDeleteObserver is told about every best-effort blob deletion that failed.
type BlobDeleteObserver func(err error)

type UploadInput struct {
	DisplayName      string
	Category         string
	OriginalFilename string
	UploadedBy       string
}

type Service struct {
	repo  Repository
	blobs blob.Store
	log   logrus.FieldLogger
	now   func() time.Time

	onBlobDeleteFailure BlobDeleteObserver
}

func NewService(repo Repository, blobs blob.Store, log logrus.FieldLogger) *Service {
	return &Service{
		repo:  repo,
		blobs: blobs,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) OnBlobDeleteFailure(fn BlobDeleteObserver) {
	s.onBlobDeleteFailure = fn
}

// Upload writes the bytes to the blob store and then records them.
func (s *Service) Upload(ctx context.Context, in UploadInput, r io.Reader) (*models.File, error) {
	locator, err := s.blobs.Put(ctx, in.OriginalFilename, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}

	f, err := s.Add(ctx, in, locator)
	if err != nil {
		if derr := s.blobs.Delete(ctx, locator); derr != nil {
			s.log.WithError(derr).WithField("locator", locator).Warn("failed to remove orphaned blob")
		}
		return nil, err
	}
	return f, nil
}

// Add records a file whose bytes already live at locator.
func (s *Service) Add(ctx context.Context, in UploadInput, locator string) (*models.File, error) {
	if locator == "" {
		return nil, fmt.Errorf("%w: empty storage locator", models.ErrStorageWrite)
	}

	f := &models.File{
		DisplayName:      in.DisplayName,
		Category:         in.Category,
		OriginalFilename: in.OriginalFilename,
		Locator:          locator,
		UploadedBy:       in.UploadedBy,
		UploadedAt:       s.now().UTC(),
	}
	if err := s.repo.CreateFile(ctx, f); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}

	s.log.WithFields(logrus.Fields{
		"file_id": f.ID,
		"user":    f.UploadedBy,
		"locator": f.Locator,
	}).Info("file added")
	return f, nil
}

// Delete removes the record for id and then, best effort, its bytes. A
// failure to remove the bytes is logged and otherwise ignored. Deleting an
// unknown id does nothing, so only the caller that removed the record
// touches the bytes.
func (s *Service) Delete(ctx context.Context, id int) error {
	f, err := s.repo.DeleteFile(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.blobs.Delete(ctx, f.Locator); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"file_id": id,
			"locator": f.Locator,
		}).Warn("file record deleted but its bytes could not be removed")
		if s.onBlobDeleteFailure != nil {
			s.onBlobDeleteFailure(err)
		}
	}

	s.log.WithField("file_id", id).Info("file deleted")
	return nil
}

// Search matches query case-insensitively against display name, category and
// original filename. An empty query lists everything.
func (s *Service) Search(ctx context.Context, query string) ([]models.File, error) {
	if query == "" {
		return s.repo.ListFiles(ctx)
	}
	return s.repo.SearchFiles(ctx, query)
}

func (s *Service) List(ctx context.Context) ([]models.File, error) {
	return s.repo.ListFiles(ctx)
}

// Open returns the stored bytes for locator together with the record that
// points at them. Bytes with no record, left over from a failed best-effort
// delete, are reported as models.ErrNotFound.
func (s *Service) Open(ctx context.Context, locator string) (io.ReadCloser, *models.File, error) {
	f, err := s.repo.GetFileByLocator(ctx, locator)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, locator)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}
