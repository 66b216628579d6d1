package document

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/hydrazin60/waterManagment-server/internal/domain"
	"github.com/hydrazin60/waterManagment-server/internal/pkg/id"
)

// DocumentKind names the two KYC documents an account can attach.
type DocumentKind string

const (
	KindCitizenship DocumentKind = "citizenship"
	KindPan         DocumentKind = "pan"
)

func (k DocumentKind) valid() bool {
	return k == KindCitizenship || k == KindPan
}

// objectStore is the blob side; the implementation streams to S3.
type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// identityDirectory is the account side; only lookup and partial update are
// needed here.
type identityDirectory interface {
	FindByID(ctx context.Context, accountType domain.AccountType, accountID string) (*domain.Account, error)
	Update(ctx context.Context, accountType domain.AccountType, email string, updates map[string]interface{}) error
}

// Service attaches identity documents to accounts: the file goes to the
// object store, the key goes on the account record.
type Service interface {
	Attach(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind, number, filename string, r io.Reader, contentType string) (*domain.IdentityDocument, error)
	AttachBase64(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind, number, filename, b64Data string) (*domain.IdentityDocument, error)
	Open(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind) (io.ReadCloser, error)
	ViewURL(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind) (string, error)
}

type service struct {
	store     objectStore
	directory identityDirectory
	urlTTL    time.Duration
}

type ServiceDeps struct {
	Store     objectStore
	Directory identityDirectory
}

func NewService(deps ServiceDeps) Service {
	return &service{store: deps.Store, directory: deps.Directory, urlTTL: 15 * time.Minute}
}

// Attach uploads the photo and persists the document reference. A re-upload
// replaces the previous photo for that kind; the old object is removed after
// the record points at the new one.
func (s *service) Attach(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind, number, filename string, r io.Reader, contentType string) (*domain.IdentityDocument, error) {
	a, err := s.lookup(ctx, accountType, accountID, kind)
	if err != nil {
		return nil, err
	}

	key := objectKey(accountID, kind, filename)
	if _, err := s.store.Upload(ctx, key, r, contentType); err != nil {
		return nil, err
	}
	return s.persist(ctx, accountType, a, kind, number, key)
}

// AttachBase64 is the JSON-friendly variant: the photo arrives base64-encoded
// in the request body instead of as a multipart stream.
func (s *service) AttachBase64(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind, number, filename, b64Data string) (*domain.IdentityDocument, error) {
	a, err := s.lookup(ctx, accountType, accountID, kind)
	if err != nil {
		return nil, err
	}

	key := objectKey(accountID, kind, filename)
	if _, err := s.store.UploadBase64(ctx, key, b64Data); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	return s.persist(ctx, accountType, a, kind, number, key)
}

// Open streams the stored photo back to the caller.
func (s *service) Open(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind) (io.ReadCloser, error) {
	key, err := s.resolveKey(ctx, accountType, accountID, kind)
	if err != nil {
		return nil, err
	}
	return s.store.Download(ctx, key)
}

func (s *service) lookup(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind) (*domain.Account, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("unknown document kind %q: %w", kind, domain.ErrBadRequest)
	}
	a, err := s.directory.FindByID(ctx, accountType, accountID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return a, nil
}

// persist writes the new document reference on the account record, then
// removes the superseded object.
func (s *service) persist(ctx context.Context, accountType domain.AccountType, a *domain.Account, kind DocumentKind, number, key string) (*domain.IdentityDocument, error) {
	doc := a.IdentityDocument
	if doc == nil {
		doc = &domain.IdentityDocument{}
	}
	var oldKey string
	switch kind {
	case KindCitizenship:
		oldKey = doc.CitizenshipPhoto
		doc.CitizenshipNumber = number
		doc.CitizenshipPhoto = key
	case KindPan:
		oldKey = doc.PanPhoto
		doc.PanNumber = number
		doc.PanPhoto = key
	}

	if err := s.directory.Update(ctx, accountType, a.Email, map[string]interface{}{
		"identity_document": doc,
	}); err != nil {
		return nil, err
	}

	if oldKey != "" && oldKey != key {
		if err := s.store.Delete(ctx, oldKey); err != nil {
			// Orphaned object only; the record already points at the new key.
			return doc, nil
		}
	}
	return doc, nil
}

// ViewURL returns a short-lived presigned URL for the stored photo.
func (s *service) ViewURL(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind) (string, error) {
	key, err := s.resolveKey(ctx, accountType, accountID, kind)
	if err != nil {
		return "", err
	}
	return s.store.PresignedURL(ctx, key, s.urlTTL)
}

// resolveKey finds the stored object key for the account's document of the
// given kind.
func (s *service) resolveKey(ctx context.Context, accountType domain.AccountType, accountID string, kind DocumentKind) (string, error) {
	a, err := s.lookup(ctx, accountType, accountID, kind)
	if err != nil {
		return "", err
	}
	if a.IdentityDocument == nil {
		return "", fmt.Errorf("no document on file: %w", domain.ErrNotFound)
	}

	key := a.IdentityDocument.CitizenshipPhoto
	if kind == KindPan {
		key = a.IdentityDocument.PanPhoto
	}
	if key == "" {
		return "", fmt.Errorf("no document on file: %w", domain.ErrNotFound)
	}
	return key, nil
}

func objectKey(accountID string, kind DocumentKind, filename string) string {
	return fmt.Sprintf("documents/%s/%s/%s%s", accountID, kind, id.New(), path.Ext(filename))
}
