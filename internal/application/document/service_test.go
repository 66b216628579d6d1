package document

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hydrazin60/waterManagment-server/internal/domain"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, key, r, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockStore) UploadBase64(ctx context.Context, key, b64Data string) (string, error) {
	args := m.Called(ctx, key, b64Data)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if rc, _ := args.Get(0).(io.ReadCloser); rc != nil {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) FindByID(ctx context.Context, accountType domain.AccountType, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountType, accountID)
	if a := args.Get(0); a != nil {
		return a.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectory) Update(ctx context.Context, accountType domain.AccountType, email string, updates map[string]interface{}) error {
	args := m.Called(ctx, accountType, email, updates)
	return args.Error(0)
}

func TestAttach_UploadsAndPersistsReference(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	account := &domain.Account{AccountID: "acc-1", Email: "ram@example.com"}
	dir.On("FindByID", mock.Anything, domain.AccountBusiness, "acc-1").Return(account, nil)

	var uploadedKey string
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/jpeg").
		Run(func(args mock.Arguments) { uploadedKey = args.String(1) }).
		Return("s3://bucket/key", nil)

	var updates map[string]interface{}
	dir.On("Update", mock.Anything, domain.AccountBusiness, account.Email, mock.Anything).
		Run(func(args mock.Arguments) { updates = args.Get(3).(map[string]interface{}) }).
		Return(nil)

	doc, err := svc.Attach(context.Background(), domain.AccountBusiness, "acc-1",
		KindCitizenship, "12-345", "front.jpg", strings.NewReader("bytes"), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, "12-345", doc.CitizenshipNumber)
	assert.Equal(t, uploadedKey, doc.CitizenshipPhoto)
	assert.True(t, strings.HasPrefix(uploadedKey, "documents/acc-1/citizenship/"))
	assert.True(t, strings.HasSuffix(uploadedKey, ".jpg"))
	assert.Equal(t, doc, updates["identity_document"])
}

func TestAttach_ReplacementDeletesOldObject(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	account := &domain.Account{
		AccountID: "acc-1",
		Email:     "ram@example.com",
		IdentityDocument: &domain.IdentityDocument{
			PanNumber: "P-1",
			PanPhoto:  "documents/acc-1/pan/old.png",
		},
	}
	dir.On("FindByID", mock.Anything, domain.AccountStaff, "acc-1").Return(account, nil)
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/png").Return("s3://bucket/key", nil)
	dir.On("Update", mock.Anything, domain.AccountStaff, account.Email, mock.Anything).Return(nil)
	store.On("Delete", mock.Anything, "documents/acc-1/pan/old.png").Return(nil)

	doc, err := svc.Attach(context.Background(), domain.AccountStaff, "acc-1",
		KindPan, "P-2", "new.png", strings.NewReader("bytes"), "image/png")

	require.NoError(t, err)
	assert.Equal(t, "P-2", doc.PanNumber)
	assert.NotEqual(t, "documents/acc-1/pan/old.png", doc.PanPhoto)
	store.AssertCalled(t, "Delete", mock.Anything, "documents/acc-1/pan/old.png")
}

func TestAttachBase64_UploadsEncodedPayload(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	account := &domain.Account{AccountID: "acc-1", Email: "ram@example.com"}
	dir.On("FindByID", mock.Anything, domain.AccountBusiness, "acc-1").Return(account, nil)

	var uploadedKey string
	store.On("UploadBase64", mock.Anything, mock.Anything, "aGVsbG8=").
		Run(func(args mock.Arguments) { uploadedKey = args.String(1) }).
		Return("s3://bucket/key", nil)

	var updates map[string]interface{}
	dir.On("Update", mock.Anything, domain.AccountBusiness, account.Email, mock.Anything).
		Run(func(args mock.Arguments) { updates = args.Get(3).(map[string]interface{}) }).
		Return(nil)

	doc, err := svc.AttachBase64(context.Background(), domain.AccountBusiness, "acc-1",
		KindCitizenship, "12-345", "front.png", "aGVsbG8=")

	require.NoError(t, err)
	assert.Equal(t, uploadedKey, doc.CitizenshipPhoto)
	assert.True(t, strings.HasSuffix(uploadedKey, ".png"))
	assert.Equal(t, doc, updates["identity_document"])
}

func TestAttachBase64_BadEncodingIsValidationFailure(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	account := &domain.Account{AccountID: "acc-1", Email: "ram@example.com"}
	dir.On("FindByID", mock.Anything, domain.AccountBusiness, "acc-1").Return(account, nil)
	store.On("UploadBase64", mock.Anything, mock.Anything, "%%%not-base64%%%").
		Return("", errors.New("decode base64: illegal base64 data"))

	_, err := svc.AttachBase64(context.Background(), domain.AccountBusiness, "acc-1",
		KindCitizenship, "12-345", "front.png", "%%%not-base64%%%")

	assert.ErrorIs(t, err, domain.ErrBadRequest)
	dir.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOpen_StreamsStoredObject(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	account := &domain.Account{
		AccountID:        "acc-1",
		Email:            "ram@example.com",
		IdentityDocument: &domain.IdentityDocument{PanPhoto: "documents/acc-1/pan/k.png"},
	}
	dir.On("FindByID", mock.Anything, domain.AccountStaff, "acc-1").Return(account, nil)
	store.On("Download", mock.Anything, "documents/acc-1/pan/k.png").
		Return(io.NopCloser(strings.NewReader("photo-bytes")), nil)

	body, err := svc.Open(context.Background(), domain.AccountStaff, "acc-1", KindPan)

	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "photo-bytes", string(data))
}

func TestOpen_NothingOnFile(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	account := &domain.Account{AccountID: "acc-1", Email: "ram@example.com"}
	dir.On("FindByID", mock.Anything, domain.AccountStaff, "acc-1").Return(account, nil)

	_, err := svc.Open(context.Background(), domain.AccountStaff, "acc-1", KindCitizenship)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	store.AssertNotCalled(t, "Download", mock.Anything, mock.Anything)
}

func TestAttach_UnknownKindRejected(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	_, err := svc.Attach(context.Background(), domain.AccountStaff, "acc-1",
		DocumentKind("passport"), "n", "f.jpg", strings.NewReader(""), "image/jpeg")

	assert.ErrorIs(t, err, domain.ErrBadRequest)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAttach_MissingAccount(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	dir.On("FindByID", mock.Anything, domain.AccountBusiness, "ghost").Return(nil, nil)

	_, err := svc.Attach(context.Background(), domain.AccountBusiness, "ghost",
		KindCitizenship, "n", "f.jpg", strings.NewReader(""), "image/jpeg")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestViewURL_PresignsStoredKey(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	account := &domain.Account{
		AccountID:        "acc-1",
		Email:            "ram@example.com",
		IdentityDocument: &domain.IdentityDocument{CitizenshipPhoto: "documents/acc-1/citizenship/k.jpg"},
	}
	dir.On("FindByID", mock.Anything, domain.AccountBusiness, "acc-1").Return(account, nil)
	store.On("PresignedURL", mock.Anything, "documents/acc-1/citizenship/k.jpg", mock.Anything).
		Return("https://signed.example/k.jpg", nil)

	url, err := svc.ViewURL(context.Background(), domain.AccountBusiness, "acc-1", KindCitizenship)

	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/k.jpg", url)
}

func TestViewURL_NothingOnFile(t *testing.T) {
	store := new(mockStore)
	dir := new(mockDirectory)
	svc := NewService(ServiceDeps{Store: store, Directory: dir})

	account := &domain.Account{AccountID: "acc-1", Email: "ram@example.com"}
	dir.On("FindByID", mock.Anything, domain.AccountBusiness, "acc-1").Return(account, nil)

	_, err := svc.ViewURL(context.Background(), domain.AccountBusiness, "acc-1", KindPan)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	store.AssertNotCalled(t, "PresignedURL", mock.Anything, mock.Anything, mock.Anything)
}
