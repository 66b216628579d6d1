package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hydrazin60/waterManagment-server/internal/application/document"
	"github.com/hydrazin60/waterManagment-server/internal/domain"
	"github.com/hydrazin60/waterManagment-server/internal/transport/http/middleware"
)

const maxDocumentSize = 10 << 20 // 10 MiB

// AccountHandler handles account-scoped endpoints beyond the auth lifecycle.
type AccountHandler struct {
	documents document.Service
}

func NewAccountHandler(documents document.Service) *AccountHandler {
	return &AccountHandler{documents: documents}
}

// UploadDocument attaches an identity document to the caller's own account.
// Multipart form fields: kind, number, file.
func (h *AccountHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	kind := document.DocumentKind(r.FormValue("kind"))
	number := r.FormValue("number")

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.documents.Attach(r.Context(),
		domain.AccountType(claims.AccountType), claims.AccountID,
		kind, number, header.Filename, file, contentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message  string                   `json:"message"`
		Document *domain.IdentityDocument `json:"document"`
	}{Message: "document uploaded", Document: doc})
}

// UploadDocumentBase64 accepts the document photo as base64 JSON, the shape
// non-multipart clients send.
func (h *AccountHandler) UploadDocumentBase64(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Kind     string `json:"kind"`
		Number   string `json:"number"`
		Filename string `json:"filename"`
		Data     string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Data == "" {
		writeError(w, http.StatusBadRequest, "kind, filename and base64 data are required")
		return
	}

	doc, err := h.documents.AttachBase64(r.Context(),
		domain.AccountType(claims.AccountType), claims.AccountID,
		document.DocumentKind(req.Kind), req.Number, req.Filename, req.Data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message  string                   `json:"message"`
		Document *domain.IdentityDocument `json:"document"`
	}{Message: "document uploaded", Document: doc})
}

// DownloadDocument streams the stored photo back through the API.
func (h *AccountHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kind := document.DocumentKind(chi.URLParam(r, "kind"))
	body, err := h.documents.Open(r.Context(),
		domain.AccountType(claims.AccountType), claims.AccountID, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

// DocumentURL answers a short-lived download link for the caller's stored
// document.
func (h *AccountHandler) DocumentURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kind := document.DocumentKind(chi.URLParam(r, "kind"))
	url, err := h.documents.ViewURL(r.Context(),
		domain.AccountType(claims.AccountType), claims.AccountID, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		URL string `json:"url"`
	}{URL: url})
}
