package upload

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kie/assets/internal/response"
)

// Handler holds HTTP handlers for the upload endpoints.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler creates a new upload Handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Stores an image sent as JSON with a base64 field (data, image, base64, content, file) or as multipart/form-data with a "file" part. A JSON file inside multipart is unwrapped when it carries a base64 image and stored verbatim otherwise.
//	@Tags			uploads
//	@Accept			json
//	@Accept			mpfd
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			file	formData	file				false	"File to upload (multipart)"
//	@Success		200		{object}	Result
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		401		{object}	response.ErrorBody
//	@Failure		413		{object}	response.ErrorBody
//	@Failure		415		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Failure		504		{object}	response.ErrorBody
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Upload(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, res)
}

// GetFile godoc
//
//	@Summary		Get file metadata
//	@Description	Returns storage metadata for an object, identified by the public URL returned from /upload.
//	@Tags			uploads
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			url	query		string	true	"Public URL of the stored object"
//	@Success		200	{object}	storage.Object
//	@Failure		400	{object}	response.ErrorBody
//	@Failure		401	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/file [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		response.BadRequest(w, `Missing "url" query parameter`)
		return
	}

	obj, err := h.svc.Lookup(r.Context(), url)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, obj)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	if !errors.As(err, &e) {
		h.log.Error("unclassified upload error", "path", r.URL.Path, "error", err)
		response.InternalError(w)
		return
	}
	status := e.Kind.Status()
	if status >= http.StatusInternalServerError {
		h.log.Error("upload failed", "path", r.URL.Path, "kind", e.Kind, "error", err)
	} else {
		h.log.Debug("upload rejected", "path", r.URL.Path, "kind", e.Kind, "error", err)
	}
	response.Kinded(w, status, string(e.Kind), e.Message)
}
