package journal

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kie/assets/internal/response"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Lister reads recent journal entries.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Handler serves the journal listing.
type Handler struct {
	entries Lister
	log     *slog.Logger
}

// NewHandler creates a new journal Handler.
func NewHandler(entries Lister, log *slog.Logger) *Handler {
	return &Handler{entries: entries, log: log}
}

type listData struct {
	Uploads []Entry `json:"uploads"`
}

// List godoc
//
//	@Summary		List recent uploads
//	@Description	Returns the most recently stored objects, newest first. Only available when the journal database is configured.
//	@Tags			uploads
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			limit	query		int	false	"Maximum entries (1-100, default 20)"
//	@Success		200		{object}	listData
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		401		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/uploads [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		response.BadRequest(w, "limit must be an integer between 1 and 100")
		return
	}

	entries, err := h.entries.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("list uploads failed", "error", err)
		response.InternalError(w)
		return
	}
	response.OK(w, listData{Uploads: entries})
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, false
	}
	return n, true
}
