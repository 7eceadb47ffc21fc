// Package rest exposes the HTTP API: session endpoints under /api/user and
// /api/auth, the media catalog under /api/media. Handlers translate between
// JSON and the services; every error maps to a generic status body.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mpopescu/famvault/internal/common"
	"github.com/mpopescu/famvault/internal/logging"
	"github.com/mpopescu/famvault/internal/server/models"
)

// SessionAPI is the slice of the session service the handlers use.
type SessionAPI interface {
	Authenticator
	Register(ctx context.Context, username, password string, preApproved bool) (string, error)
	Login(ctx context.Context, username, password string) (*models.Session, *models.AccountSummary, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	Logout(ctx context.Context, accessToken string) error
	Approve(ctx context.Context, accountID string) error
	PromoteToAdmin(ctx context.Context, accountID string) error
	DeleteAccount(ctx context.Context, accountID string) error
	ListPending(ctx context.Context) ([]models.AccountSummary, error)
	ListAll(ctx context.Context) ([]models.AccountSummary, error)
}

// MediaAPI is the slice of the media service the handlers use.
type MediaAPI interface {
	AddMedia(ctx context.Context, description string, persons []string, story, fileType string) (*models.Media, string, error)
	DeleteMedia(ctx context.Context, id string) error
	GetDownloadURL(ctx context.Context, storageKey string) (string, error)
	ListMedia(ctx context.Context, pageNumber, pageSize int) (*models.MediaPage, error)
	SearchByPerson(ctx context.Context, person string, pageNumber, pageSize int) (*models.MediaPage, error)
}

// Handler holds the services behind the HTTP surface.
type Handler struct {
	sessions SessionAPI
	media    MediaAPI
	log      logging.Logger
}

func NewHandler(sessions SessionAPI, media MediaAPI, log logging.Logger) *Handler {
	return &Handler{sessions: sessions, media: media, log: log}
}

// NewRouter builds the full route table.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/user/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/api/user/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh-token", h.refresh).Methods(http.MethodPost)

	protected := r.PathPrefix("").Subrouter()
	protected.Use(RequireAuth(h.sessions))
	protected.HandleFunc("/api/user/logout", h.logout).Methods(http.MethodPost)
	protected.HandleFunc("/api/media/add", h.addMedia).Methods(http.MethodPost)
	protected.HandleFunc("/api/media/list", h.listMedia).Methods(http.MethodGet)
	protected.HandleFunc("/api/media/search", h.searchMedia).Methods(http.MethodGet)
	protected.HandleFunc("/api/media/download", h.downloadMedia).Methods(http.MethodGet)

	admin := r.PathPrefix("").Subrouter()
	admin.Use(RequireAuth(h.sessions), RequireAdmin)
	admin.HandleFunc("/api/user/pending-users", h.listPending).Methods(http.MethodGet)
	admin.HandleFunc("/api/user/all", h.listAll).Methods(http.MethodGet)
	admin.HandleFunc("/api/user/approve-user", h.approve).Methods(http.MethodPost)
	admin.HandleFunc("/api/user/make-admin", h.makeAdmin).Methods(http.MethodPost)
	admin.HandleFunc("/api/user/delete-user", h.deleteUser).Methods(http.MethodPost)
	admin.HandleFunc("/api/media/delete", h.deleteMedia).Methods(http.MethodPost)

	return r
}

// --- request/response DTOs ---

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID string `json:"id"`
}

type sessionResponse struct {
	AccessToken   string                 `json:"accessToken"`
	RefreshToken  string                 `json:"refreshToken"`
	AccessExpiry  time.Time              `json:"accessExpiry"`
	RefreshExpiry time.Time              `json:"refreshExpiry"`
	User          *models.AccountSummary `json:"user,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type idRequest struct {
	ID string `json:"id"`
}

type addMediaRequest struct {
	Description string   `json:"description"`
	Persons     []string `json:"persons"`
	Story       string   `json:"story"`
	FileType    string   `json:"fileType"`
}

type mediaItem struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Persons     []string  `json:"persons"`
	Story       string    `json:"story"`
	StorageKey  string    `json:"storageKey"`
	FileType    string    `json:"fileType"`
	CreatedAt   time.Time `json:"createdAt"`
}

type addMediaResponse struct {
	Media     mediaItem `json:"media"`
	UploadURL string    `json:"uploadUrl"`
}

type mediaPageResponse struct {
	Items      []mediaItem `json:"items"`
	TotalCount int64       `json:"totalCount"`
	PageNumber int         `json:"pageNumber"`
	PageSize   int         `json:"pageSize"`
}

type downloadResponse struct {
	URL string `json:"url"`
}

// --- session endpoints ---

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorValidation)
		return
	}

	id, err := h.sessions.Register(r.Context(), req.Username, req.Password, false)
	if err != nil {
		h.fail(r.Context(), w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{ID: id})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorValidation)
		return
	}

	session, summary, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(r.Context(), w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:   session.AccessToken,
		RefreshToken:  session.RefreshToken,
		AccessExpiry:  session.AccessExpiry,
		RefreshExpiry: session.RefreshExpiry,
		User:          summary,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, common.ErrorValidation)
		return
	}

	session, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(r.Context(), w, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:   session.AccessToken,
		RefreshToken:  session.RefreshToken,
		AccessExpiry:  session.AccessExpiry,
		RefreshExpiry: session.RefreshExpiry,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), TokenFromContext(r.Context())); err != nil {
		h.fail(r.Context(), w, "logout", err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- admin endpoints ---

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.sessions.ListPending(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list pending", err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.sessions.ListAll(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, "approve", h.sessions.Approve)
}

func (h *Handler) makeAdmin(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, "make admin", h.sessions.PromoteToAdmin)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, "delete account", h.sessions.DeleteAccount)
}

func (h *Handler) accountAction(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string) error) {
	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, common.ErrorValidation)
		return
	}
	if err := fn(r.Context(), req.ID); err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- media endpoints ---

func (h *Handler) deleteMedia(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, common.ErrorValidation)
		return
	}
	if err := h.media.DeleteMedia(r.Context(), req.ID); err != nil {
		h.fail(r.Context(), w, "delete media", err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) addMedia(w http.ResponseWriter, r *http.Request) {
	var req addMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorValidation)
		return
	}

	created, uploadURL, err := h.media.AddMedia(r.Context(), req.Description, req.Persons, req.Story, req.FileType)
	if err != nil {
		h.fail(r.Context(), w, "add media", err)
		return
	}
	writeJSON(w, http.StatusCreated, addMediaResponse{Media: toMediaItem(created), UploadURL: uploadURL})
}

func (h *Handler) listMedia(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	result, err := h.media.ListMedia(r.Context(), page, size)
	if err != nil {
		h.fail(r.Context(), w, "list media", err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaPage(result))
}

func (h *Handler) searchMedia(w http.ResponseWriter, r *http.Request) {
	person := r.URL.Query().Get("person")
	if person == "" {
		writeError(w, common.ErrorValidation)
		return
	}
	page, size := pageParams(r)
	result, err := h.media.SearchByPerson(r.Context(), person, page, size)
	if err != nil {
		h.fail(r.Context(), w, "search media", err)
		return
	}
	writeJSON(w, http.StatusOK, toMediaPage(result))
}

func (h *Handler) downloadMedia(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, common.ErrorValidation)
		return
	}

	url, err := h.media.GetDownloadURL(r.Context(), key)
	if err != nil {
		h.fail(r.Context(), w, "download media", err)
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{URL: url})
}

// --- helpers ---

// fail writes the mapped error response. Only unexpected errors are logged;
// client mistakes are not log noise.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.log.Error(ctx, "request failed", "op", op, "error", err)
	}
	writeError(w, err)
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	return page, size
}

func toMediaItem(m *models.Media) mediaItem {
	return mediaItem{
		ID:          m.ID,
		Description: m.Description,
		Persons:     m.Persons,
		Story:       m.Story,
		StorageKey:  m.StorageKey,
		FileType:    m.FileType,
		CreatedAt:   m.CreatedAt,
	}
}

func toMediaPage(p *models.MediaPage) mediaPageResponse {
	items := make([]mediaItem, 0, len(p.Items))
	for _, m := range p.Items {
		items = append(items, toMediaItem(m))
	}
	return mediaPageResponse{
		Items:      items,
		TotalCount: p.TotalCount,
		PageNumber: p.PageNumber,
		PageSize:   p.PageSize,
	}
}
