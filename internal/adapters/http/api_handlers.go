package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/middleware"
	"github.com/nikitalobanov12/WriteShare/internal/application"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/contextkeys"
)

// APIHandlers serves the JSON API. Every route expects SessionMiddleware to
// have attached a request session.
type APIHandlers struct {
	users      *application.UserService
	workspaces *application.WorkspaceService
	pages      *application.PageService
	posts      *application.PostService
	collab     *application.CollabService
	logger     domain.Logger
}

// NewAPIHandlers creates a new APIHandlers.
func NewAPIHandlers(
	users *application.UserService,
	workspaces *application.WorkspaceService,
	pages *application.PageService,
	posts *application.PostService,
	collab *application.CollabService,
	logger domain.Logger,
) *APIHandlers {
	return &APIHandlers{
		users:      users,
		workspaces: workspaces,
		pages:      pages,
		posts:      posts,
		collab:     collab,
		logger:     logger,
	}
}

// Register mounts every API route on mux.
func (h *APIHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/me", h.getCurrentUser)
	mux.HandleFunc("PATCH /api/users/me", h.updateProfile)

	mux.HandleFunc("GET /api/workspaces", h.listWorkspaces)
	mux.HandleFunc("POST /api/workspaces", h.createWorkspace)
	mux.HandleFunc("POST /api/workspaces/{id}/invites", withPathID(contextkeys.WorkspaceIDKey, h.inviteUser))
	mux.HandleFunc("GET /api/invites", h.listInvites)
	mux.HandleFunc("POST /api/invites/{id}/accept", h.acceptInvite)

	mux.HandleFunc("GET /api/workspaces/{id}/pages", withPathID(contextkeys.WorkspaceIDKey, h.listPages))
	mux.HandleFunc("POST /api/workspaces/{id}/pages", withPathID(contextkeys.WorkspaceIDKey, h.createPage))
	mux.HandleFunc("GET /api/pages/{id}", withPathID(contextkeys.PageIDKey, h.getPage))
	mux.HandleFunc("PATCH /api/pages/{id}", withPathID(contextkeys.PageIDKey, h.updatePage))
	mux.HandleFunc("PUT /api/pages/{id}/crdt", withPathID(contextkeys.PageIDKey, h.saveCRDTState))
	mux.HandleFunc("DELETE /api/pages/{id}", withPathID(contextkeys.PageIDKey, h.archivePage))

	mux.HandleFunc("POST /api/posts", h.createPost)
	mux.HandleFunc("GET /api/posts/latest", h.latestPost)
	mux.HandleFunc("GET /api/posts", h.listPosts)
	mux.HandleFunc("DELETE /api/posts/{id}", h.deletePost)

	mux.HandleFunc("POST /api/collab/auth", h.authorizeCollab)
}

// withPathID copies the {id} path value into ctx under key for log correlation.
func withPathID(key any, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(context.WithValue(r.Context(), key, r.PathValue("id"))))
	}
}

type updateProfileRequest struct {
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

type createWorkspaceRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

type createPageRequest struct {
	Title    string  `json:"title"`
	ParentID *string `json:"parentId"`
	Emoji    *string `json:"emoji"`
}

type crdtStateRequest struct {
	State []byte `json:"state"`
}

type crdtStateResponse struct {
	Saved bool `json:"saved"`
}

type createPostRequest struct {
	Name string `json:"name"`
}

type collabAuthRequest struct {
	Room string `json:"room"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// reply writes v with status, or the mapped error when err is set.
func (h *APIHandlers) reply(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respond(w, r, h.logger, status, v)
}

func (h *APIHandlers) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Current(r.Context(), middleware.RequestSessionFrom(r.Context()))
	h.reply(w, r, http.StatusOK, user, err)
}

func (h *APIHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), middleware.RequestSessionFrom(r.Context()), req.Name, req.Image)
	h.reply(w, r, http.StatusOK, user, err)
}

func (h *APIHandlers) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := h.workspaces.ListWorkspaces(r.Context(), middleware.RequestSessionFrom(r.Context()))
	h.reply(w, r, http.StatusOK, list, err)
}

func (h *APIHandlers) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	ws, err := h.workspaces.CreateWorkspace(r.Context(), middleware.RequestSessionFrom(r.Context()), req.Name, req.Description)
	h.reply(w, r, http.StatusCreated, ws, err)
}

func (h *APIHandlers) inviteUser(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	inv, err := h.workspaces.InviteUser(r.Context(), middleware.RequestSessionFrom(r.Context()), r.PathValue("id"), req.Email)
	h.reply(w, r, http.StatusCreated, inv, err)
}

func (h *APIHandlers) listInvites(w http.ResponseWriter, r *http.Request) {
	list, err := h.workspaces.ListInvites(r.Context(), middleware.RequestSessionFrom(r.Context()))
	h.reply(w, r, http.StatusOK, list, err)
}

func (h *APIHandlers) acceptInvite(w http.ResponseWriter, r *http.Request) {
	err := h.workspaces.AcceptInvite(r.Context(), middleware.RequestSessionFrom(r.Context()), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, successResponse{Success: true}, err)
}

func (h *APIHandlers) listPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.pages.ListPages(r.Context(), middleware.RequestSessionFrom(r.Context()), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, pages, err)
}

func (h *APIHandlers) createPage(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	page, err := h.pages.CreatePage(r.Context(), middleware.RequestSessionFrom(r.Context()), r.PathValue("id"),
		application.CreatePageInput{Title: req.Title, ParentID: req.ParentID, Emoji: req.Emoji})
	h.reply(w, r, http.StatusCreated, page, err)
}

func (h *APIHandlers) getPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.pages.GetPage(r.Context(), middleware.RequestSessionFrom(r.Context()), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, page, err)
}

func (h *APIHandlers) updatePage(w http.ResponseWriter, r *http.Request) {
	var update domain.PageUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	page, err := h.pages.UpdatePage(r.Context(), middleware.RequestSessionFrom(r.Context()), r.PathValue("id"), update)
	h.reply(w, r, http.StatusOK, page, err)
}

func (h *APIHandlers) saveCRDTState(w http.ResponseWriter, r *http.Request) {
	var req crdtStateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	saved, err := h.pages.SaveCRDTState(r.Context(), middleware.RequestSessionFrom(r.Context()), r.PathValue("id"), req.State)
	status := http.StatusOK
	if !saved {
		status = http.StatusAccepted
	}
	h.reply(w, r, status, crdtStateResponse{Saved: saved}, err)
}

func (h *APIHandlers) archivePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.pages.ArchivePage(r.Context(), middleware.RequestSessionFrom(r.Context()), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, page, err)
}

func (h *APIHandlers) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	post, err := h.posts.CreatePost(r.Context(), middleware.RequestSessionFrom(r.Context()), req.Name)
	h.reply(w, r, http.StatusCreated, post, err)
}

func (h *APIHandlers) latestPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.LatestPost(r.Context(), middleware.RequestSessionFrom(r.Context()))
	h.reply(w, r, http.StatusOK, post, err)
}

func (h *APIHandlers) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPosts(r.Context(), middleware.RequestSessionFrom(r.Context()))
	h.reply(w, r, http.StatusOK, posts, err)
}

func (h *APIHandlers) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, r, h.logger, fmt.Errorf("%w: post id must be an integer", domain.ErrInvalidInput))
		return
	}
	if err := h.posts.DeletePost(r.Context(), middleware.RequestSessionFrom(r.Context()), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) authorizeCollab(w http.ResponseWriter, r *http.Request) {
	var req collabAuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	grant, err := h.collab.Authorize(r.Context(), middleware.RequestSessionFrom(r.Context()), req.Room)
	h.reply(w, r, http.StatusOK, grant, err)
}
