package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/service"
)

const (
	msgPostDeleted  = "Post has been deleted"
	msgStoryDeleted = "Story has been deleted"
)

// PostHandler serves /api/posts.
//
// HTTP:
//
//	POST   /api/posts/{category}  → create (category: videos|audios|images|stories)
//	GET    /api/posts             → every post, newest first
//	GET    /api/posts/{category}  → posts of one category
//	GET    /api/posts/{id}        → one post
//	PUT    /api/posts/{id}        → owner patch
//	DELETE /api/posts/{id}        → owner delete
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type postRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

type postPatchRequest struct {
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
	Text        *string `json:"text"`
}

func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.Create(r.Context(), userID, chi.URLParam(r, "category"), service.PostInput{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Text:        req.Text,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleList serves both the unfiltered and the per-category listing.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req postPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.Update(r.Context(), userID, chi.URLParam(r, "id"), service.PostPatch{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Text:        req.Text,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.posts.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, msgPostDeleted)
}

// StoryHandler serves /api/stories.
type StoryHandler struct {
	stories *service.StoryService
	logger  *slog.Logger
}

func NewStoryHandler(stories *service.StoryService, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{stories: stories, logger: logger}
}

type storyRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type storyPatchRequest struct {
	Title *string `json:"title"`
	Text  *string `json:"text"`
}

func (h *StoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req storyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	story, err := h.stories.Create(r.Context(), userID, service.StoryInput{Title: req.Title, Text: req.Text})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (h *StoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

// HandleGet returns the story with its comments populated.
func (h *StoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	story, err := h.stories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (h *StoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req storyPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	story, err := h.stories.Update(r.Context(), userID, chi.URLParam(r, "id"), service.StoryPatch{
		Title: req.Title,
		Text:  req.Text,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (h *StoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.stories.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, msgStoryDeleted)
}
