package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/service"
)

// CommentHandler serves /api/comments. Every response is the parent's
// comment list, newest first.
//
// HTTP:
//
//	POST   /api/comments/posts/{postID}      GET the same path lists
//	POST   /api/comments/stories/{storyID}   GET the same path lists
//	PUT    /api/comments/{commentID}
//	DELETE /api/comments/{commentID}
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type commentRequest struct {
	Text string `json:"text"`
}

// parentFrom builds the parent reference from the route: kind is fixed per
// route, the id comes from the {parentID} parameter.
func parentFrom(r *http.Request, kind model.ContentKind) model.ParentRef {
	return model.ParentRef{Kind: kind, ID: chi.URLParam(r, "parentID")}
}

// HandleCreate returns a handler for comments on posts or on stories.
func (h *CommentHandler) HandleCreate(kind model.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())

		var req commentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		comments, err := h.comments.Create(r.Context(), userID, parentFrom(r, kind), req.Text)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, comments)
	}
}

func (h *CommentHandler) HandleList(kind model.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		comments, err := h.comments.List(r.Context(), parentFrom(r, kind))
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, comments)
	}
}

func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comments, err := h.comments.Update(r.Context(), userID, chi.URLParam(r, "commentID"), req.Text)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	comments, err := h.comments.Delete(r.Context(), userID, chi.URLParam(r, "commentID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// ReactionHandler serves PUT /api/{posts,stories,comments}/{like,dislike}/{id}.
// The body is the id list of the toggled side after the toggle.
type ReactionHandler struct {
	reactions *service.ReactionService
	logger    *slog.Logger
}

func NewReactionHandler(reactions *service.ReactionService, logger *slog.Logger) *ReactionHandler {
	return &ReactionHandler{reactions: reactions, logger: logger}
}

func (h *ReactionHandler) HandleToggle(kind model.ContentKind, reaction model.ReactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())

		res, err := h.reactions.Toggle(r.Context(), userID, kind, chi.URLParam(r, "id"), reaction)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res.Side)
	}
}
