package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"photoshare/internal/app"
	"photoshare/internal/transport/http/middleware"
	"photoshare/internal/transport/http/response"
)

type CommentHandler struct {
	commentService *app.CommentService
}

type AddCommentRequest struct {
	Text string `json:"text" binding:"required,min=1,max=1024"`
}

func NewCommentHandler(commentService *app.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) Add(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	comment, err := h.commentService.Add(imageID, actor.ID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrImageNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "add comment failed")
		}
		return
	}
	response.OK(c, comment)
}

func (h *CommentHandler) ListByImage(c *gin.Context) {
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	limit, offset := pageParams(c)
	comments, err := h.commentService.ListByImage(imageID, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list comments failed")
		return
	}
	response.OK(c, comments)
}
