package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"photoshare/internal/app"
	"photoshare/internal/model"
	"photoshare/internal/transport/http/middleware"
	"photoshare/internal/transport/http/response"
)

type ImageHandler struct {
	imageService *app.ImageService
}

type UpdateTitleRequest struct {
	Title string `json:"title" binding:"required,min=3,max=128"`
}

type AddTagRequest struct {
	Tag string `json:"tag" binding:"required,min=3,max=64"`
}

func NewImageHandler(imageService *app.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

func (h *ImageHandler) Upload(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	title := c.PostForm("title")
	tag := c.PostForm("tag")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open file failed")
		return
	}
	defer file.Close()

	image, err := h.imageService.Upload(c.Request.Context(), app.UploadInput{
		Reader:   file,
		Size:     fileHeader.Size,
		Filename: fileHeader.Filename,
		Title:    title,
		OwnerID:  actor.ID,
		Tag:      tag,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrFileTooLarge):
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, err.Error())
		case errors.Is(err, app.ErrUnsupportedType):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedType, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed")
		}
		return
	}

	c.JSON(http.StatusCreated, response.APIResponse{
		Code:    response.CodeOK,
		Message: "ok",
		Data:    imageView(image),
	})
}

func (h *ImageHandler) List(c *gin.Context) {
	limit, offset := pageParams(c)
	images, err := h.imageService.ListAll(limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list images failed")
		return
	}
	response.OK(c, imageViews(images))
}

func (h *ImageHandler) ListMine(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	limit, offset := pageParams(c)
	images, err := h.imageService.ListByOwner(actor.ID, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list images failed")
		return
	}
	response.OK(c, imageViews(images))
}

func (h *ImageHandler) ListByTag(c *gin.Context) {
	tag := c.Param("name")
	limit, offset := pageParams(c)
	images, err := h.imageService.ListByTag(tag, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list images failed")
		return
	}
	response.OK(c, imageViews(images))
}

func (h *ImageHandler) Get(c *gin.Context) {
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	image, err := h.imageService.Get(imageID)
	if err != nil {
		if errors.Is(err, app.ErrImageNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get image failed")
		return
	}
	response.OK(c, imageView(image))
}

func (h *ImageHandler) Download(c *gin.Context) {
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	rc, image, err := h.imageService.Download(c.Request.Context(), imageID)
	if err != nil {
		if errors.Is(err, app.ErrImageNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "download failed")
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", image.StoredName))
	c.DataFromReader(http.StatusOK, image.Size, image.MimeType, rc, nil)
}

func (h *ImageHandler) UpdateTitle(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	var req UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	image, err := h.imageService.UpdateTitle(imageID, req.Title, actor)
	if err != nil {
		respondImageError(c, err, "update image failed")
		return
	}
	response.OK(c, imageView(image))
}

func (h *ImageHandler) Delete(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	if err := h.imageService.Delete(c.Request.Context(), imageID, actor); err != nil {
		respondImageError(c, err, "delete image failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ImageHandler) AddTag(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	var req AddTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	image, err := h.imageService.AddTag(imageID, req.Tag, actor)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrTagLimitReached):
			response.Error(c, http.StatusTooManyRequests, response.CodeTagLimitReached, err.Error())
		default:
			respondImageError(c, err, "add tag failed")
		}
		return
	}
	response.OK(c, imageView(image))
}

func respondImageError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrImageNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func imageIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid image id")
		return 0, false
	}
	return uint(id), true
}

func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

func imageView(image *model.Image) gin.H {
	tags := make([]string, 0, len(image.Tags))
	for _, t := range image.Tags {
		tags = append(tags, t.Name)
	}
	view := gin.H{
		"id":         image.ID,
		"title":      image.Title,
		"size":       image.Size,
		"mime_type":  image.MimeType,
		"count_tags": image.CountTags,
		"tags":       tags,
		"created_at": image.CreatedAt,
		"updated_at": image.UpdatedAt,
	}
	if image.Owner != nil {
		view["owner"] = userView(image.Owner)
	} else {
		view["owner_id"] = image.OwnerID
	}
	return view
}

func imageViews(images []model.Image) []gin.H {
	views := make([]gin.H, 0, len(images))
	for i := range images {
		views = append(views, imageView(&images[i]))
	}
	return views
}
