package httpapi

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"photodrop/internal/server/access"
	"photodrop/internal/server/models"
	"photodrop/internal/server/services"

	"github.com/gin-gonic/gin"
)

// PhotoAPI is the slice of the photo service the handlers need.
type PhotoAPI interface {
	Upload(ctx context.Context, ownerID string, in services.UploadInput) (*models.Photo, error)
	List(ctx context.Context, viewer access.Viewer, p services.ListParams) ([]*models.Photo, int64, error)
	Get(ctx context.Context, viewer access.Viewer, id string) (*models.Photo, error)
	Update(ctx context.Context, ownerID, id string, upd models.PhotoUpdate) (*models.Photo, error)
	Delete(ctx context.Context, ownerID, id string) error
	Nearby(ctx context.Context, viewer access.Viewer, lat, lng, radiusKm float64, limit int) ([]*models.Photo, error)
	DownloadURL(ctx context.Context, photo *models.Photo) string
}

// PhotoHandler exposes the /photos endpoints.
type PhotoHandler struct {
	photos PhotoAPI
}

func NewPhotoHandler(photos PhotoAPI) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

func (h *PhotoHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "file is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "cannot read file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "cannot read file"})
		return
	}

	in := services.UploadInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
		Title:       formString(c, "title"),
		Description: formString(c, "description"),
		Address:     formString(c, "address"),
	}

	if in.Lat, err = formFloat(c, "lat"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "lat must be a number"})
		return
	}
	if in.Lng, err = formFloat(c, "lng"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "lng must be a number"})
		return
	}
	if in.AccuracyM, err = formFloat(c, "accuracy_m"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "accuracy_m must be a number"})
		return
	}

	if v := c.PostForm("visibility"); v != "" {
		vis := models.Visibility(strings.ToLower(v))
		in.Visibility = &vis
	}
	if v := c.PostForm("taken_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Detail: "taken_at must be an RFC 3339 timestamp"})
			return
		}
		in.TakenAt = &t
	}

	photo, err := h.photos.Upload(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPhotoResponse(c.Request.Context(), photo, h.photos.DownloadURL))
}

func (h *PhotoHandler) List(c *gin.Context) {
	params := services.ListParams{}

	var err error
	if params.Skip, err = queryInt(c, "skip", 0); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "skip must be an integer"})
		return
	}
	if params.Limit, err = queryInt(c, "limit", 0); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "limit must be an integer"})
		return
	}
	if v := c.Query("visibility"); v != "" {
		vis := models.Visibility(strings.ToLower(v))
		params.Visibility = &vis
	}
	if v := c.Query("user_id"); v != "" {
		params.OwnerID = &v
	}

	items, total, err := h.photos.List(c.Request.Context(), viewerFrom(c), params)
	if err != nil {
		writeError(c, err)
		return
	}

	skip, limit := params.Skip, params.Limit
	if limit == 0 {
		limit = 100
	}
	c.JSON(http.StatusOK, paginatedResponse{
		Items:   toPhotoResponses(c.Request.Context(), items, h.photos.DownloadURL),
		Total:   total,
		Skip:    skip,
		Limit:   limit,
		HasNext: int64(skip+limit) < total,
	})
}

func (h *PhotoHandler) Get(c *gin.Context) {
	photo, err := h.photos.Get(c.Request.Context(), viewerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPhotoResponse(c.Request.Context(), photo, h.photos.DownloadURL))
}

type photoUpdateRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility"`
	Address     *string `json:"address"`
}

func (h *PhotoHandler) Update(c *gin.Context) {
	var req photoUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}

	upd := models.PhotoUpdate{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
	}
	if req.Visibility != nil {
		vis := models.Visibility(strings.ToLower(*req.Visibility))
		upd.Visibility = &vis
	}

	photo, err := h.photos.Update(c.Request.Context(), currentUser(c).ID, c.Param("id"), upd)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPhotoResponse(c.Request.Context(), photo, h.photos.DownloadURL))
}

func (h *PhotoHandler) Delete(c *gin.Context) {
	if err := h.photos.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "photo deleted"})
}

func (h *PhotoHandler) Nearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "lat is required and must be a number"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "lng is required and must be a number"})
		return
	}

	radiusKm := 1.0
	if v := c.Query("radius_km"); v != "" {
		if radiusKm, err = strconv.ParseFloat(v, 64); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Detail: "radius_km must be a number"})
			return
		}
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "limit must be an integer"})
		return
	}

	items, err := h.photos.Nearby(c.Request.Context(), viewerFrom(c), lat, lng, radiusKm, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPhotoResponses(c.Request.Context(), items, h.photos.DownloadURL))
}

func formString(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok && v != "" {
		return &v
	}
	return nil
}

func formFloat(c *gin.Context, key string) (*float64, error) {
	v, ok := c.GetPostForm(key)
	if !ok || v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
