package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/platform/httpx"
	"finitefield.org/taskboard/internal/platform/requestctx"
	"finitefield.org/taskboard/internal/services"
)

const multipartOverhead = 1 << 20

// ImageHandlers exposes image upload, download and deletion.
type ImageHandlers struct {
	images services.ImageService
}

// NewImageHandlers constructs the image handlers.
func NewImageHandlers(images services.ImageService) *ImageHandlers {
	return &ImageHandlers{images: images}
}

// Routes registers the image endpoints. Object names may contain slashes, so
// they are matched with a wildcard.
func (h *ImageHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/images", h.uploadImage)
	r.Get("/images", h.listImages)
	r.Get("/images/*", h.getImage)
	r.Delete("/images/*", h.deleteImage)
}

type imageUploadResponse struct {
	ObjectName  string `json:"objectName"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type imageDeleteResponse struct {
	Message    string `json:"message"`
	ObjectName string `json:"objectName"`
}

type imageListItem struct {
	ObjectName   string `json:"objectName"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified,omitempty"`
}

func (h *ImageHandlers) uploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.images.MaxFileSize()+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.WriteError(ctx, w, httpx.NewError("file_too_large", "file size exceeds the allowed maximum", http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request must be multipart/form-data", http.StatusBadRequest))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "No file provided", http.StatusBadRequest))
		return
	}
	defer file.Close()

	image, err := h.images.Upload(ctx, services.UploadImageCommand{
		Filename:    header.Filename,
		ContentType: partContentType(header),
		Size:        header.Size,
		Body:        file,
		Path:        r.FormValue("path"),
	})
	if err != nil {
		writeImageError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, imageUploadResponse{
		ObjectName:  image.ObjectName,
		URL:         image.URL,
		ContentType: image.ContentType,
		Size:        image.Size,
	})
}

func partContentType(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}

func (h *ImageHandlers) listImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.images.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeImageError(w, r, err)
		return
	}
	items := make([]imageListItem, 0, len(images))
	for _, img := range images {
		item := imageListItem{ObjectName: img.ObjectName, ContentType: img.ContentType, Size: img.Size}
		if !img.LastModified.IsZero() {
			item.LastModified = img.LastModified.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ImageHandlers) getImage(w http.ResponseWriter, r *http.Request) {
	download, err := h.images.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeImageError(w, r, err)
		return
	}
	defer download.Body.Close()

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if download.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(download.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, download.Body); err != nil {
		requestctx.Logger(r.Context()).Warn("image stream interrupted", zap.String("object", download.ObjectName), zap.Error(err))
	}
}

func (h *ImageHandlers) deleteImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if err := h.images.Delete(r.Context(), name); err != nil {
		writeImageError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, imageDeleteResponse{
		Message:    "Image deleted successfully",
		ObjectName: strings.TrimLeft(name, "/"),
	})
}

func writeImageError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrImageInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrImageUnsupportedType):
		httpx.WriteError(ctx, w, httpx.NewError("unsupported_type", "Invalid file type. Allowed types: "+strings.Join(services.AllowedImageTypes, ", "), http.StatusBadRequest))
	case errors.Is(err, services.ErrImageTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("file_too_large", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrImageNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("image_not_found", "Image not found", http.StatusNotFound))
	default:
		requestctx.Logger(ctx).Error("image request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("storage_error", "image storage unavailable", http.StatusBadGateway))
	}
}
