package profile

import (
	"errors"
	"net/http"

	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"
	"github.com/myazlifresh/foundersite/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxImageSize = 10 << 20 // 10 MB

type Handler struct {
	store *ImageStore
}

func NewHandler(store *ImageStore) *Handler {
	return &Handler{
		store: store,
	}
}

// SetupRoutes registers the public profile image route
func (handler *Handler) SetupRoutes(profileRouter *mux.Router) {
	profileRouter.HandleFunc("/image", handler.handleGetImage).Methods("GET").Name("profile-image")
}

// SetupAdminRoutes registers the image upload route, mounted behind
// the auth middleware
func (handler *Handler) SetupAdminRoutes(adminProfileRouter *mux.Router) {
	adminProfileRouter.HandleFunc("/image", handler.handleUploadImage).Methods("POST", "OPTIONS").Name("upload-profile-image")
}

func (handler *Handler) handleGetImage(w http.ResponseWriter, r *http.Request) {
	imagePath, contentType, err := handler.store.Get(r.Context())
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			http.Error(w, "profile image not found", http.StatusNotFound)
			return
		}
		log.Errorf("get profile image: %s", err)
		http.Error(w, "failed to get profile image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	http.ServeFile(w, r, imagePath)
}

func (handler *Handler) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "profileHandler.upload")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		log.Errorf("upload profile image, parse multipart form: %s", err)
		http.Error(w, "internal error or image too big", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("image")
	if err != nil {
		log.Errorf("upload profile image, form file: %s", err)
		http.Error(w, "error, image missing", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	log.Tracef("profile image upload incoming: %s [%s, %d bytes]",
		fileHeader.Filename, contentType, fileHeader.Size)

	if err := handler.store.Save(ctx, contentType, file); err != nil {
		if errors.Is(err, ErrUnsupportedImage) {
			http.Error(w, "error, unsupported image type", http.StatusUnsupportedMediaType)
			return
		}
		log.Errorf("upload profile image failed: %s", err)
		http.Error(w, "failed to upload image", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"success":true}`)
}
