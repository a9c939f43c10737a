package agent

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/tutorly/internal/api"
	"github.com/ashureev/tutorly/internal/config"
	"github.com/ashureev/tutorly/internal/identity"
	"github.com/ashureev/tutorly/internal/imaging"
	"github.com/ashureev/tutorly/internal/tutor"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// defaultMaxRequestBodySize bounds JSON chat requests (1MB).
	defaultMaxRequestBodySize = 1 << 20
	defaultMaxMessageLength   = 2000
	defaultMaxUploadBytes     = 16 << 20
	multipartMemory           = 8 << 20
)

// Observer receives rate-limit and upload outcomes.
type Observer interface {
	ObserveRateLimited()
	ObserveImageUpload(result string)
}

type noopObserver struct{}

func (noopObserver) ObserveRateLimited()       {}
func (noopObserver) ObserveImageUpload(string) {}

// Handler handles tutoring chat requests.
type Handler struct {
	service          *Service
	broker           *Broker
	rateLimiter      *RateLimiter
	observer         Observer
	maxMessageLength int
	maxUploadBytes   int64
	allowedOrigin    string
	isDev            bool
	logger           *slog.Logger
}

// NewHandler creates a chat handler. A nil cfg selects defaults; a nil
// broker disables the event stream route.
func NewHandler(service *Service, broker *Broker, cfg *config.Config, observer Observer) *Handler {
	if observer == nil {
		observer = noopObserver{}
	}

	rateLimitRequests := 10
	rateLimitWindow := time.Minute
	h := &Handler{
		service:          service,
		broker:           broker,
		observer:         observer,
		maxMessageLength: defaultMaxMessageLength,
		maxUploadBytes:   defaultMaxUploadBytes,
		isDev:            true,
		logger:           slog.Default(),
	}
	if cfg != nil {
		rateLimitRequests = cfg.RateLimit.Requests
		rateLimitWindow = cfg.RateLimit.Window
		h.maxMessageLength = cfg.MaxMessageLength
		h.maxUploadBytes = cfg.MaxUploadBytes
		h.allowedOrigin = cfg.FrontendURL
		h.isDev = cfg.IsDevelopment()
	}
	h.rateLimiter = NewRateLimiter(rateLimitRequests, rateLimitWindow)
	return h
}

// SetLogger replaces the handler logger. A nil logger is ignored.
func (h *Handler) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// RegisterRoutes registers the tutoring routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	student := identity.StudentParam("studentID")
	r.With(student).Post("/api/chat/{studentID}/ai", h.HandleChat)
	r.With(student).Post("/api/chat/{studentID}/ai/image", h.HandleImage)
	r.With(student).Get("/ws/chat/{studentID}", h.HandleWebSocket)
	if h.broker != nil {
		r.With(student).Get("/api/chat/{studentID}/stream", h.broker.HandleStream)
	}
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
	if h.service != nil {
		if err := h.service.Close(); err != nil {
			h.logger.Warn("failed to close conversation logger", "error", err)
		}
	}
}

func (h *Handler) validateMessage(message string) error {
	return validation.Validate(message,
		validation.Required.Error("message is required"),
		validation.RuneLength(1, h.maxMessageLength).Error("message is too long"),
	)
}

func (h *Handler) allow(studentID string) bool {
	if h.rateLimiter.Allow(studentID) {
		return true
	}
	h.observer.ObserveRateLimited()
	h.logger.Warn("Tutoring rate limit exceeded", "student_id", studentID)
	return false
}

// HandleChat handles POST /api/chat/{studentID}/ai.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())
	if !h.allow(studentID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if err := h.validateMessage(req.Message); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	req.StudentID = studentID
	req.SessionID = identity.SessionIDFromContext(r.Context())
	req.Channel = ChannelHTTP
	req.RequestID = chiMiddleware.GetReqID(r.Context())

	resp, err := h.service.Chat(r.Context(), req)
	if err != nil {
		h.logger.Error("Tutoring chat failed", "student_id", studentID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	api.JSON(w, http.StatusOK, resp)
}

// HandleImage handles POST /api/chat/{studentID}/ai/image with a multipart
// "image" file and an optional "message" field.
//
//nolint:gocyclo // Upload validation branches are kept inline to preserve request flow.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())
	if !h.allow(studentID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			h.observer.ObserveImageUpload("too_large")
			api.Error(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Debug("failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "no image provided")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		api.Error(w, http.StatusBadRequest, "no image selected")
		return
	}
	if !imaging.AllowedExtension(header.Filename) {
		h.observer.ObserveImageUpload("unsupported")
		api.Error(w, http.StatusBadRequest, "invalid file type, allowed: png, jpg, jpeg, gif, bmp, webp")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read image")
		return
	}

	img, err := imaging.Normalize(raw)
	if err != nil {
		switch {
		case errors.Is(err, imaging.ErrUnsupportedType), errors.Is(err, imaging.ErrEmpty):
			h.observer.ObserveImageUpload("unsupported")
			api.Error(w, http.StatusBadRequest, "file is not a supported image")
		default:
			h.observer.ObserveImageUpload("undecodable")
			api.Error(w, http.StatusBadRequest, "could not process image")
		}
		h.logger.Warn("Rejected image upload", "student_id", studentID, "filename", header.Filename, "error", err)
		return
	}

	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		message = DefaultImagePrompt
	}
	if err := h.validateMessage(message); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.observer.ObserveImageUpload("accepted")

	resp, err := h.service.Chat(r.Context(), ChatRequest{
		Message:   message,
		StudentID: studentID,
		SessionID: identity.SessionIDFromContext(r.Context()),
		Channel:   ChannelImage,
		RequestID: chiMiddleware.GetReqID(r.Context()),
		Image:     &tutor.Image{Data: img.Data, MIMEType: img.MIMEType},
	})
	if err != nil {
		h.logger.Error("Image chat failed", "student_id", studentID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to process image")
		return
	}
	api.JSON(w, http.StatusOK, resp)
}

// isBodyTooLarge reports whether err came from an http.MaxBytesReader limit.
// The multipart reader does not always wrap the underlying error.
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
