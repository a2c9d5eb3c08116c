package transcribe

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/empathyai/companion/pkg/utils"
)

// maxAudioBytes bounds an uploaded recording. 20MB covers several minutes of
// uncompressed 16kHz mono WAV.
const maxAudioBytes = 20 << 20

// Transcriber turns an audio buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Handler 语音转写的HTTP处理器
type Handler struct {
	recognizer Transcriber
}

// New 创建转写处理器。recognizer 为 nil 时端点返回 503。
func New(recognizer Transcriber) *Handler {
	return &Handler{recognizer: recognizer}
}

// RegisterRoutes 注册转写路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/transcribe", h.handleTranscribe)
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.recognizer == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "transcription not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "expected multipart audio upload")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	text, err := h.recognizer.Transcribe(r.Context(), audio, header.Filename)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, "failed to transcribe audio")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"text": text})
}
