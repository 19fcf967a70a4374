package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/dshills/treechunk/internal/chunker"
	"github.com/dshills/treechunk/pkg/types"
)

// ChunkRequest is the body of POST /v1/chunk
type ChunkRequest struct {
	Source   string `json:"source"`
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
}

// ChunkResponse is the body returned by POST /v1/chunk
type ChunkResponse struct {
	File     string         `json:"file"`
	Language string         `json:"language"`
	Chunks   []*types.Chunk `json:"chunks"`
}

// ReassembleRequest is the body of POST /v1/reassemble
type ReassembleRequest struct {
	Chunks []*types.Chunk `json:"chunks"`
}

// ReassembleResponse is the body returned by POST /v1/reassemble
type ReassembleResponse struct {
	Source string `json:"source"`
}

// LanguageInfo describes one supported language
type LanguageInfo struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes returned in ErrorResponse.Code
const (
	CodeBadRequest          = "bad_request"
	CodeUnsupportedLanguage = "unsupported_language"
	CodeParseFailed         = "parse_failed"
	CodeMalformedNode       = "malformed_node"
	CodeInternal            = "internal"
)

type handler struct {
	chunker *chunker.Cache
	maxBody int64
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) languages(w http.ResponseWriter, r *http.Request) {
	reg := h.chunker.Rules()

	langs := make([]LanguageInfo, 0)
	for _, name := range reg.Languages() {
		table, err := reg.Table(name)
		if err != nil {
			continue
		}
		langs = append(langs, LanguageInfo{Name: name, Extensions: table.Extensions})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"languages": langs})
}

func (h *handler) chunk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := loggerFromContext(ctx)

	var req ChunkRequest
	if !h.decode(w, r, &req) {
		return
	}

	language := req.Language
	if language == "" {
		var ok bool
		language, ok = h.chunker.Rules().LanguageForExtension(filepath.Ext(req.File))
		if !ok {
			writeError(w, http.StatusBadRequest, CodeUnsupportedLanguage,
				"language is required when it cannot be detected from file")
			return
		}
	}

	chunks, err := h.chunker.Chunk([]byte(req.Source), req.File, language)
	if err != nil {
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			logger.ErrorContext(ctx, "chunking failed", "file", req.File, "language", language, "error", err)
		}
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChunkResponse{
		File:     req.File,
		Language: language,
		Chunks:   chunks,
	})
}

func (h *handler) reassemble(w http.ResponseWriter, r *http.Request) {
	var req ReassembleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Chunks) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "chunks are required")
		return
	}

	source, err := chunker.Reassemble(req.Chunks)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ReassembleResponse{Source: source})
}

// decode reads a JSON body into v, writing an error reply on failure
func (h *handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// classify maps a chunking error to an HTTP status and error code
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrUnsupportedLanguage):
		return http.StatusBadRequest, CodeUnsupportedLanguage
	case errors.Is(err, types.ErrParse):
		return http.StatusUnprocessableEntity, CodeParseFailed
	case errors.Is(err, types.ErrMalformedNode):
		return http.StatusInternalServerError, CodeMalformedNode
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
