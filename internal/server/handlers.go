package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/pdfqa/internal/embeddings"
	"github.com/ziadkadry99/pdfqa/internal/parser"
	"github.com/ziadkadry99/pdfqa/internal/pipeline"
	"github.com/ziadkadry99/pdfqa/internal/registry"
	"github.com/ziadkadry99/pdfqa/internal/stream"
)

const notFoundDetail = "PDF not found. Please upload it first."

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type uploadResponse struct {
	Message    string `json:"message"`
	Path       string `json:"path"`
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
	Reused     bool   `json:"reused,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		writeDetail(w, http.StatusBadRequest, "file name is required")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		writeDetail(w, http.StatusInternalServerError, "creating upload directory: "+err.Error())
		return
	}
	staged, err := stageUpload(s.cfg.UploadDir, name, data)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "saving upload: "+err.Error())
		return
	}
	defer os.Remove(staged)

	path := filepath.Join(s.cfg.UploadDir, name)
	key := filepath.ToSlash(path)

	res, err := s.pipeline.Upload(r.Context(), key, data)
	if err != nil {
		log.Printf("server: upload %s failed: %v", key, err)
		writeDetail(w, uploadStatus(err), err.Error())
		return
	}
	// A file is only replaced once its content has been indexed.
	if err := os.Rename(staged, path); err != nil {
		writeDetail(w, http.StatusInternalServerError, "saving upload: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:    "PDF uploaded and processed successfully",
		Path:       res.Key,
		Collection: res.CollectionID,
		Chunks:     res.Chunks,
		Reused:     res.Reused,
	})
}

// stageUpload writes data to a temporary file next to its final location.
func stageUpload(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func uploadStatus(err error) int {
	var pe *parser.ParseError
	var dm *embeddings.DimensionMismatchError
	var provErr *embeddings.ProviderError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.As(err, &dm):
		return http.StatusConflict
	case errors.As(err, &provErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	key := r.FormValue("pdf_path")
	question := r.FormValue("question")
	if key == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "form field 'pdf_path' is required")
		return
	}

	started := false
	err := s.pipeline.Ask(r.Context(), key, question, func() (stream.Emitter, error) {
		em, err := stream.NewSSEEmitter(w)
		if err != nil {
			return nil, err
		}
		started = true
		return em, nil
	})
	if err == nil {
		return
	}
	if started {
		// Already reported in-band, or the client went away.
		log.Printf("server: ask %s: %v", key, err)
		return
	}

	switch {
	case errors.Is(err, registry.ErrNotRegistered):
		writeDetail(w, http.StatusNotFound, notFoundDetail)
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		writeDetail(w, http.StatusUnprocessableEntity, "form field 'question' is required")
	default:
		writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}

// wsAskRequest is the incoming WebSocket message format.
type wsAskRequest struct {
	PDFPath  string `json:"pdf_path"`
	Question string `json:"question"`
}

// handleWebSocket answers one question at a time per connection; each answer
// is a complete start..done event sequence.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	em := stream.NewWSEmitter(conn, s.cfg.WSWriteTimeout)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req wsAskRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(em, "invalid message format")
			continue
		}

		started := false
		err = s.pipeline.Ask(r.Context(), req.PDFPath, req.Question, func() (stream.Emitter, error) {
			started = true
			return em, nil
		})
		switch {
		case err == nil:
		case started:
			log.Printf("server: websocket ask %s: %v", req.PDFPath, err)
		case errors.Is(err, registry.ErrNotRegistered):
			s.sendWSError(em, notFoundDetail)
		default:
			s.sendWSError(em, err.Error())
		}
	}
}

// sendWSError reports a request that never started streaming as a single
// terminal frame.
func (s *Server) sendWSError(em *stream.WSEmitter, message string) {
	if err := em.Emit(stream.Event{Chunk: message, Error: true, Done: true}); err != nil {
		log.Printf("server: websocket write error: %v", err)
	}
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.pipeline.Documents()})
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	list, err := s.pipeline.Collections(r.Context())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("listing collections: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": list})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
