package apiServer

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
)

// maxFileBytes bounds the plaintext accepted for integrity checks.
const maxFileBytes = 64 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVerifyPublic(w http.ResponseWriter, r *http.Request) {
	id, err := ledger.ParseRecordID(r.PathValue("recordId"))
	if err != nil {
		http.Error(w, "malformed record id", http.StatusBadRequest)
		return
	}

	report, err := s.engine.VerifyPublic(r.Context(), id)
	if err != nil {
		s.serviceError(w, "public verification failed", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleVerifyRecord(w http.ResponseWriter, r *http.Request, caller ledger.Address) {
	id, err := ledger.ParseRecordID(r.PathValue("recordId"))
	if err != nil {
		http.Error(w, "malformed record id", http.StatusBadRequest)
		return
	}

	file, err := readOptionalFile(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := s.engine.VerifyRecord(r.Context(), id, caller, file)
	if err != nil {
		s.serviceError(w, "verification failed", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, caller ledger.Address) {
	patient, err := ledger.ParseAddress(r.PathValue("patient"))
	if err != nil {
		http.Error(w, "malformed patient address", http.StatusBadRequest)
		return
	}
	// Summaries expose per-record verdicts, so callers only get their own.
	if patient != caller {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), patient)
	if err != nil {
		s.serviceError(w, "summary failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// readOptionalFile extracts the optional plaintext from a multipart
// "file" field. A non-multipart request body means no file.
func readOptionalFile(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "multipart/form-data") {
		return nil, nil
	}
	if err := r.ParseMultipartForm(maxFileBytes); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, errors.New("unreadable file field")
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, maxFileBytes))
	if err != nil {
		return nil, errors.New("failed to read file")
	}
	return payload, nil
}

func (s *Server) serviceError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ledger.ErrNetwork) || errors.Is(err, ledger.ErrConfirmationTimeout) {
		status = http.StatusBadGateway
	}
	s.log.Error(msg, "err", err)
	http.Error(w, http.StatusText(status), status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}
