// Package api provides HTTP handlers, middleware, and routing for the car preference service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CreativeUnicorns/carprefs"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1024 * 1024

// patchRequest is the body of PATCH /preferences. One action applies to every update.
type patchRequest struct {
	Action  carprefs.Action            `json:"action"`
	Updates []carprefs.AttributeUpdate `json:"updates"`
}

// preferencesResponse is the plain view of a document returned to clients.
type preferencesResponse struct {
	UserID       string          `json:"userId"`
	Preferences  map[string]any  `json:"basePreferences"`
	LastShownCar any             `json:"lastShownCar,omitempty"`
	Document     json.RawMessage `json:"document"`
}

func (s *Server) handleLoadPreferences(w http.ResponseWriter, r *http.Request) {
	doc, err := s.manager.LoadPreferences(r.Context())
	if err != nil {
		s.respondWithManagerError(w, r, "Failed to load preferences", err)
		return
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to encode preferences", err)
		return
	}
	car, _ := carprefs.LastShownCar(doc)

	s.respondWithJSON(w, r, http.StatusOK, preferencesResponse{
		UserID:       chi.URLParam(r, "userID"),
		Preferences:  doc.Preferences(),
		LastShownCar: car,
		Document:     raw,
	})
}

func (s *Server) handlePatchPreferences(w http.ResponseWriter, r *http.Request) {
	var req patchRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	var err error
	if len(req.Updates) == 1 {
		u := req.Updates[0]
		err = s.manager.SaveSingle(r.Context(), req.Action, u.AttributeValueType, u.AttributeKey, u.AttributeValue)
	} else {
		err = s.manager.SaveBatch(r.Context(), req.Action, req.Updates)
	}
	if err != nil {
		s.respondWithManagerError(w, r, "Failed to update preferences", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetPreferences(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ResetAll(r.Context()); err != nil {
		s.respondWithManagerError(w, r, "Failed to reset preferences", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	carDetails, ok := s.decodeAny(w, r)
	if !ok {
		return
	}
	if err := s.manager.RecordSearchHistory(r.Context(), chi.URLParam(r, "category"), carDetails); err != nil {
		s.respondWithManagerError(w, r, "Failed to record search history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetLastShownCar(w http.ResponseWriter, r *http.Request) {
	car, found, err := s.manager.LastShownCar(r.Context())
	if err != nil {
		s.respondWithManagerError(w, r, "Failed to load last shown car", err)
		return
	}
	if !found {
		s.respondWithError(w, r, http.StatusNotFound, "No car shown yet", nil)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, car)
}

func (s *Server) handleSetLastShownCar(w http.ResponseWriter, r *http.Request) {
	car, ok := s.decodeAny(w, r)
	if !ok {
		return
	}
	if err := s.manager.SetLastShownCar(r.Context(), car); err != nil {
		s.respondWithManagerError(w, r, "Failed to store last shown car", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeAny reads an arbitrary JSON value. It writes the error response itself.
func (s *Server) decodeAny(w http.ResponseWriter, r *http.Request) (any, bool) {
	var v any
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request payload", err)
		return nil, false
	}
	return v, true
}

// respondWithManagerError maps carprefs errors onto HTTP status codes.
func (s *Server) respondWithManagerError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, carprefs.ErrShapeMismatch):
		status = http.StatusConflict
	case errors.Is(err, carprefs.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, carprefs.ErrInvalidInput),
		errors.Is(err, carprefs.ErrMissingUserID),
		errors.Is(err, carprefs.ErrInvalidKey),
		errors.Is(err, carprefs.ErrReservedKey),
		errors.Is(err, carprefs.ErrInvalidAction),
		errors.Is(err, carprefs.ErrInvalidKind),
		errors.Is(err, carprefs.ErrInvalidValue):
		status = http.StatusBadRequest
	}
	s.respondWithError(w, r, status, message, err)
}

// respondWithError is a helper to send JSON error responses.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	resp := map[string]interface{}{
		"error": map[string]string{
			"message": message,
		},
	}
	if err != nil {
		resp["error"].(map[string]string)["details"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("API Error", "status", status, "message", message, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("API Error", "status", status, "message", message, "path", r.URL.Path, "error", err)
	}
	respondWithJSONRaw(w, status, resp)
}

// respondWithJSON is a helper to send JSON responses.
func (s *Server) respondWithJSON(w http.ResponseWriter, _ *http.Request, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"Failed to marshal response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func respondWithJSONRaw(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"Critical: Failed to marshal error response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
