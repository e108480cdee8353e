package httpapi

import (
	"net/http"
	"strings"

	"hydrobill.org/internal/ids"
	"hydrobill.org/internal/store"
)

type addConnectionRequest struct {
	ConnectionType string `json:"connectionType"`
	MeterNumber    string `json:"meterNumber"`
}

type readingRequest struct {
	ConnectionID string  `json:"connectionId"`
	Reading      float64 `json:"reading"`
}

func (a *API) handleConnections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listConnections(w, r)
	case http.MethodPost:
		a.addConnection(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listConnections(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if user.Role == store.RoleAdmin {
		writeJSON(w, http.StatusOK, a.store.Connections())
		return
	}
	conns := a.store.ConnectionsForUser(user.UserID)
	if conns == nil {
		conns = []store.WaterConnection{}
	}
	writeJSON(w, http.StatusOK, conns)
}

func (a *API) addConnection(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req addConnectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ConnectionType) == "" || strings.TrimSpace(req.MeterNumber) == "" {
		writeError(w, http.StatusBadRequest, "connectionType and meterNumber are required")
		return
	}

	conn := store.NewConnection(ids.New(), user.UserID, req.ConnectionType, req.MeterNumber)
	a.store.AddConnection(conn)
	writeJSON(w, http.StatusCreated, conn)
}

func (a *API) handleReading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req readingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, ok := a.store.GetConnection(req.ConnectionID)
	if !ok {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	if conn.UserID != user.UserID && user.Role != store.RoleAdmin {
		writeError(w, http.StatusForbidden, "not your connection")
		return
	}

	updated, _ := a.store.SetCurrentReading(req.ConnectionID, req.Reading)
	a.store.Save()
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, a.store.GetConnectionStatus(id))
}
