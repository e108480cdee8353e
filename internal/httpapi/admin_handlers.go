package httpapi

import (
	"net/http"
	"strings"

	"hydrobill.org/internal/store"
)

type generateBillRequest struct {
	ConnectionID string `json:"connectionId"`
}

type generateBillResponse struct {
	BillID string `json:"billId"`
	Status string `json:"status"`
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, sanitizeAll(a.store.Users()))
}

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.store.Analytics())
}

func (a *API) handleGenerateBill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	admin, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var req generateBillRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ConnectionID) == "" {
		writeError(w, http.StatusBadRequest, "connectionId is required")
		return
	}
	if _, ok := a.store.GetConnection(req.ConnectionID); !ok {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}

	billID := a.gen.Start(req.ConnectionID, admin.UserID)
	writeJSON(w, http.StatusAccepted, generateBillResponse{
		BillID: billID,
		Status: store.ProgressInProgress,
	})
}
