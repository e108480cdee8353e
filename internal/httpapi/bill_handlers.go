package httpapi

import (
	"net/http"
	"strings"

	"hydrobill.org/internal/store"
)

type payBillRequest struct {
	BillID string `json:"billId"`
}

func (a *API) handleBills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if user.Role == store.RoleAdmin {
		writeJSON(w, http.StatusOK, a.store.Bills())
		return
	}
	bills := a.store.BillsForUser(user.UserID)
	if bills == nil {
		bills = []store.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (a *API) handlePayBill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req payBillRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bill, ok := a.store.GetBill(req.BillID)
	if !ok {
		writeError(w, http.StatusNotFound, "bill not found")
		return
	}
	if bill.UserID != user.UserID && user.Role != store.RoleAdmin {
		writeError(w, http.StatusForbidden, "not your bill")
		return
	}
	if bill.Status == store.BillPaid {
		writeError(w, http.StatusConflict, "bill already paid")
		return
	}

	paid, _ := a.store.MarkBillPaid(req.BillID)
	a.store.Save()
	writeJSON(w, http.StatusOK, paid)
}

func (a *API) handleBillProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	billID := strings.TrimSpace(r.URL.Query().Get("billId"))
	if billID == "" {
		writeError(w, http.StatusBadRequest, "billId query parameter is required")
		return
	}
	progress, ok := a.store.GetBillProgress(billID)
	if !ok {
		writeError(w, http.StatusNotFound, "no generation in progress for bill")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
