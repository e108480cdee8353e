package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"hydrobill.org/internal/billing"
	"hydrobill.org/internal/obs"
	"hydrobill.org/internal/store"
)

// API is the HTTP layer over the record store. Routes mirror the legacy
// system's endpoint surface.
type API struct {
	mux     *http.ServeMux
	store   *store.Store
	gen     *billing.Generator
	log     *zap.Logger
	version string

	rateBurst  int
	ratePerSec int
}

// New wires the routes. Store outcomes translate to transport codes
// here: a false result becomes 409/400, an absent one 404 or 401.
// rateBurst and ratePerSec bound the per-IP token bucket.
func New(st *store.Store, gen *billing.Generator, log *zap.Logger, version string, rateBurst, ratePerSec int) *API {
	a := &API{
		mux:        http.NewServeMux(),
		store:      st,
		gen:        gen,
		log:        log,
		version:    version,
		rateBurst:  rateBurst,
		ratePerSec: ratePerSec,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/login", a.handleLogin)
	a.mux.HandleFunc("/api/register", a.handleRegister)
	a.mux.HandleFunc("/api/logout", a.handleLogout)
	a.mux.HandleFunc("/api/user", a.handleCurrentUser)

	a.mux.HandleFunc("/api/connections", a.handleConnections)
	a.mux.HandleFunc("/api/connections/reading", a.handleReading)
	a.mux.HandleFunc("/api/connections/status", a.handleConnectionStatus)

	a.mux.HandleFunc("/api/bills", a.handleBills)
	a.mux.HandleFunc("/api/bills/pay", a.handlePayBill)

	a.mux.HandleFunc("/api/admin/users", a.handleAdminUsers)
	a.mux.HandleFunc("/api/admin/analytics", a.handleAnalytics)
	a.mux.HandleFunc("/api/admin/generate-bill", a.handleGenerateBill)
	a.mux.HandleFunc("/api/bill-progress", a.handleBillProgress)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = Logging(a.log, h)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "hydrobill-api",
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// sanitize strips the stored password before a user record leaves the
// service.
func sanitize(u store.User) store.User {
	u.Password = ""
	return u
}

func sanitizeAll(users []store.User) []store.User {
	out := make([]store.User, len(users))
	for i, u := range users {
		out[i] = sanitize(u)
	}
	return out
}
