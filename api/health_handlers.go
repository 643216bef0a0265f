package api

import "net/http"

// Health handles GET /api/health. It reports the document store
// connection so a dashboard can tell an app failure from a store
// outage; the endpoint itself always answers.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", StoreConnected: true}
	if err := a.store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.StoreConnected = false
		resp.Error = "document store unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
