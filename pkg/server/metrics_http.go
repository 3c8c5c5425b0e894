package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NicolasHaas/gochat/pkg/model"
)

// OpsHandler returns the operator HTTP API:
//
//	GET    /metrics         Prometheus exposition
//	GET    /stats           metrics snapshot as JSON
//	GET    /healthz         liveness
//	GET    /sessions        named sessions
//	GET    /blocks          blocked addresses and the audit log
//	DELETE /blocks/{addr}   lift a block
func (s *Server) OpsHandler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/blocks", s.handleBlocks).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{addr}", s.handleUnblock).Methods(http.MethodDelete)
	return r
}

// SessionInfo is the ops view of one session.
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Address string `json:"address"`
	State   string `json:"state"`
}

// BlocksInfo is the ops view of moderation state.
type BlocksInfo struct {
	Blocked []string            `json:"blocked"`
	Audit   []model.BlockRecord `json:"audit"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := s.registry.All()
	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionInfo{
			ID:      sess.ID,
			Name:    sess.Name(),
			Role:    sess.Role().String(),
			Address: sess.RemoteAddr(),
			State:   sess.State().String(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	records, err := s.audit.ListBlocks(r.Context())
	if err != nil {
		s.log.Error("list blocks", "err", err)
		http.Error(w, "audit log unavailable", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.BlockRecord{}
	}
	writeJSON(w, http.StatusOK, BlocksInfo{
		Blocked: s.registry.Blocked(),
		Audit:   records,
	})
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["addr"]
	if !s.registry.Unblock(addr) {
		http.Error(w, "address not blocked", http.StatusNotFound)
		return
	}
	s.log.Info("address unblocked via ops API", "address", addr)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
