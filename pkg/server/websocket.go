package server

import (
	"net/http"

	"github.com/NicolasHaas/gochat/pkg/netconn"
)

// WebSocketHandler serves the chat over WebSocket, one text frame per line.
// Blocked addresses are refused with 403 before the upgrade.
func (s *Server) WebSocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := netconn.RequestHost(r)
		if s.registry.IsBlocked(host) {
			s.metrics.TotalConnections.Add(1)
			s.metrics.RejectedConnections.Add(1)
			s.log.Info("websocket rejected: address blocked", "remote", host)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		if !s.beginConn() {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		defer s.wg.Done()

		conn, err := netconn.UpgradeWebSocket(w, r, s.cfg.connOptions())
		if err != nil {
			s.log.Debug("websocket upgrade failed", "remote", host, "err", err)
			return
		}
		s.ServeConn(conn)
	})
}
