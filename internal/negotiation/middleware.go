package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Middleware rejects requests whose Client-Agent header is malformed (400)
// or announces a version below minVersion (426). The parsed agent is stored
// in the request context for handlers.
func Middleware(minVersion string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(ClientAgentHeader)
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			agent, err := ParseClientAgent(header)
			if err != nil {
				logger.Warn("invalid Client-Agent header",
					slog.String("header", header),
					slog.String("error", err.Error()))
				writeNegotiationError(w, http.StatusBadRequest, ClientAgentInvalid,
					"Invalid Client-Agent header: "+err.Error())
				return
			}

			if err := CheckVersion(agent.Version, minVersion); err != nil {
				var verErr *VersionError
				if errors.As(err, &verErr) {
					logger.Info("client version rejected",
						slog.String("client", agent.Name),
						slog.String("version", agent.Version),
						slog.String("min_version", minVersion))
					writeNegotiationError(w, http.StatusUpgradeRequired, verErr.Code, verErr.Message)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ClientAgentContextKey, agent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isExemptPath returns true for infrastructure paths.
func isExemptPath(path string) bool {
	return path == "/health" || path == "/healthz"
}

// writeNegotiationError writes the standard error envelope.
func writeNegotiationError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}

// GetClientAgent retrieves the parsed Client-Agent from request context.
// ok is false when the request carried no header or the path is exempt.
func GetClientAgent(ctx context.Context) (ClientAgent, bool) {
	agent, ok := ctx.Value(ClientAgentContextKey).(ClientAgent)
	return agent, ok
}
