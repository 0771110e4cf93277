package realtime

import (
	"context"
	"net/http"

	"alumnet/internal/access"
	"alumnet/internal/logger"
	"alumnet/internal/models"

	"nhooyr.io/websocket"
)

// Authenticator resolves the token a browser passes as ?token=.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (access.Actor, *models.UserClaims, error)
}

type Handler struct {
	hub  *Hub
	auth Authenticator
	opts *websocket.AcceptOptions
	log  *logger.Logger
}

// NewHandler returns the websocket endpoint. An empty originPatterns list
// only accepts same-origin connections.
func NewHandler(hub *Hub, auth Authenticator, originPatterns []string, log *logger.Logger) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		opts: &websocket.AcceptOptions{OriginPatterns: originPatterns},
		log:  logger.OrNop(log).With("component", "realtime"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// browsers cannot set headers on a websocket handshake
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	actor, _, err := h.auth.Authenticate(r.Context(), token)
	if err != nil || !actor.IsActive() {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, h.opts)
	if err != nil {
		// Accept already wrote the response
		h.log.Debug("websocket accept failed", "error", err)
		return
	}

	// push-only: CloseRead keeps control frames flowing and cancels ctx on disconnect
	ctx := conn.CloseRead(context.Background())
	client := h.hub.AddClient(ctx, actor.UserID, conn)
	defer h.hub.RemoveClient(client)

	h.log.Debug("websocket connected", "user_id", actor.UserID)
	<-client.ctx.Done()
}

// NewServer wraps the handler in an http.Server listening on addr.
func NewServer(addr string, h *Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	return &http.Server{Addr: addr, Handler: mux}
}
