package ws_test

import (
	"net/http"

	"github.com/alanyoungcy/fixedyield/internal/server/ws"
)

func httpHandler(hub *ws.Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.HandleWS)
	return mux
}
