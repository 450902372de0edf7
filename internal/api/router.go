package api

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", handler.Health)
	mux.HandleFunc("/webhooks/telnyx/voice", handler.Webhook)

	return otelhttp.NewHandler(mux, "receptionist")
}
