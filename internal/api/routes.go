package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Enrichment routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/enrich", handler.Enrich).Methods("POST")
	api.HandleFunc("/records/{symbol}", handler.GetRecord).Methods("GET")
	api.HandleFunc("/records/{symbol}/quality", handler.GetRecordQuality).Methods("GET")
	api.HandleFunc("/runs/latest", handler.GetLatestRun).Methods("GET")
	api.HandleFunc("/indicators/{symbol}/{type}", handler.GetIndicatorHistory).Methods("GET")
	api.HandleFunc("/prices/{symbol}", handler.GetPriceRange).Methods("GET")

	return r
}
