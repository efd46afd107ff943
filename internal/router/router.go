package router

import (
	"net/http"

	"github.com/BerylCAtieno/docvault-api/internal/handlers"
	"github.com/BerylCAtieno/docvault-api/internal/middleware"
	"github.com/BerylCAtieno/docvault-api/internal/services"
	"github.com/BerylCAtieno/docvault-api/internal/utils"

	"github.com/gorilla/mux"
)

// Dependencies are the services exposed over HTTP.
type Dependencies struct {
	Documents   services.DocumentService
	Runs        handlers.RunController
	Dispatcher  handlers.CommandDispatcher
	Search      handlers.Searcher
	MaxFileSize int64
}

func NewRouter(deps Dependencies, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	docHandler := handlers.NewDocumentHandler(deps.Documents, deps.MaxFileSize, logger)
	runHandler := handlers.NewVectorizationHandler(deps.Runs, logger)
	intentHandler := handlers.NewIntentHandler(deps.Dispatcher, logger)
	searchHandler := handlers.NewSearchHandler(deps.Search, logger)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Document tree
	api.HandleFunc("/folders", docHandler.CreateFolder).Methods(http.MethodPost)
	api.HandleFunc("/documents", docHandler.ListRoot).Methods(http.MethodGet)
	api.HandleFunc("/documents/upload", docHandler.UploadFile).Methods(http.MethodPost)
	api.HandleFunc("/documents/tree", docHandler.GetTree).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", docHandler.GetNode).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", docHandler.UpdateNode).Methods(http.MethodPatch)
	api.HandleFunc("/documents/{id}", docHandler.DeleteNode).Methods(http.MethodDelete)
	api.HandleFunc("/documents/{id}/children", docHandler.ListChildren).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/contents", docHandler.GetContents).Methods(http.MethodGet)

	// Background vectorization
	api.HandleFunc("/vectorization/start", runHandler.Start).Methods(http.MethodPost)
	api.HandleFunc("/vectorization/cancel", runHandler.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/vectorization/status", runHandler.Status).Methods(http.MethodGet)

	// Commands and search
	api.HandleFunc("/intent/dispatch", intentHandler.Dispatch).Methods(http.MethodPost)
	api.HandleFunc("/intent/history", intentHandler.History).Methods(http.MethodGet)
	api.HandleFunc("/search", searchHandler.Search).Methods(http.MethodPost)

	// Wrapped around the router so preflights and unmatched paths see them too
	return middleware.Chain(r,
		middleware.Logger(logger),
		middleware.CORS(),
		middleware.Recovery(logger),
	)
}
