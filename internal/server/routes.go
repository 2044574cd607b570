package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (task status + log stream)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - uploads and music generation
	mux.HandleFunc("/api/upload-images", s.app.UploadHandler.UploadImagesHandler) // POST
	mux.HandleFunc("/api/generate-music", s.app.TaskHandler.GenerateMusicHandler) // POST
	mux.HandleFunc("/api/task-status/", s.app.TaskHandler.TaskStatusHandler)      // GET /{id}
	mux.HandleFunc("/api/tasks", s.app.TaskHandler.ListTasksHandler)              // GET
	mux.HandleFunc("/api/task/", s.app.TaskHandler.DeleteTaskHandler)             // DELETE /{id}
	mux.HandleFunc("/api/cleanup-files", s.app.TaskHandler.CleanupFilesHandler)   // POST

	// Provider callback (payload stored for diagnostics)
	mux.HandleFunc("/api/suno-callback/", s.app.TaskHandler.ProviderCallbackHandler) // POST /{id}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
