package handlers

import (
	"github.com/gorilla/mux"
)

// API groups the /api/v1 handlers
type API struct {
	Tasks     *TaskHandler
	Schedule  *ScheduleHandler
	Snapshots *SnapshotHandler
	Settings  *SettingsHandler
}

// Register mounts every handler on api, which should already carry the
// /api/v1 prefix. aiMiddleware wraps only the routes that call the AI provider.
func (a API) Register(api *mux.Router, aiMiddleware ...mux.MiddlewareFunc) {
	aiRouter := api.PathPrefix("/schedule").Subrouter()
	aiRouter.Use(aiMiddleware...)
	a.Schedule.RegisterAIRoutes(aiRouter)

	a.Schedule.RegisterRoutes(api.PathPrefix("/schedule").Subrouter())
	a.Tasks.RegisterRoutes(api.PathPrefix("/tasks").Subrouter())
	a.Snapshots.RegisterRoutes(api.PathPrefix("/snapshots").Subrouter())
	a.Settings.RegisterRoutes(api)
}
