package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"twintrack/config"
	"twintrack/database"
	"twintrack/middleware"
	"twintrack/models"
)

// NewRouter wires every API route. loginLimiter may be nil to disable
// login rate limiting.
func NewRouter(cfg *config.Config, store *database.Store, loginLimiter *middleware.RateLimiter) http.Handler {
	authHandler := NewAuthHandler(cfg, store)
	projectHandler := NewProjectHandler(store)
	materialHandler := NewMaterialHandler(store)
	taskHandler := NewTaskHandler(store)
	supervisorHandler := NewSupervisorHandler(store)
	workerHandler := NewWorkerHandler(store)
	analyticsHandler := NewAnalyticsHandler(store)

	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(cfg.Verbose))
	router.Use(middleware.Prometheus)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := store.DB().DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			respond(w, http.StatusServiceUnavailable, nil, "database unavailable")
			return
		}
		respondOK(w, map[string]string{"status": "ok"}, "")
	})
	router.Handle("/metrics", promhttp.Handler())

	managers := middleware.RequireRole(models.RoleAdmin, models.RoleSupervisor)

	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if loginLimiter != nil {
				r.Use(loginLimiter.Middleware)
			}
			r.Post("/auth/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(store))

			r.Get("/auth/me", authHandler.Me)

			// Any authenticated user
			r.Get("/projects", projectHandler.List)
			r.Get("/projects/my-projects", projectHandler.MyProjects)
			r.Get("/projects/{id}", projectHandler.Get)
			r.Get("/projects/{id}/materials", projectHandler.Materials)
			r.Get("/projects/{id}/tasks", projectHandler.Tasks)
			r.Get("/projects/{id}/assignments", projectHandler.Assignments)
			r.Get("/worker/{id}/tasks", workerHandler.Tasks)
			r.Get("/dashboard/analytics", analyticsHandler.Analytics)

			r.Post("/worker/task/{taskId}", workerHandler.FinishTask)
			r.Post("/worker/task/{taskId}/remaining", workerHandler.ReportRemaining)
			r.Post("/worker/task/{taskId}/use-all", workerHandler.UseAll)
			r.Post("/worker/return", workerHandler.Return)

			// Admins and supervisors
			r.Group(func(r chi.Router) {
				r.Use(managers)

				r.Post("/projects", projectHandler.Create)
				r.Put("/projects/{id}/status", projectHandler.UpdateStatus)
				r.Post("/projects/{id}/assign-supervisor", projectHandler.AssignSupervisor)
				r.Delete("/projects/{id}/supervisors/{supervisorId}", projectHandler.RemoveSupervisor)
				r.Post("/projects/{id}/assign-worker", projectHandler.AssignWorker)

				r.Post("/material/create", materialHandler.Create)
				r.Put("/material/increase", materialHandler.Increase)
				r.Put("/material/update", materialHandler.Update)

				r.Post("/task/create", taskHandler.Create)
				r.Put("/task/{id}/status", taskHandler.UpdateStatus)
				r.Post("/task/{taskId}/assign/{workerId}", taskHandler.AssignWorker)
				r.Post("/task/{taskId}/assign-materials", taskHandler.AssignMaterials)

				r.Get("/supervisors", supervisorHandler.List)

				r.Get("/worker", workerHandler.List)
				r.Get("/worker/assigned", workerHandler.Assigned)
				r.Put("/worker/{id}/suspend", workerHandler.Suspend)
				r.Put("/worker/{id}/retain", workerHandler.Retain)
				r.Delete("/worker/tasks/remove", workerHandler.RemoveFromTasks)
			})

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Put("/supervisors/{id}/suspend", supervisorHandler.Suspend)
				r.Put("/supervisors/{id}/retain", supervisorHandler.Retain)
			})
		})
	})

	return router
}
