package handler

import (
	"fmt"
	"net/http"
	"time"

	"tarely-backend/pkg/ai"
	"tarely-backend/pkg/calendar"
	"tarely-backend/pkg/config"
	"tarely-backend/pkg/database"
	"tarely-backend/pkg/handlers"
	"tarely-backend/pkg/mailer"
	customMiddleware "tarely-backend/pkg/middleware"
	"tarely-backend/pkg/storage"
	"tarely-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services bundles the external dependencies of the route tree so tests can
// swap in fakes.
type Services struct {
	DB        database.Store
	Completer ai.Completer
	Objects   storage.ObjectStore
	Mail      mailer.Mailer
	Google    calendar.Service
}

// DefaultServices wires the production implementations from configuration.
func DefaultServices(cfg *config.Config) *Services {
	return &Services{
		DB: database.GetShared(database.Config{
			PostgresDSN: cfg.PostgresDSN,
			UseMemoryDB: cfg.UseMemoryDB,
			Debug:       cfg.Debug,
		}),
		Completer: ai.NewClient(cfg),
		Objects:   storage.NewSupabaseStore(cfg),
		Mail:      mailer.FromConfig(cfg),
		Google:    calendar.NewGoogleService(cfg),
	}
}

// Handler is the serverless entry point: one chi router owns every endpoint.
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	NewRouter(cfg, DefaultServices(cfg)).ServeHTTP(w, r)
}

// NewRouter assembles the full route tree. Tests call it directly with a
// memory-backed Services.
func NewRouter(cfg *config.Config, svc *Services) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, svc)
	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	router.Use(customMiddleware.CORS(cfg))

	// Serverless functions are time-limited; keep a buffer below the cap.
	router.Use(middleware.Timeout(25 * time.Second))

	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(router *chi.Mux, cfg *config.Config, svc *Services) {
	authHandler := handlers.NewAuthHandler(cfg, svc.DB, svc.Mail, svc.Objects)
	workspacesHandler := handlers.NewWorkspacesHandler(cfg, svc.DB, svc.Mail)
	sectionsHandler := handlers.NewSectionsHandler(cfg, svc.DB)
	tasksHandler := handlers.NewTasksHandler(cfg, svc.DB, svc.Completer, svc.Objects)
	notesHandler := handlers.NewNotesHandler(cfg, svc.DB, svc.Completer)
	tagsHandler := handlers.NewTagsHandler(cfg, svc.DB)
	aiHandler := handlers.NewAIHandler(cfg, svc.DB, svc.Completer)
	calendarHandler := handlers.NewCalendarHandler(cfg, svc.DB, svc.Google)

	// Health check
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if err := svc.DB.HealthCheck(); err != nil {
			status = "degraded"
		}
		utils.WriteSuccessResponse(w, map[string]string{"status": status})
	})

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.ConnectionStats())
		})
		router.Get("/debug/env-check", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, map[string]interface{}{
				"jwt_secret":           cfg.JWTSecret != "",
				"postgres_dsn":         cfg.PostgresDSN != "",
				"ai_base_url":          cfg.AIBaseURL != "",
				"storage_url":          cfg.StorageURL != "",
				"google_client_id":     cfg.GoogleClientID != "",
				"google_client_secret": cfg.GoogleClientSecret != "",
				"oauth_redirect_uri":   cfg.OAuthRedirectURI,
			})
		})
	}

	router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", authHandler.GetProfile)
				r.Put("/profile", authHandler.UpdateProfile)
				r.Post("/avatar", authHandler.UploadAvatar)
				r.Post("/onboarding", authHandler.CompleteOnboarding)
				r.Delete("/account", authHandler.DeleteAccount)
			})

			r.Route("/workspaces", func(r chi.Router) {
				r.Get("/", workspacesHandler.List)
				r.Post("/", workspacesHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", workspacesHandler.Get)
					r.Put("/", workspacesHandler.Update)
					r.Delete("/", workspacesHandler.Delete)

					r.Get("/members", workspacesHandler.ListMembers)
					r.Delete("/members/{memberId}", workspacesHandler.RemoveMember)
					r.Post("/invites", workspacesHandler.InviteMember)

					r.Get("/sections", sectionsHandler.List)
					r.Post("/sections", sectionsHandler.Create)

					r.Get("/tasks", tasksHandler.List)
					r.Post("/tasks", tasksHandler.Create)
					r.Post("/tasks/bulk", tasksHandler.BulkCreate)
					r.Get("/calendar", tasksHandler.CalendarFeed)

					r.Get("/notes", notesHandler.List)
					r.Post("/notes", notesHandler.Create)
					r.Get("/folders", notesHandler.ListFolders)
					r.Post("/folders", notesHandler.CreateFolder)

					r.Get("/tags", tagsHandler.List)
					r.Post("/tags", tagsHandler.Create)
				})
			})

			r.Route("/invites", func(r chi.Router) {
				r.Get("/", workspacesHandler.ListMyInvites)
				r.Post("/{id}/respond", workspacesHandler.RespondToInvite)
			})

			r.Route("/sections", func(r chi.Router) {
				r.Put("/{id}", sectionsHandler.Update)
				r.Delete("/{id}", sectionsHandler.Delete)
			})

			r.Route("/tasks/{id}", func(r chi.Router) {
				r.Get("/", tasksHandler.Get)
				r.Put("/", tasksHandler.Update)
				r.Delete("/", tasksHandler.Delete)

				r.Get("/subtasks", tasksHandler.ListSubtasks)
				r.Post("/subtasks", tasksHandler.CreateSubtask)
				r.Post("/subtasks/generate", tasksHandler.GenerateSubtasks)

				r.Post("/tags/{tagId}", tasksHandler.AssignTag)
				r.Delete("/tags/{tagId}", tasksHandler.RemoveTag)

				r.Get("/assignees", tasksHandler.ListAssignees)
				r.Post("/assignees", tasksHandler.Assign)
				r.Delete("/assignees/{userId}", tasksHandler.Unassign)

				r.Get("/comments", tasksHandler.ListComments)
				r.Post("/comments", tasksHandler.CreateComment)

				r.Get("/attachments", tasksHandler.ListAttachments)
				r.Post("/attachments", tasksHandler.UploadAttachment)

				r.Get("/activity", tasksHandler.ListActivity)
			})

			r.Route("/subtasks", func(r chi.Router) {
				r.Put("/{id}", tasksHandler.UpdateSubtask)
				r.Delete("/{id}", tasksHandler.DeleteSubtask)
			})

			r.Delete("/comments/{id}", tasksHandler.DeleteComment)
			r.Delete("/attachments/{id}", tasksHandler.DeleteAttachment)

			r.Route("/notes/{id}", func(r chi.Router) {
				r.Get("/", notesHandler.Get)
				r.Put("/", notesHandler.Update)
				r.Delete("/", notesHandler.Delete)

				r.Post("/duplicate", notesHandler.Duplicate)
				r.Post("/move", notesHandler.Move)
				r.Post("/pin", notesHandler.TogglePin)
				r.Post("/favorite", notesHandler.ToggleFavorite)

				r.Post("/link-task", notesHandler.LinkTask)
				r.Post("/unlink-task", notesHandler.UnlinkTask)
				r.Post("/toggle-complete", notesHandler.ToggleComplete)

				r.Post("/tags/{tagId}", notesHandler.AssignTag)
				r.Delete("/tags/{tagId}", notesHandler.RemoveTag)

				r.Post("/save-template", notesHandler.SaveAsTemplate)
				r.Post("/ai", notesHandler.RunAgent)
			})

			r.Route("/folders", func(r chi.Router) {
				r.Put("/{id}", notesHandler.UpdateFolder)
				r.Delete("/{id}", notesHandler.DeleteFolder)
			})

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", notesHandler.ListTemplates)
				r.Post("/", notesHandler.CreateTemplate)
				r.Post("/{id}/apply", notesHandler.ApplyTemplate)
				r.Delete("/{id}", notesHandler.DeleteTemplate)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Put("/{id}", tagsHandler.Update)
				r.Delete("/{id}", tagsHandler.Delete)
			})

			r.Route("/ai", func(r chi.Router) {
				r.Post("/tasks", aiHandler.GenerateTasks)
				r.Post("/prompt", aiHandler.ImprovePrompt)
			})

			r.Route("/calendar", func(r chi.Router) {
				r.Post("/connect", calendarHandler.Connect)
				r.Post("/sync", calendarHandler.Sync)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
