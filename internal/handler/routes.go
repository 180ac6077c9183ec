package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/thehashton/alterun/internal/middleware"
	"github.com/thehashton/alterun/internal/session"
)

// NewRouter creates and configures a new chi router.
func NewRouter(
	codexHandler *CodexHandler,
	adminHandler *AdminHandler,
	authHandler *AuthHandler,
	seoHandler *SeoHandler,
	authzMiddleware func(http.Handler) http.Handler,
	errorMiddleware func(middleware.AppHandler) http.Handler,
	sessionManager session.Manager,
	staticFS fs.FS,
) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)
	r.Use(authzMiddleware)

	// Static assets
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	// Authentication routes
	r.Get("/auth/login", authHandler.handleLogin)
	r.Get("/auth/callback", authHandler.handleCallback)
	r.Post("/auth/logout", authHandler.handleLogout)

	// Public codex routes
	r.Method(http.MethodGet, "/", errorMiddleware(codexHandler.homeHandler))
	r.Method(http.MethodGet, "/codex", errorMiddleware(codexHandler.listHandler))
	r.Method(http.MethodGet, "/codex/{slug}", errorMiddleware(codexHandler.entryHandler))
	r.Method(http.MethodGet, "/categories", errorMiddleware(codexHandler.categoriesHandler))
	r.Get("/robots.txt", seoHandler.robotsHandler)
	r.Get("/sitemap.xml", seoHandler.sitemapHandler)

	// Admin routes. The route policies already gate these to editors; the
	// RequireUser guard keeps the authentication contract local to the
	// mutating surface.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Method(http.MethodGet, "/", errorMiddleware(adminHandler.dashboardHandler))
		r.Method(http.MethodGet, "/codex", errorMiddleware(adminHandler.entriesHandler))

		r.Method(http.MethodGet, "/codex/entries/new", errorMiddleware(adminHandler.newEntryHandler))
		r.Method(http.MethodPost, "/codex/entries/new", errorMiddleware(adminHandler.createEntryHandler))
		r.Method(http.MethodGet, "/codex/entries/{id}", errorMiddleware(adminHandler.editEntryHandler))
		r.Method(http.MethodPost, "/codex/entries/{id}", errorMiddleware(adminHandler.updateEntryHandler))
		r.Method(http.MethodPost, "/codex/entries/{id}/delete", errorMiddleware(adminHandler.deleteEntryHandler))
		r.Method(http.MethodPost, "/codex/entries/{id}/images", errorMiddleware(adminHandler.addEntryImageHandler))

		r.Method(http.MethodPost, "/codex/images/{id}", errorMiddleware(adminHandler.updateEntryImageHandler))
		r.Method(http.MethodPost, "/codex/images/{id}/delete", errorMiddleware(adminHandler.deleteEntryImageHandler))

		r.Method(http.MethodGet, "/codex/categories", errorMiddleware(adminHandler.categoriesHandler))
		r.Method(http.MethodPost, "/codex/categories", errorMiddleware(adminHandler.createCategoryHandler))
		r.Method(http.MethodGet, "/codex/categories/{id}", errorMiddleware(adminHandler.editCategoryHandler))
		r.Method(http.MethodPost, "/codex/categories/{id}", errorMiddleware(adminHandler.updateCategoryHandler))
		r.Method(http.MethodPost, "/codex/categories/{id}/delete", errorMiddleware(adminHandler.deleteCategoryHandler))

		r.Post("/upload", adminHandler.uploadHandler)
		r.Get("/export", adminHandler.exportHandler)
	})

	return r
}
