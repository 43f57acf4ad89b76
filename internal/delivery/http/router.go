package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventboard/internal/delivery/http/controllers"
)

// Middleware wraps a handler func, e.g. auth checks.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// NewRouter initializes the HTTP router with all application routes.
// requireAuth validates the Bearer token; requireAdmin additionally requires
// the admin role and must be composed after requireAuth.
func NewRouter(
	authController *controllers.AuthController,
	eventController *controllers.EventController,
	publicEventController *controllers.PublicEventController,
	adminEventController *controllers.AdminEventController,
	requestController *controllers.RequestController,
	categoryController *controllers.CategoryController,
	adminUserController *controllers.AdminUserController,
	requireAuth Middleware,
	requireAdmin Middleware,
) *http.ServeMux {
	mux := http.NewServeMux()
	admin := func(h http.HandlerFunc) http.HandlerFunc { return requireAuth(requireAdmin(h)) }

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Public
	mux.HandleFunc("GET /events", publicEventController.ListEvents)
	mux.HandleFunc("GET /events/{eventID}", publicEventController.GetEvent)
	mux.HandleFunc("GET /categories", categoryController.ListCategories)
	mux.HandleFunc("GET /categories/{categoryID}", categoryController.GetCategory)

	// Initiator
	mux.HandleFunc("POST /events", requireAuth(eventController.CreateEvent))
	mux.HandleFunc("GET /me/events", requireAuth(eventController.ListMyEvents))
	mux.HandleFunc("GET /me/events/{eventID}", requireAuth(eventController.GetMyEvent))
	mux.HandleFunc("PATCH /me/events/{eventID}", requireAuth(eventController.UpdateMyEvent))
	mux.HandleFunc("GET /me/events/{eventID}/requests", requireAuth(requestController.ListEventRequests))
	mux.HandleFunc("PATCH /me/events/{eventID}/requests", requireAuth(requestController.UpdateEventRequests))

	// Requester
	mux.HandleFunc("POST /events/{eventID}/requests", requireAuth(requestController.AddRequest))
	mux.HandleFunc("GET /me/requests", requireAuth(requestController.ListMyRequests))
	mux.HandleFunc("PATCH /me/requests/{requestID}/cancel", requireAuth(requestController.CancelRequest))

	// Admin
	mux.HandleFunc("GET /admin/events", admin(adminEventController.ListEvents))
	mux.HandleFunc("PATCH /admin/events/{eventID}", admin(adminEventController.UpdateEvent))
	mux.HandleFunc("GET /admin/users", admin(adminUserController.ListUsers))
	mux.HandleFunc("POST /admin/users", admin(adminUserController.CreateUser))
	mux.HandleFunc("DELETE /admin/users/{userID}", admin(adminUserController.DeleteUser))
	mux.HandleFunc("POST /admin/categories", admin(categoryController.CreateCategory))
	mux.HandleFunc("PATCH /admin/categories/{categoryID}", admin(categoryController.UpdateCategory))
	mux.HandleFunc("DELETE /admin/categories/{categoryID}", admin(categoryController.DeleteCategory))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
