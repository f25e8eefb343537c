package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/igen-labs/cxo-survey/ai"
	"github.com/igen-labs/cxo-survey/auth"
	"github.com/igen-labs/cxo-survey/config"
	"github.com/igen-labs/cxo-survey/db"
	"github.com/igen-labs/cxo-survey/handlers"
	"github.com/igen-labs/cxo-survey/mailer"
	"github.com/igen-labs/cxo-survey/models"
	"github.com/rs/cors"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	if err := auth.InitStore(cfg.DatabaseURL, []byte(cfg.SessionKey)); err != nil {
		log.Fatalf("session store: %v", err)
	}

	h := handlers.New(conn, mailer.New(cfg.SMTP, cfg.FrontendURL), ai.New(cfg.AI), cfg)
	r := buildRouter(h, conn, cfg)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server starting on %s", addr)
	log.Fatal(http.ListenAndServe(addr, c.Handler(r)))
}

func authMiddleware(conn *gorm.DB, cfg *config.Config) mux.MiddlewareFunc {
	return auth.Middleware(conn, cfg.JWTSecret)
}

func buildRouter(h *handlers.Handler, conn *gorm.DB, cfg *config.Config) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", h.Health).Methods("GET")

	// Public auth routes.
	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/otp/send", h.LimitOTP(h.SendLoginOTP)).Methods("POST")
	authRouter.HandleFunc("/otp/verify", h.VerifyLoginOTP).Methods("POST")
	authRouter.HandleFunc("/otp/resend", h.LimitOTP(h.ResendOTP)).Methods("POST")
	authRouter.HandleFunc("/invite/{token}", h.VerifyInvite).Methods("GET")
	authRouter.HandleFunc("/signup/otp/send", h.LimitOTP(h.SendSignupOTP)).Methods("POST")
	authRouter.HandleFunc("/signup/otp/verify", h.VerifySignupOTP).Methods("POST")
	authRouter.HandleFunc("/google", h.GoogleLogin).Methods("GET")
	authRouter.HandleFunc("/google/callback", h.GoogleCallback).Methods("GET")

	me := r.PathPrefix("/api/auth/me").Subrouter()
	me.Use(authMiddleware(conn, cfg))
	me.HandleFunc("", h.Me).Methods("GET")

	// Admin console.
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(authMiddleware(conn, cfg), auth.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/dashboard", h.AdminDashboard).Methods("GET")
	admin.HandleFunc("/organizations", h.CreateOrganization).Methods("POST")
	admin.HandleFunc("/organizations", h.ListOrganizations).Methods("GET")
	admin.HandleFunc("/organizations/{id}", h.GetOrganization).Methods("GET")
	admin.HandleFunc("/organizations/{id}/resend-invite", h.ResendCEOInvite).Methods("POST")
	admin.HandleFunc("/organizations/{id}/marks", h.OrgUserMarks).Methods("GET")
	admin.HandleFunc("/templates", h.CreateTemplate).Methods("POST")
	admin.HandleFunc("/templates", h.ListTemplates).Methods("GET")
	admin.HandleFunc("/templates/{id}", h.GetTemplate).Methods("GET")
	admin.HandleFunc("/templates/{id}", h.UpdateTemplate).Methods("PUT")
	admin.HandleFunc("/templates/{id}", h.DeleteTemplate).Methods("DELETE")
	admin.HandleFunc("/invites", h.ListInvites).Methods("GET")
	admin.HandleFunc("/responses/{id}", h.GetResponse).Methods("GET")
	admin.HandleFunc("/users/{id}", h.GetUserDetail).Methods("GET")

	// CEO console. Admins may pass for support escalations.
	ceo := r.PathPrefix("/api/ceo").Subrouter()
	ceo.Use(authMiddleware(conn, cfg), auth.RequireRole(models.RoleCEO, models.RoleAdmin))
	ceo.HandleFunc("/dashboard", h.CEODashboard).Methods("GET")
	ceo.HandleFunc("/departments", h.CreateDepartment).Methods("POST")
	ceo.HandleFunc("/departments", h.ListDepartments).Methods("GET")
	ceo.HandleFunc("/departments/{id}/employees", h.DepartmentEmployees).Methods("GET")
	ceo.HandleFunc("/employees", h.ListEmployees).Methods("GET")
	ceo.HandleFunc("/employees/invite", h.InviteEmployee).Methods("POST")
	ceo.HandleFunc("/employees/invite/batch", h.BatchInvite).Methods("POST")
	ceo.HandleFunc("/employees/invite/resend", h.ResendInvite).Methods("POST")
	ceo.HandleFunc("/employees/{id}", h.DeleteEmployee).Methods("DELETE")
	ceo.HandleFunc("/templates", h.CEOListTemplates).Methods("GET")
	ceo.HandleFunc("/templates/{id}/use", h.CreateFromTemplate).Methods("POST")
	ceo.HandleFunc("/surveys", h.CreateSurvey).Methods("POST")
	ceo.HandleFunc("/surveys", h.ListSurveys).Methods("GET")
	ceo.HandleFunc("/surveys/sync-assignments", h.SyncAssignments).Methods("POST")
	ceo.HandleFunc("/surveys/{id}", h.DeleteSurvey).Methods("DELETE")
	ceo.HandleFunc("/surveys/{id}/assign", h.AssignSurvey).Methods("POST")
	ceo.HandleFunc("/surveys/{id}/analytics", h.SurveyAnalytics).Methods("GET")

	// Employee routes.
	user := r.PathPrefix("/api/user").Subrouter()
	user.Use(authMiddleware(conn, cfg),
		auth.RequireRole(models.RoleUser, models.RoleCEO, models.RoleAdmin))
	user.HandleFunc("/dashboard", h.UserDashboard).Methods("GET")
	user.HandleFunc("/surveys/{id}", h.GetSurveyToFill).Methods("GET")
	user.HandleFunc("/surveys/{id}/draft", h.SaveDraft).Methods("POST")
	user.HandleFunc("/surveys/{id}/submit", h.SubmitSurvey).Methods("POST")
	user.HandleFunc("/history", h.History).Methods("GET")

	// Shared survey routes.
	surveys := r.PathPrefix("/api/surveys").Subrouter()
	surveys.Use(authMiddleware(conn, cfg),
		auth.RequireRole(models.RoleUser, models.RoleCEO, models.RoleAdmin))
	surveys.HandleFunc("/templates", h.BrowseTemplates).Methods("GET")
	surveys.HandleFunc("/templates/{id}/clone", h.CloneTemplate).Methods("POST")

	// Analytics and reports.
	analytics := r.PathPrefix("/api/analytics").Subrouter()
	analytics.Use(authMiddleware(conn, cfg))
	analytics.Handle("/global",
		auth.RequireRole(models.RoleAdmin)(http.HandlerFunc(h.GlobalAnalytics))).Methods("GET")
	analytics.Handle("/organization",
		auth.RequireRole(models.RoleCEO, models.RoleAdmin)(http.HandlerFunc(h.OrgAnalytics))).Methods("GET")

	reports := r.PathPrefix("/api/reports").Subrouter()
	reports.Use(authMiddleware(conn, cfg), auth.RequireRole(models.RoleAdmin))
	reports.HandleFunc("/organizations/{id}", h.OrgReport).Methods("GET")
	reports.HandleFunc("/surveys/{id}", h.SurveyReport).Methods("GET")

	// Support desk. The admin console routes register first so the
	// broader /api/support prefix never shadows them.
	supportAdmin := r.PathPrefix("/api/support/admin").Subrouter()
	supportAdmin.Use(authMiddleware(conn, cfg), auth.RequireRole(models.RoleAdmin))
	supportAdmin.HandleFunc("/tickets", h.AdminListTickets).Methods("GET")
	supportAdmin.HandleFunc("/tickets/{id}", h.AdminUpdateTicket).Methods("PUT", "PATCH")

	support := r.PathPrefix("/api/support").Subrouter()
	support.Use(authMiddleware(conn, cfg),
		auth.RequireRole(models.RoleUser, models.RoleCEO, models.RoleAdmin))
	support.HandleFunc("/tickets", h.CreateTicket).Methods("POST")
	support.HandleFunc("/tickets", h.ListTickets).Methods("GET")
	support.HandleFunc("/tickets/{id}", h.GetTicket).Methods("GET")
	support.HandleFunc("/tickets/{id}/messages", h.AddMessage).Methods("POST")

	// Chatbot.
	chatbot := r.PathPrefix("/api/chatbot").Subrouter()
	chatbot.Use(authMiddleware(conn, cfg),
		auth.RequireRole(models.RoleUser, models.RoleCEO, models.RoleAdmin))
	chatbot.HandleFunc("/chat", h.Chat).Methods("POST")
	chatbot.HandleFunc("/quick-replies", h.QuickReplies).Methods("GET")

	return r
}
