package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/studyloop/backend/internal/auth"
	"github.com/studyloop/backend/internal/database"
	"github.com/studyloop/backend/internal/difficulty"
	"github.com/studyloop/backend/internal/executor"
	"github.com/studyloop/backend/internal/generator"
	"github.com/studyloop/backend/internal/history"
	"github.com/studyloop/backend/internal/middleware"
	"github.com/studyloop/backend/internal/performance"
	"github.com/studyloop/backend/internal/questions"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Core services
	exposures := history.NewStore(db)
	tracker := history.NewTracker(exposures)
	controller := difficulty.NewController(performance.NewStore(db))
	gen := generator.NewGenerator(executor.New())
	service := questions.NewService(questions.NewStore(db), questions.NewCuratedStore(db), tracker, controller, exposures)

	// Handlers
	authHandler := auth.NewHandler(db)
	questionHandler := questions.NewHandler(service, gen)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentLearner).Methods("GET")
	protected.HandleFunc("/questions/resolve", questionHandler.Resolve).Methods("POST")
	protected.HandleFunc("/questions/generate", questionHandler.Generate).Methods("POST")
	protected.HandleFunc("/questions/worksheet", questionHandler.ExtractWorksheet).Methods("POST")
	protected.HandleFunc("/questions/exclusions", questionHandler.GetExclusions).Methods("GET")
	protected.HandleFunc("/questions/{id:[0-9]+}", questionHandler.GetQuestion).Methods("GET")
	protected.HandleFunc("/questions/{id:[0-9]+}/answer", questionHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/difficulty/recommendation", questionHandler.GetRecommendation).Methods("GET")
	protected.HandleFunc("/session/reset", questionHandler.ResetSession).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
