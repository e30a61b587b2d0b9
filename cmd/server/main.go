package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/handlers"
	"github.com/shrimpsizemoose/kardemumma/internal/observability"
)

const release = "kardemumma@1.0"

func main() {
	_ = godotenv.Load()

	service, err := app.NewService("config.toml")
	if err != nil {
		logger.Error.Fatalf("Failed to init service: %v", err)
	}
	defer service.Close()

	flush, err := observability.InitSentry(
		service.Config.Sentry.DSN,
		service.Config.Sentry.Environment,
		release,
	)
	if err != nil {
		logger.Error.Printf("Sentry init failed: %v", err)
	}
	defer flush()

	if err := service.Store.ApplyMigrations(service.Config.Database.MigrationsDir); err != nil {
		logger.Error.Fatalf("Failed to apply migrations: %v", err)
	}

	attendanceHandler := handlers.NewAttendanceHandler(service)
	gradeHandler := handlers.NewGradeHandler(service)
	progressHandler := handlers.NewProgressHandler(service)
	authHandler := handlers.NewAuthHandler(service)
	teacherHandler := handlers.NewTeacherHandler(service)
	studentHandler := handlers.NewStudentHandler(service)
	validatorHandler := handlers.NewValidatorHandler(service)

	http.HandleFunc("GET /attendance", attendanceHandler.HandleGetAttendance)
	http.HandleFunc("POST /attendance", attendanceHandler.HandleSetAttendance)

	http.HandleFunc("POST /grade-test", gradeHandler.HandleGradeTest)
	http.HandleFunc("GET /grade-test", gradeHandler.HandleGetGrades)

	http.HandleFunc("GET /progress", progressHandler.HandleGetProgress)
	http.HandleFunc("POST /progress", progressHandler.HandleUpsertProgress)

	http.HandleFunc("POST /teacher/login", authHandler.HandleTeacherLogin)
	http.HandleFunc("GET /teacher/me", authHandler.HandleTeacherMe)
	http.HandleFunc("POST /teacher/normalize-grades", teacherHandler.HandleNormalizeGrades)
	http.HandleFunc("POST /teacher/grade-reasoning", teacherHandler.HandleUpdateReasoning)
	http.HandleFunc("GET /teacher/export", teacherHandler.HandleExport)

	http.HandleFunc("POST /student/login", authHandler.HandleStudentLogin)
	http.HandleFunc("GET /student/me", authHandler.HandleStudentMe)
	http.HandleFunc("GET /student/attendance", studentHandler.HandleStudentAttendance)
	http.HandleFunc("GET /student/grades", studentHandler.HandleStudentGrades)

	http.HandleFunc("POST /validate-html", validatorHandler.HandleValidateHTML)

	http.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := service.Store.Ping(); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting kardemumma server on %s", service.Config.Server.Port)
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Kardemumma server failed: %v", err)
	}
}
