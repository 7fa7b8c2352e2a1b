package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inkmath/equation-solver/api"
	"github.com/inkmath/equation-solver/internal/backend"
	"github.com/inkmath/equation-solver/internal/logging"
	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/ocr/tesseract"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	config, err := models.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logging.Setup(config.LogLevel, config.LogJSON)

	// Create API handler
	handler := api.NewHandler(config, api.BackendFactory(backend.NewFactory(config)))
	router := handler.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.Infof("Starting Equation Solver v%s on %s", api.Version, addr)
	logrus.Infof("Recognition backend: %s (timeout %s)", config.Recognition.Backend, config.Recognition.Timeout())
	if config.Recognition.Backend == models.BackendOCR {
		logrus.Infof("Tesseract: %s", tesseract.Version())
	}
	logrus.Infof("Preprocessing strategy: %s", config.Preprocess.Strategy)
	logrus.Infof("Default AI provider: %s", config.AI.DefaultProvider)
	logrus.Info("Endpoints:")
	logrus.Infof("  POST   http://%s/api/solve                     - Solve an uploaded image", addr)
	logrus.Infof("  POST   http://%s/api/sessions                  - Create a drawing session", addr)
	logrus.Infof("  GET    http://%s/api/sessions/{id}             - Session state", addr)
	logrus.Infof("  DELETE http://%s/api/sessions/{id}             - Delete session", addr)
	logrus.Infof("  POST   http://%s/api/sessions/{id}/strokes     - Add pen strokes", addr)
	logrus.Infof("  POST   http://%s/api/sessions/{id}/solve       - Recognize and solve (?async=true)", addr)
	logrus.Infof("  POST   http://%s/api/sessions/{id}/clear       - Clear canvas and cancel", addr)
	logrus.Infof("  GET    http://%s/api/sessions/{id}/canvas.png  - Canvas preview", addr)
	logrus.Infof("  POST   http://%s/api/normalize                 - Normalize OCR text", addr)
	logrus.Infof("  POST   http://%s/api/evaluate                  - Solve a typed expression", addr)
	logrus.Infof("  POST   http://%s/api/render                    - Render LaTeX", addr)
	logrus.Infof("  GET    http://%s/health                        - Health check", addr)

	if err := server.ListenAndServe(); err != nil {
		logrus.Fatalf("Server failed: %v", err)
	}
}
