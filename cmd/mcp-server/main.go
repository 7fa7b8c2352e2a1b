package main

import (
	"flag"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/inkmath/equation-solver/internal/logging"
	"github.com/inkmath/equation-solver/internal/mcpserver"
	"github.com/inkmath/equation-solver/internal/models"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	config, err := models.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	// stdout carries the protocol; logs go to stderr
	logging.Setup(config.LogLevel, config.LogJSON)

	s := mcpserver.New(config)
	if err := server.ServeStdio(s.McpServer); err != nil {
		logrus.Errorf("MCP server stopped: %v", err)
		os.Exit(1)
	}
}
