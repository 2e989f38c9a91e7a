package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"devduck/backend/internal/agents"
	"devduck/backend/internal/api"
	"devduck/backend/internal/routing"
)

func main() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		if parsed, err := logrus.ParseLevel(level); err == nil {
			logrus.SetLevel(parsed)
		} else {
			logrus.WithError(err).Warn("ignoring LOG_LEVEL")
		}
	}

	rules, err := routing.DefaultRules()
	if err != nil {
		logrus.Fatalf("load default routing rules: %v", err)
	}
	if path := strings.TrimSpace(os.Getenv("DEVDUCK_ROUTING_RULES")); path != "" {
		rules, err = routing.LoadRules(path)
		if err != nil {
			logrus.Fatalf("load routing rules: %v", err)
		}
		logrus.WithFields(logrus.Fields{
			"path":  path,
			"rules": len(rules.Rules),
		}).Info("loaded routing rules")
	}

	var allowedOrigins []string
	for _, origin := range strings.Split(os.Getenv("DEVDUCK_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins = append(allowedOrigins, origin)
		}
	}

	cfg := api.Config{
		Agents: agents.Config{
			Rules:          rules,
			LocalModel:     os.Getenv("LOCAL_MODEL_NAME"),
			CerebrasModel:  os.Getenv("CEREBRAS_MODEL_NAME"),
			CerebrasAPIKey: os.Getenv("CEREBRAS_API_KEY"),
		},
		DBPath:         strings.TrimSpace(os.Getenv("DEVDUCK_DB_PATH")),
		SilentDB:       true,
		AllowedOrigins: allowedOrigins,
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logrus.Infof("starting devduck backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
