package main

import (
	"log"

	"wallet-api/internal/pkg/components"
	"wallet-api/internal/pkg/logging"
)

func main() {
	container, err := components.New()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	logging.Info("Wallet API initialized successfully", map[string]interface{}{
		"environment": container.GetConfig().Environment,
		"port":        container.GetConfig().Server.Port,
	})

	if err := container.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
