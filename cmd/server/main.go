package main

import (
	"log"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/app"
)

func main() {
	// Document parsing is pluggable; runs without a parser serve the catalog
	// read-only.
	application, err := app.New(nil)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
