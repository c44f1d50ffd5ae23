package main

import (
	"log"

	"github.com/MrSnakeDoc/onboard/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ onboard failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ onboard stopped with error: %v", err)
	}
}
