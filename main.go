package main

import (
	"os"

	"supplement-scout/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		os.Exit(1)
	}
}
