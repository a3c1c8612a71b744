package main

import (
	"fmt"
	"os"

	"github.com/itsmesamster/reduce-app/internal/app"
)

func main() {
	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
