// Command mangachat is a terminal client for the recommendation chatbot. It
// runs the same guided dialogue as the web app against a running server.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
