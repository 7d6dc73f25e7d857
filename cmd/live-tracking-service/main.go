// Package main is the entry point of live-tracking-service (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/petriluukkonentwoday/sample-sports-tracker-app/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
