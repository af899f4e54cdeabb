package main

import (
	"log"

	"nexuscash/services/posd"
)

func main() {
	if err := posd.Main(); err != nil {
		log.Fatalf("nexuscashd: %v", err)
	}
}
