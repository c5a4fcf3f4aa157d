package main

import (
	"log"

	"object-denormalizer/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
