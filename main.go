package main

import (
	"log"

	"github.com/campustransit/dispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
