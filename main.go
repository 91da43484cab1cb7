package main

import (
	"log"

	"github.com/reacher-cli/reacher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
