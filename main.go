package main

import (
	"log"

	"festival-pass/cmd"
	_ "festival-pass/migrations"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
