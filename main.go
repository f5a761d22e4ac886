package main

import (
	"log"

	"github.com/ryo8073/report-gen-sub006/internal/tui"
)

func main() {
	if err := tui.Run(); err != nil {
		log.Fatal(err)
	}
}
