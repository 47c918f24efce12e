package main

import (
	"os"

	"github.com/dov85/Apartment/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
