package main

import (
	"os"

	"github.com/harun/warden/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
