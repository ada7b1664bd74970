package main

import (
	"os"

	"github.com/kacmedija/assay/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
