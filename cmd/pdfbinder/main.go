package main

import (
	"os"

	"github.com/local/pdfbinder/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
