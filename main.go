package main

import (
	"os"

	"github.com/yahsan2/enrollctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
