package main

import (
	"os"

	"github.com/kebairia/dupback/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
