package main

import (
	"os"

	"thoreinstein.com/jib/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
