package main

import (
	"github.com/spaghettifunk/kiln/cmd"
)

func main() {
	cmd.Execute()
}
