package main

import cmd "github.com/rohmanhakim/nps-explorer/internal/cli"

func main() {
	cmd.Execute()
}
