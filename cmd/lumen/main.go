package main

import "github.com/lumenjournal/lumen/cmd/lumen/cmd"

func main() {
	cmd.Execute()
}
