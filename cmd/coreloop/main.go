package main

import "github.com/andrescamacho/coreloop-go/internal/adapters/cli"

func main() {
	cli.Execute()
}
