package main

import "github.com/pfrederiksen/high-lakes/internal/cli"

func main() {
	cli.Execute()
}
