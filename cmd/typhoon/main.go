package main

import "github.com/pfrederiksen/typhoon/internal/cli"

func main() {
	cli.Execute()
}
