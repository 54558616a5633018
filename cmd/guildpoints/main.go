package main

import "github.com/guildnet/guildpoints/internal/cli"

func main() {
	cli.Execute()
}
