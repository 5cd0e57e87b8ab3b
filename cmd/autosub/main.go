package main

import "github.com/forPelevin/autosub/internal/cli"

func main() {
	cli.Main()
}
