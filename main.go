package main

import "github.com/nidthish/droidrop/internal/cli"

func main() {
	cli.Execute()
}
