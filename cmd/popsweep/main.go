package main

import "popsweep/internal/cli"

func main() {
	cli.Execute()
}
