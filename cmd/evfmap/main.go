package main

import "evfmap/internal/cli"

func main() {
	cli.Execute()
}
