package main

import "github.com/ficoreafrica/ficore/internal/cli"

func main() {
	cli.Execute()
}
