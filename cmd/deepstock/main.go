package main

import "github.com/quantfold/deepstock/internal/cli"

func main() {
	cli.Execute()
}
