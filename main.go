package main

import "github.com/auxroom/auxroom/internal/cli"

func main() {
	cli.Execute()
}
