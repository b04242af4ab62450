package main

import "github.com/tkc/taskdeck/internal/cli"

func main() {
	cli.Execute()
}
