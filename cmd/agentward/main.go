package main

import "github.com/ppiankov/agentward/internal/cli"

func main() {
	cli.Execute()
}
