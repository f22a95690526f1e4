package main

import "docchat-be/internal/cli"

func main() {
	cli.Execute()
}
