package main

import "github.com/sw33tLie/adscope/cmd"

func main() {
	cmd.Execute()
}
