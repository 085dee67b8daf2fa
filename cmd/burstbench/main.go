package main

import "burstbench/cmd"

func main() {
	cmd.Execute()
}
