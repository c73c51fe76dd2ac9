package main

import "github.com/papapumpkin/scoreline/cmd"

func main() {
	cmd.Execute()
}
