package main

import "github.com/gwhitt/roundbook/cmd"

func main() {
	cmd.Execute()
}
