package main

import "shophub/cmd/console/command"

func main() {
	command.Execute()
}
