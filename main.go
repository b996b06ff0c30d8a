package main

import "rmsh.dev/rmsh/cmd"

func main() {
	cmd.Execute()
}
