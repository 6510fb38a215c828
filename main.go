package main

import "github.com/BasicFist/kawaimux/cmd"

func main() {
	cmd.Execute()
}
