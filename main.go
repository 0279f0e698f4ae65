package main

import "github.com/deploypilotorg/deploypilot/cmd"

func main() {
	cmd.Execute()
}
