package main

import "github.com/visionkit/scanbox/cmd/scanbox/cmd"

func main() {
	cmd.Execute()
}
