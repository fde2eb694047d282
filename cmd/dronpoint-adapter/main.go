package main

import "github.com/oshokin/dronpoint-adapter/cmd/dronpoint-adapter/cmd"

func main() {
	cmd.Execute()
}
