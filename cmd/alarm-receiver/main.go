package main

import "github.com/oshokin/dronpoint-adapter/cmd/alarm-receiver/cmd"

func main() {
	cmd.Execute()
}
