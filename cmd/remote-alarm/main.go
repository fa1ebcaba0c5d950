package main

import "github.com/akarpushin/remote-alarm/cmd/remote-alarm/cmd"

func main() {
	cmd.Execute()
}
