package main

import "github.com/notargets/galpot/cmd"

func main() {
	cmd.Execute()
}
