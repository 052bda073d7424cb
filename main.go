package main

import "github.com/khanhnv2901/seca-snapshot/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
