package main

import "github.com/khanhnv2901/seca-webaudit/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
