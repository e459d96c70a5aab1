package main

import "github.com/A91A1214/Build-Payment-Gateway/cmd"

func main() {
	cmd.Execute()
}
