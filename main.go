package main

import "pic/cmd"

func main() {
	cmd.Execute()
}
