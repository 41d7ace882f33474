package main

import "privrun/cmd"

func main() {
	cmd.Execute()
}
