package main

import "rental/cmd"

func main() {
	cmd.Execute()
}
