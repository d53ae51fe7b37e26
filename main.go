package main

import "github.com/RichardJRL/pocketmagstopdf/cmd"

func main() {
	cmd.Execute()
}
