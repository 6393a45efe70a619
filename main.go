package main

import "github.com/maxvaer/dateprobe/cmd"

func main() {
	cmd.Execute()
}
