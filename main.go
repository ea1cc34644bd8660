package main

import "github.com/bz888/murmur/cmd"

func main() {
	cmd.Execute()
}
