package main

import "github.com/encodeous/ripd/cmd"

func main() {
	cmd.Execute()
}
