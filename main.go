package main

import "github.com/perejack/globalvisaapplication/cmd"

func main() {
	cmd.Execute()
}
