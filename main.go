package main

import "github.com/rulehound/rulehound/cmd"

func main() {
	cmd.Execute()
}
