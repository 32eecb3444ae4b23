package main

import "github.com/kamusis/medclass/cmd"

func main() {
	cmd.Execute()
}
