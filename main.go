package main

import "github.com/ValentinKolb/dCrate/cmd"

func main() {
	cmd.Execute()
}
