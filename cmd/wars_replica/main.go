package main

import "github.com/hexwars/replica/cmd/wars_replica/cmd"

func main() {
	cmd.Execute()
}
