package main

import "github.com/MeKo-Tech/zbargo/cmd/zbarscan/cmd"

func main() {
	cmd.Execute()
}
