package main

import "github.com/arcward/infobot/cmd"

func main() {
	cmd.Execute()
}
