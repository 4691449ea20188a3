package main

import "miinplanner-backend/cmd/cli"

func main() {
	cli.Execute()
}
