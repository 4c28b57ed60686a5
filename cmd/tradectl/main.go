package main

import "github.com/disgoorg/tradebot/cmd"

func main() {
	cmd.Execute()
}
