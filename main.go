package main

import "github.com/theirongolddev/londongap/cmd"

func main() {
	cmd.Execute()
}
