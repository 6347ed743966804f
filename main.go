package main

import "github.com/KaramelBytes/samreport-cli/cmd"

func main() {
	cmd.Execute()
}
