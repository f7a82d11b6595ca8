package main

import "github.com/frahmantamala/lead-management/cmd"

func main() {
	cmd.Execute()
}
