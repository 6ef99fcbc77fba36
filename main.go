package main

import "github.com/omnidesk/inbox-gateway/cmd"

func main() {
	cmd.Execute()
}
