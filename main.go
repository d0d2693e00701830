package main

import "extension-portal/cmd/server"

func main() {
	server.Init()
	server.Run()
}
