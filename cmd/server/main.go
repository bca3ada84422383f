package main

import "pulse/internal/app/server"

func main() {
	server.Run()
}
