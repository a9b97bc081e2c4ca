package main

import "reviewflow/internal/app"

func main() {
	app.Run()
}
