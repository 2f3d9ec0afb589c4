// Package main is the wahba command line tool. It solves and differentiates batches of
// quaternion attitude problems read as JSON.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
