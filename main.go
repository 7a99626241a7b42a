package main

import (
	"github.com/sirupsen/logrus"

	"github.com/inferly/content-tags/app"
)

func main() {
	if err := app.SetupAndRunServer(); err != nil {
		logrus.Fatal(err)
	}
}
