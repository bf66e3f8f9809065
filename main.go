package main

import "rfm-segmentation/pkg/cli"

func main() {
	cli.Execute()
}
