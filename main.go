package main

import "github.com/jsreport/jsreport-designer-sub001/cmd"

func main() {
	cmd.Execute()
}
