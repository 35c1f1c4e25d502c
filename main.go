package main

import "thaitanloi365/go-face-redact/cmd"

func main() {
	cmd.Execute()
}
