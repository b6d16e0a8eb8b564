package main

import "github.com/trackspend/expense-tracker/cmd"

func main() {
	cmd.Execute()
}
