package main

import "github.com/forPelevin/annoset/internal/cli"

func main() { cli.Main() }
