package main

import "fmt"

func sizeString(rows, cols int) string {
	return fmt.Sprintf("%dx%d", rows, cols)
}
