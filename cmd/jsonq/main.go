// Command jsonq compiles and runs queries over JSON entity tables.
//
// Entities are declared in the configuration file; see internal/config.
//
// Usage:
//
//	jsonq sql Widget --where "Price > 10" --order "Name desc" --page 1 --size 20
//	jsonq load Widget --where "Status = 'Active'" --total
//	jsonq count Widget --where "Address.City = 'Ipoh'"
//	jsonq shell
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
