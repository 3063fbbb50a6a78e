package cmd

import (
	"fmt"

	sim "github.com/mrcsim/mrcsim/sim"
)

// printSimStats displays replay statistics at the end of a simulate run.
func printSimStats(policy string, stats sim.CacheStats) {
	fmt.Println("=== Simulation Stats ===")
	fmt.Printf("Policy          : %s\n", policy)
	fmt.Printf("Requests        : %d\n", stats.Requests())
	fmt.Printf("Hits            : %d\n", stats.Hits)
	fmt.Printf("Misses          : %d\n", stats.Misses)
	fmt.Printf("Miss Ratio      : %.4f\n", stats.MissRatio())
	fmt.Printf("Byte Miss Ratio : %.4f\n", stats.ByteMissRatio())
}
