// Command groupbydemo exercises the external-memory group-by pipeline
// against a synthetic stream and reports timing and spill/merge stats.
// Grounded directly on the teacher's cmd/benchmark/main.go: generate a
// synthetic dataset, time the pipeline, print a stats banner.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/entreya/groupby"
)

func main() {
	nrPairs := int64(1_000_000)
	if len(os.Args) > 1 {
		n, err := strconv.ParseInt(os.Args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid pair count %q: %v\n", os.Args[1], err)
			os.Exit(1)
		}
		nrPairs = n
	}

	fmt.Println("================================================================")
	fmt.Println("  GROUPBY DEMO (external-memory spill-and-merge pipeline)")
	fmt.Println("================================================================")
	fmt.Printf("Pairs:    %d\n", nrPairs)

	data := groupby.NewIncrementalKeyValueIterator(nrPairs, 10_000, 7, 3, 2)

	engine := groupby.NewEngine(
		groupby.WithMaxNumFiles(64),
		groupby.WithMaxHashmapEntries(200_000),
		groupby.WithLogOutput(os.Stdout),
	)

	start := time.Now()
	result, err := engine.GroupBy(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "groupBy failed: %v\n", err)
		os.Exit(1)
	}

	var groups, totalValues int64
	for result.HasNext() {
		_, values, err := result.Next()
		if err != nil {
			fmt.Fprintf(os.Stderr, "iteration failed: %v\n", err)
			os.Exit(1)
		}
		groups++
		totalValues += int64(len(values))
	}
	elapsed := time.Since(start)

	stats := engine.Stats()
	fmt.Println("----------------------------------------------------------------")
	fmt.Printf("Groups:        %d\n", groups)
	fmt.Printf("Total values:  %d\n", totalValues)
	fmt.Printf("Spills:        %d\n", stats.Spills)
	fmt.Printf("Merge stages:  %d\n", stats.NumMergeStages)
	fmt.Printf("Final files:   %d\n", stats.NumFiles)
	fmt.Printf("Elapsed:       %s\n", elapsed)
}
