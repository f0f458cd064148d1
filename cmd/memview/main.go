// memview prints summary statistics of a .replaymemory file.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"recurrent-dqn/internal/replay"
)

func main() {
	path := flag.String("file", "", "path to a .replaymemory file")
	flag.Parse()
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: memview -file <path>")
		os.Exit(2)
	}

	// Inspection only, so the capacity bound is irrelevant.
	memory, err := replay.NewMemory(math.MaxInt32, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := memory.Load(*path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var (
		rewardSum float64
		positive  int
		negative  int
		shortest  = math.MaxInt32
		longest   int
	)
	for i := 0; i < memory.Len(); i++ {
		ep := memory.Episode(i)
		if len(ep) < shortest {
			shortest = len(ep)
		}
		if len(ep) > longest {
			longest = len(ep)
		}
		for _, t := range ep {
			rewardSum += float64(t.Reward)
			switch {
			case t.Reward > 0:
				positive++
			case t.Reward < 0:
				negative++
			}
		}
	}

	fmt.Printf("episodes:      %d\n", memory.Len())
	fmt.Printf("transitions:   %d\n", memory.Size())
	if memory.Len() > 0 {
		fmt.Printf("episode len:   min %d / max %d / avg %.1f\n",
			shortest, longest, float64(memory.Size())/float64(memory.Len()))
	}
	fmt.Printf("reward sum:    %.2f\n", rewardSum)
	fmt.Printf("reward +/-:    %d / %d\n", positive, negative)
}
