package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/fs"
)

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
var nfiles = flag.Int("files", 20, "names in the root directory")

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}
	PLookup()
}

func Lookup(fsys *fs.Fs, name string) {
	inum, err := fsys.Lookup(name)
	if err != nil {
		panic(err)
	}
	if _, err := fsys.Stat(inum); err != nil {
		panic(err)
	}
}

// parallel runs f on nt goroutines against a fresh file system and
// sums their counts.
func parallel(nt int, f func(fsys *fs.Fs, i int) int) int {
	fsys, err := fs.Mkfs(blkdev.NewMemDevice(common.MAXBLOCKS), uint32(*nfiles+nt+1))
	if err != nil {
		panic(err)
	}
	defer fsys.Shutdown()
	for i := 0; i < *nfiles; i++ {
		if _, err := fsys.Create("f" + strconv.Itoa(i)); err != nil {
			panic(err)
		}
	}
	count := make(chan int)
	for i := 0; i < nt; i++ {
		go func(i int) {
			count <- f(fsys, i)
		}(i)
	}
	n := 0
	for i := 0; i < nt; i++ {
		n += <-count
	}
	return n
}

func PLookup() {
	const N = 1 * time.Second
	const NTHREAD = 4
	for i := 1; i <= NTHREAD; i++ {
		res := parallel(i, func(fsys *fs.Fs, tid int) int {
			name := "x" + strconv.Itoa(tid)
			if _, err := fsys.Create(name); err != nil {
				panic(err)
			}
			start := time.Now()
			n := 0
			for {
				Lookup(fsys, name)
				n++
				if time.Since(start) >= N {
					break
				}
			}
			return n
		})
		fmt.Printf("Lookup: %d file in %d usec with %d threads\n",
			res, N.Nanoseconds()/1e3, i)
	}
}
