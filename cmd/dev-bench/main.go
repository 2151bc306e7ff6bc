package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mit-pdos/go-flatfs/bcache"
	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/util/timed_disk"
)

// testSequence overwrites 16 blocks owned by thread tid and reads
// them back.
func testSequence(d blkdev.Device, data []byte, tid uint64) {
	for i := uint64(0); i < 16; i++ {
		bn := (tid*16 + i) % d.Size()
		d.Write(bn, data)
		d.Read(bn)
	}
	d.Barrier()
}

func mkdata(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

func client(d blkdev.Device, duration time.Duration, tid uint64) int {
	data := mkdata(common.BlockSize)
	start := time.Now()
	i := 0
	for {
		testSequence(d, data, tid)
		i++
		t := time.Now()
		elapsed := t.Sub(start)
		if elapsed >= duration {
			break
		}
	}
	return i
}

func run(d blkdev.Device, duration time.Duration, nt int) int {
	count := make(chan int)
	for i := 0; i < nt; i++ {
		go func(tid int) {
			count <- client(d, duration, uint64(tid))
		}(i)
	}
	n := 0
	for i := 0; i < nt; i++ {
		n += <-count
	}
	return n
}

func zeroDisk(d blkdev.Device) {
	zeroblock := make([]byte, common.BlockSize)
	sz := d.Size()
	for i := uint64(0); i < sz; i++ {
		d.Write(i, zeroblock)
	}
	d.Barrier()
}

func main() {
	var duration time.Duration
	var nthread int
	var diskfile string
	var cacheBlocks uint64
	var printStats bool
	flag.DurationVar(&duration, "benchtime", 10*time.Second, "time to run each iteration for")
	flag.IntVar(&nthread, "threads", 1, "number of threads to run till")
	flag.StringVar(&diskfile, "disk", "", "disk image (empty for MemDisk)")
	flag.Uint64Var(&cacheBlocks, "cache", 0, "blocks in the write-through cache")
	flag.BoolVar(&printStats, "stats", false, "print disk statistics")
	flag.Parse()
	if nthread < 1 {
		panic("invalid start")
	}

	var dev blkdev.Device
	if diskfile == "" {
		dev = blkdev.NewMemDevice(common.MAXBLOCKS)
	} else {
		d, err := blkdev.NewFileDevice(diskfile, common.MAXBLOCKS)
		if err != nil {
			panic(fmt.Errorf("could not create disk: %w", err))
		}
		dev = d
	}
	td := timed_disk.New(dev)
	var d blkdev.Device = td
	if cacheBlocks > 0 {
		d = bcache.MkBcache(td, cacheBlocks)
	}
	defer d.Close()
	zeroDisk(d)

	// warmup (skip if running for very little time, for example when using a
	// duration of 0s to run just one iteration)
	if duration > 500*time.Millisecond {
		run(d, 500*time.Millisecond, nthread)
	}
	td.ResetStats()

	count := run(d, duration, nthread)
	fmt.Printf("dev-bench: %v %v seq/sec\n", nthread, float64(count)/duration.Seconds())
	if printStats {
		td.WriteStats(os.Stdout)
	}
}
