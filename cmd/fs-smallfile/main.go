package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/fs"
)

// smallfile represents one iteration of this benchmark: it creates a file,
// sizes it, writes data to it, and unlinks it.
func smallfile(fsys *fs.Fs, name string, data []byte) {
	if _, err := fsys.Create(name); err != nil {
		panic(err)
	}
	if err := fsys.Truncate(name, uint64(len(data))); err != nil {
		panic(err)
	}
	fd, err := fsys.Open(name)
	if err != nil {
		panic(err)
	}
	if err := fsys.Write(fd, 0, data); err != nil {
		panic(err)
	}
	fsys.Close(fd)
	if err := fsys.Unlink(name); err != nil {
		panic(err)
	}
}

func mkdata(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

type result struct {
	iters int
	times []time.Duration
}

func client(fsys *fs.Fs, duration time.Duration, allTimes bool, prefix string, data []byte) result {
	var times []time.Duration
	if allTimes {
		times = make([]time.Duration, 0, int(duration.Seconds()*1000))
	}
	start := time.Now()
	i := 0
	var elapsed time.Duration
	for {
		s := strconv.Itoa(i)
		before := elapsed
		smallfile(fsys, prefix+"x"+s, data)
		i++
		elapsed = time.Since(start)
		if allTimes {
			times = append(times, (elapsed - before))
		}
		if elapsed >= duration {
			return result{iters: i, times: times}
		}
	}
}

type config struct {
	image    string // in-memory device if empty
	blocks   uint64
	size     uint64 // bytes per file
	duration time.Duration
	allTimes bool // whether to record individual iteration timings
}

func mkfs(c config) *fs.Fs {
	var dev blkdev.Device
	if c.image == "" {
		dev = blkdev.NewMemDevice(c.blocks)
	} else {
		d, err := blkdev.NewFileDevice(c.image, c.blocks)
		if err != nil {
			panic(fmt.Errorf("could not open image: %v", err))
		}
		dev = d
	}
	fsys, err := fs.Mkfs(dev, 64)
	if err != nil {
		panic(err)
	}
	return fsys
}

func run(fsys *fs.Fs, c config, nt int) (elapsed time.Duration, iters int, times []time.Duration) {
	start := time.Now()
	count := make(chan result)
	data := mkdata(c.size)
	for i := 0; i < nt; i++ {
		i := i
		prefix := "d" + strconv.Itoa(i)
		go func() {
			allTimes := c.allTimes && i == 0
			count <- client(fsys, c.duration, allTimes, prefix, data)
		}()
	}
	for i := 0; i < nt; i++ {
		r := <-count
		iters += r.iters
		if r.times != nil {
			times = r.times
		}
	}
	elapsed = time.Since(start)
	return
}

func main() {
	var c config
	var start int
	var nthread int
	var timingFile string
	flag.StringVar(&c.image, "image", "", "disk image (default in memory)")
	flag.Uint64Var(&c.blocks, "blocks", common.MAXBLOCKS, "image size in blocks")
	flag.Uint64Var(&c.size, "size", 100, "bytes written per file")
	flag.DurationVar(&c.duration, "benchtime", 10*time.Second, "time to run each iteration for")
	flag.StringVar(&timingFile, "time-iters", "", "prefix for individual timing files")
	flag.IntVar(&start, "start", 1, "number of threads to start at")
	flag.IntVar(&nthread, "threads", 1, "number of threads to run till")
	opStats := flag.Bool("stats", false, "print per-operation statistics")

	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")

	flag.Parse()
	if start < 1 {
		panic("invalid start")
	}

	fsys := mkfs(c)
	defer fsys.Shutdown()

	// warmup (skip if running for very little time, for example when using a
	// duration of 0s to run just one iteration)
	if c.duration > 500*time.Millisecond {
		warm := c
		warm.duration = 500 * time.Millisecond
		warm.allTimes = false
		run(fsys, warm, nthread)
		fsys.ResetOpStats()
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			panic(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	for nt := start; nt <= nthread; nt++ {
		if timingFile != "" {
			c.allTimes = true
		}

		elapsed, count, times := run(fsys, c, nt)
		fmt.Printf("fs-smallfile: %v %0.4f file/sec\n", nt,
			float64(count)/elapsed.Seconds())
		if len(times) > 0 {
			f, err := os.Create(fmt.Sprintf("%s-%d.txt", timingFile, nt))
			if err != nil {
				panic(fmt.Errorf("could not create timing file: %v", err))
			}
			for _, t := range times {
				fmt.Fprintf(f, "%f\n", t.Seconds())
			}
			f.Close()
		}
	}

	if *opStats {
		fsys.WriteOpStats(os.Stdout)
	}
}
