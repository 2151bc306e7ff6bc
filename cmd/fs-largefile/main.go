package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/fs"
	"github.com/mit-pdos/go-flatfs/util/timed_disk"
)

const (
	KB    uint64 = 1024
	WSIZE        = 4 * common.BlockSize
)

var FILESIZE uint64

func makefile(fsys *fs.Fs, name string, data []byte) {
	if _, err := fsys.Create(name); err != nil {
		panic(err)
	}
	if err := fsys.Truncate(name, FILESIZE); err != nil {
		panic(err)
	}
	fd, err := fsys.Open(name)
	if err != nil {
		panic(err)
	}
	for off := uint64(0); off < FILESIZE; off += WSIZE {
		n := util.Min(WSIZE, FILESIZE-off)
		if err := fsys.Write(fd, off, data[:n]); err != nil {
			panic(err)
		}
	}
	fsys.Sync()
	if err := fsys.Close(fd); err != nil {
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

func main() {
	image := flag.String("image", "", "disk image (default in memory)")
	sizeKB := flag.Uint64("size", 16, "file size (in KB)")
	deleteAfter := flag.Bool("delete", false, "delete files after running benchmark")
	diskStats := flag.Bool("stats", false, "print disk statistics")
	flag.Parse()

	var dev blkdev.Device
	if *image == "" {
		dev = blkdev.NewMemDevice(common.MAXBLOCKS)
	} else {
		d, err := blkdev.NewFileDevice(*image, common.MAXBLOCKS)
		if err != nil {
			panic(err)
		}
		dev = d
	}
	td := timed_disk.New(dev)
	fsys, err := fs.Mkfs(td, 8)
	if err != nil {
		panic(err)
	}
	defer fsys.Shutdown()

	FILESIZE = *sizeKB * KB
	data := mkdata(WSIZE)
	makefile(fsys, "large.warmup", data)
	td.ResetStats()
	start := time.Now()
	makefile(fsys, "large", data)
	elapsed := time.Now().Sub(start)
	tput := float64(FILESIZE) / float64(KB) / elapsed.Seconds()
	fmt.Printf("fs-largefile: %v KB throughput %.2f KB/s\n", FILESIZE/KB, tput)
	if *diskStats {
		td.WriteStats(os.Stdout)
	}

	if *deleteAfter {
		fsys.Unlink("large.warmup")
		fsys.Unlink("large")
	}
}
