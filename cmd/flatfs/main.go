package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/mit-pdos/go-journal/util"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-flatfs/bcache"
	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/fs"
	"github.com/mit-pdos/go-flatfs/util/timed_disk"
)

func main() {
	app := &cli.App{
		Name:  appName,
		Usage: "manipulate a flat file system image",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Usage: "path to the disk image"},
			&cli.Uint64Flag{Name: "blocks", Usage: "size of the image in 256-byte blocks"},
			&cli.Uint64Flag{Name: "cache", Usage: "blocks to cache in memory"},
			&cli.Uint64Flag{Name: "debug", Usage: "debug level"},
			&cli.BoolFlag{Name: "stats", Usage: "print operation statistics"},
		},
		Commands: []*cli.Command{{
			Name:        "mkfs",
			Description: "format the image",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "descriptors", Aliases: []string{"n"}, Usage: "descriptor slots"},
			},
			Action: withFs(true, func(fsys *fs.Fs, ctx *cli.Context) error {
				return nil
			}),
		}, {
			Name:        "ls",
			Aliases:     []string{"list"},
			Description: "list the root directory",
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				return list(fsys, os.Stdout)
			}),
		}, {
			Name:        "create",
			Description: "create an empty file",
			ArgsUsage:   "NAME",
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				if err := nargs(ctx, 1); err != nil {
					return err
				}
				_, err := fsys.Create(ctx.Args().Get(0))
				return err
			}),
		}, {
			Name:        "link",
			Description: "add a name for an existing file",
			ArgsUsage:   "FROM TO",
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				if err := nargs(ctx, 2); err != nil {
					return err
				}
				return fsys.Link(ctx.Args().Get(0), ctx.Args().Get(1))
			}),
		}, {
			Name:        "unlink",
			Aliases:     []string{"rm"},
			Description: "remove a name",
			ArgsUsage:   "NAME",
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				if err := nargs(ctx, 1); err != nil {
					return err
				}
				return fsys.Unlink(ctx.Args().Get(0))
			}),
		}, {
			Name:        "truncate",
			Description: "set the size of a file",
			ArgsUsage:   "NAME SIZE",
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				if err := nargs(ctx, 2); err != nil {
					return err
				}
				sz, err := strconv.ParseUint(ctx.Args().Get(1), 0, 64)
				if err != nil {
					return fmt.Errorf("size: %w", err)
				}
				return fsys.Truncate(ctx.Args().Get(0), sz)
			}),
		}, {
			Name: "write",
			Description: "write DATA, or standard input, at OFFSET; the " +
				"file must already be large enough",
			ArgsUsage: "NAME OFFSET [DATA]",
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				if ctx.NArg() != 2 && ctx.NArg() != 3 {
					return fmt.Errorf("usage: write %s", ctx.Command.ArgsUsage)
				}
				off, err := strconv.ParseUint(ctx.Args().Get(1), 0, 64)
				if err != nil {
					return fmt.Errorf("offset: %w", err)
				}
				var data []byte
				if ctx.NArg() == 3 {
					data = []byte(ctx.Args().Get(2))
				} else if data, err = io.ReadAll(os.Stdin); err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				return write(fsys, ctx.Args().Get(0), off, data)
			}),
		}, {
			Name:        "cat",
			Description: "print the contents of a file",
			ArgsUsage:   "NAME",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "offset", Usage: "first byte to print"},
				&cli.Uint64Flag{Name: "count", Usage: "bytes to print; default to the end of the file"},
			},
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				if err := nargs(ctx, 1); err != nil {
					return err
				}
				var count *uint64
				if ctx.IsSet("count") {
					n := ctx.Uint64("count")
					count = &n
				}
				return cat(fsys, ctx.Args().Get(0), ctx.Uint64("offset"), count, os.Stdout)
			}),
		}, {
			Name:        "stat",
			Description: "print the descriptor of a name or descriptor id",
			ArgsUsage:   "NAME|ID",
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				if err := nargs(ctx, 1); err != nil {
					return err
				}
				return stat(fsys, ctx.Args().Get(0), os.Stdout)
			}),
		}, {
			Name:        "df",
			Description: "print free blocks and descriptors",
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				return df(fsys, os.Stdout)
			}),
		}, {
			Name:        "fsck",
			Description: "check the consistency of the image",
			Action: withFs(false, func(fsys *fs.Fs, ctx *cli.Context) error {
				r, err := fsys.Check()
				if err != nil {
					return err
				}
				fmt.Print(r)
				if !r.Ok() {
					return errors.New("fsck: inconsistencies found")
				}
				fmt.Println()
				return nil
			}),
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func nargs(ctx *cli.Context, n int) error {
	if ctx.NArg() != n {
		return fmt.Errorf("usage: %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	return nil
}

// config layers the global flags over LoadConfig.
func config(ctx *cli.Context) (*Config, error) {
	c, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if ctx.IsSet("image") {
		c.Image = ctx.String("image")
	}
	if ctx.IsSet("blocks") {
		c.Blocks = ctx.Uint64("blocks")
	}
	if ctx.IsSet("cache") {
		c.CacheBlocks = ctx.Uint64("cache")
	}
	if ctx.IsSet("debug") {
		c.Debug = ctx.Uint64("debug")
	}
	if ctx.IsSet("stats") {
		c.Stats = ctx.Bool("stats")
	}
	if ctx.IsSet("descriptors") {
		c.Descriptors = uint32(ctx.Uint64("descriptors"))
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return c, nil
}

func withFs(format bool, f func(*fs.Fs, *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		c, err := config(ctx)
		if err != nil {
			return err
		}
		util.Debug = c.Debug

		img, err := blkdev.NewFileDevice(c.Image, c.Blocks)
		if err != nil {
			return fmt.Errorf("opening %s: %w", c.Image, err)
		}
		var dev blkdev.Device = img
		var td *timed_disk.Disk
		if c.Stats {
			td = timed_disk.New(dev)
			dev = td
		}
		if c.CacheBlocks > 0 {
			dev = bcache.MkBcache(dev, c.CacheBlocks)
		}

		var fsys *fs.Fs
		if format {
			fsys, err = fs.Mkfs(dev, c.Descriptors)
		} else {
			fsys, err = fs.Mount(dev)
		}
		if err != nil {
			dev.Close()
			return fmt.Errorf("%s: %w", c.Image, err)
		}
		defer fsys.Shutdown()

		err = f(fsys, ctx)
		if c.Stats {
			fsys.WriteOpStats(os.Stderr)
			td.WriteStats(os.Stderr)
		}
		return err
	}
}

func list(fsys *fs.Fs, w io.Writer) error {
	ents, err := fsys.List(common.ROOTINUM)
	if err != nil {
		return err
	}
	tbl := table.New("name", "id", "kind", "size", "links")
	tbl.WithWriter(w)
	for _, de := range ents {
		d, err := fsys.Stat(de.Inum)
		if err != nil {
			return err
		}
		tbl.AddRow(de.Name, de.Inum, d.Kind, d.Size, d.Nlink)
	}
	tbl.Print()
	return nil
}

func write(fsys *fs.Fs, name string, off uint64, data []byte) error {
	fd, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer fsys.Close(fd)
	return fsys.Write(fd, off, data)
}

func cat(fsys *fs.Fs, name string, off uint64, count *uint64, w io.Writer) error {
	inum, err := fsys.Lookup(name)
	if err != nil {
		return err
	}
	d, err := fsys.Stat(inum)
	if err != nil {
		return err
	}
	var n uint64
	if count != nil {
		n = *count
	} else if off < d.Size {
		n = d.Size - off
	}
	fd, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer fsys.Close(fd)
	data, err := fsys.Read(fd, off, n)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func stat(fsys *fs.Fs, arg string, w io.Writer) error {
	var inum common.Inum
	if id, err := strconv.ParseUint(arg, 10, 32); err == nil {
		inum = common.Inum(id)
	} else if inum, err = fsys.Lookup(arg); err != nil {
		return err
	}
	d, err := fsys.Stat(inum)
	if err != nil {
		return err
	}
	tbl := table.New("id", "kind", "size", "links", "blk1", "blk2", "bmap")
	tbl.WithWriter(w)
	tbl.AddRow(inum, d.Kind, d.Size, d.Nlink, d.Blks[0], d.Blks[1], d.Bmap)
	tbl.Print()
	return nil
}

func df(fsys *fs.Fs, w io.Writer) error {
	st, err := fsys.Statfs()
	if err != nil {
		return err
	}
	tbl := table.New("", "total", "used", "free")
	tbl.WithWriter(w)
	tbl.AddRow("blocks", st.NBlocks, st.NBlocks-st.FreeBlocks, st.FreeBlocks)
	tbl.AddRow("descriptors", st.NDesc, st.NDesc-st.FreeDesc, st.FreeDesc)
	tbl.Print()
	return nil
}
