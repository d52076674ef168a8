package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-sfs/config"
	"github.com/mit-pdos/go-sfs/fs"
	"github.com/mit-pdos/go-sfs/util"
)

func main() {
	app := cli.App{
		Name:  "sfs",
		Usage: "inspect and modify sfs disk images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML config file (default $SFS_CONFIG_FILE)",
			},
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "disk image to operate on",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "access the image without the block cache",
			},
			&cli.IntFlag{
				Name:  "cache-capacity",
				Usage: "block cache size in blocks",
			},
			&cli.Uint64Flag{
				Name:  "debug",
				Usage: "debug print level",
			},
			&cli.BoolFlag{
				Name:  "json-log",
				Usage: "log in JSON",
			},
		},
		Commands: []*cli.Command{{
			Name:      "mkfs",
			Usage:     "create a new image",
			ArgsUsage: " ",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "blocks", Usage: "image size in blocks"},
				&cli.Uint64Flag{Name: "inodes", Usage: "number of inodes"},
				&cli.BoolFlag{Name: "force", Usage: "replace an existing image"},
			},
			Action: mkfs,
		}, {
			Name:      "ls",
			Usage:     "list a directory",
			ArgsUsage: "[PATH]",
			Action: withFS(func(fsys *fs.FS, ctx *cli.Context) error {
				path := ctx.Args().First()
				if path == "" {
					path = "/"
				}
				names, err := fsys.Listdir(path)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return nil
			}),
		}, {
			Name:      "mkdir",
			Usage:     "create a directory",
			ArgsUsage: "PATH",
			Action: withFS(func(fsys *fs.FS, ctx *cli.Context) error {
				path, err := arg(ctx, 0, "PATH")
				if err != nil {
					return err
				}
				_, err = fsys.Mkdir(path)
				return err
			}),
		}, {
			Name:      "put",
			Usage:     "copy a local file into the image",
			ArgsUsage: "LOCAL PATH",
			Action: withFS(func(fsys *fs.FS, ctx *cli.Context) error {
				local, err := arg(ctx, 0, "LOCAL")
				if err != nil {
					return err
				}
				path, err := arg(ctx, 1, "PATH")
				if err != nil {
					return err
				}
				data, err := ioutil.ReadFile(local)
				if err != nil {
					return err
				}
				if err := fsys.Remove(path); err != nil && !errors.Is(err, fs.ErrNotFound) {
					return err
				}
				fd, err := fsys.Open(path)
				if err != nil {
					return err
				}
				defer fsys.Close(fd)
				_, err = fsys.Write(fd, data)
				return err
			}),
		}, {
			Name:      "cat",
			Usage:     "print a file",
			ArgsUsage: "PATH",
			Action: withFS(func(fsys *fs.FS, ctx *cli.Context) error {
				path, err := arg(ctx, 0, "PATH")
				if err != nil {
					return err
				}
				st, err := fsys.Stat(path)
				if err != nil {
					return err
				}
				if st.IsDir {
					return fmt.Errorf("%s: %w", path, fs.ErrIsDir)
				}
				fd, err := fsys.Open(path)
				if err != nil {
					return err
				}
				defer fsys.Close(fd)
				data, err := fsys.Read(fd, st.Size)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(data)
				return err
			}),
		}, {
			Name:      "rm",
			Usage:     "remove a file or an empty directory",
			ArgsUsage: "PATH",
			Action: withFS(func(fsys *fs.FS, ctx *cli.Context) error {
				path, err := arg(ctx, 0, "PATH")
				if err != nil {
					return err
				}
				return fsys.Remove(path)
			}),
		}, {
			Name:      "stat",
			Usage:     "describe a file",
			ArgsUsage: "PATH",
			Action: withFS(func(fsys *fs.FS, ctx *cli.Context) error {
				path, err := arg(ctx, 0, "PATH")
				if err != nil {
					return err
				}
				st, err := fsys.Stat(path)
				if err != nil {
					return err
				}
				fmt.Printf("inum %d mode %o size %d blocks %d dir %v\n",
					st.Inum, st.Mode, st.Size, st.NBlocks, st.IsDir)
				return nil
			}),
		}, {
			Name:      "df",
			Usage:     "show free blocks and inodes",
			ArgsUsage: " ",
			Action: withFS(func(fsys *fs.FS, ctx *cli.Context) error {
				g := fsys.Geometry()
				fmt.Printf("blocks %d/%d free, inodes %d/%d free, data starts at %d\n",
					g.FreeBlocks, g.NBlocks, g.FreeInodes, g.NInodes, g.DataStart)
				if s, ok := fsys.CacheStats(); ok {
					fmt.Printf("cache hits %d misses %d evictions %d writebacks %d\n",
						s.Hits, s.Misses, s.Evictions, s.Writebacks)
				}
				return nil
			}),
		}},
	}

	if err := app.Run(os.Args); err != nil {
		util.Log.Fatal(err)
	}
}

func arg(ctx *cli.Context, i int, name string) (string, error) {
	if ctx.NArg() <= i {
		return "", fmt.Errorf("missing required argument: %s", name)
	}
	return ctx.Args().Get(i), nil
}

// loadConfig layers global flags over the file and environment config.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	c, err := config.Load(ctx.String("config"))
	if err != nil {
		return nil, err
	}
	if ctx.IsSet("image") {
		c.Image = ctx.String("image")
	}
	if ctx.Bool("no-cache") {
		c.Cache = false
	}
	if ctx.IsSet("cache-capacity") {
		c.CacheCapacity = ctx.Int("cache-capacity")
	}
	if ctx.IsSet("debug") {
		c.Debug = ctx.Uint64("debug")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if ctx.Bool("json-log") {
		util.Log.SetFormatter(&logrus.JSONFormatter{})
	}
	util.SetDebug(c.Debug)
	return c, nil
}

func withFS(f func(fsys *fs.FS, ctx *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		c, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		fsys, err := fs.MountImage(c.Image, c.MountOptions()...)
		if err != nil {
			return err
		}
		err = f(fsys, ctx)
		if uerr := fsys.Unmount(); err == nil {
			err = uerr
		}
		return err
	}
}

func mkfs(ctx *cli.Context) error {
	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet("blocks") {
		c.Blocks = ctx.Uint64("blocks")
	}
	if ctx.IsSet("inodes") {
		c.Inodes = ctx.Uint64("inodes")
	}
	if _, err := os.Stat(c.Image); err == nil {
		if !ctx.Bool("force") {
			return fmt.Errorf("%s exists (use --force to replace it)", c.Image)
		}
		if err := os.Remove(c.Image); err != nil {
			return err
		}
	}
	fsys, err := fs.MountImage(c.Image, c.MountOptions()...)
	if err != nil {
		return err
	}
	g := fsys.Geometry()
	util.Log.WithFields(logrus.Fields{
		"image":  c.Image,
		"blocks": g.NBlocks,
		"inodes": g.NInodes,
	}).Info("created image")
	return fsys.Unmount()
}
