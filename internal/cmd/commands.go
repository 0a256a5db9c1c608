// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"log/slog"

	"github.com/aibor/bootforge/internal/config"
	"github.com/aibor/bootforge/internal/qemu"
	"github.com/spf13/cobra"
)

// acceleratorValue adapts [qemu.Accelerator] to a command line flag.
type acceleratorValue struct {
	accel *qemu.Accelerator
}

func (v acceleratorValue) String() string {
	return v.accel.String()
}

func (v acceleratorValue) Set(s string) error {
	return v.accel.UnmarshalText([]byte(s))
}

func (acceleratorValue) Type() string {
	return "tcg|kvm|hvf"
}

// commandLine holds the state shared by all subcommands.
type commandLine struct {
	io         IO
	configFile string
	debug      bool

	// prepare is applied to every app before it is used.
	prepare func(*app)

	app *app
}

// setup runs before any subcommand. It sets up logging and loads the
// configuration. An explicitly given config file must exist.
func (c *commandLine) setup(cmd *cobra.Command, _ []string) error {
	setupLogging(c.io.Stderr, c.debug)

	load := config.LoadOptional
	if cmd.Flags().Changed("config") {
		load = config.Load
	}

	cfg, err := load(c.configFile)
	if err != nil {
		return err
	}

	slog.Debug("Config loaded", slog.String("path", c.configFile))

	c.app = newApp(cfg, c.io)
	if c.prepare != nil {
		c.prepare(c.app)
	}

	return nil
}

// profile returns the configured profile with the given changes applied.
func (c *commandLine) profile(withDisk bool, change func(*qemu.RunProfile)) qemu.RunProfile {
	profile := c.app.cfg.QEMU.Profile
	if withDisk {
		profile.Medium = qemu.MediumCDROMDisk
	}

	if change != nil {
		change(&profile)
	}

	return profile
}

func newRootCommand(streams IO, prepare func(*app)) *cobra.Command {
	cli := &commandLine{
		io:      streams,
		prepare: prepare,
	}

	root := &cobra.Command{
		Use:               "bootforge",
		Short:             "Build boot media for a kernel and run it in QEMU",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: cli.setup,
	}

	root.SetIn(streams.Stdin)
	root.SetOut(streams.Stdout)
	root.SetErr(streams.Stderr)

	root.PersistentFlags().StringVar(&cli.configFile, "config", config.DefaultFile,
		"pipeline config file (TOML or YAML)")
	root.PersistentFlags().BoolVar(&cli.debug, "debug", false,
		"enable debug output")

	root.AddCommand(
		cli.buildCommand(),
		cli.runCommand(),
		cli.testCommand(),
		cli.kvmCommand(),
		cli.cleanCommand(),
		cli.inspectCommand(),
	)

	return root
}

func (c *commandLine) buildCommand() *cobra.Command {
	var withDisk bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the ISO image and optionally the disk image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.build(cmd.Context(), withDisk)
		},
	}

	cmd.Flags().BoolVar(&withDisk, "disk", false, "build the disk image as well")

	return cmd
}

func (c *commandLine) runCommand() *cobra.Command {
	var (
		withDisk bool
		accel    qemu.Accelerator
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build and boot the image in QEMU",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.build(cmd.Context(), withDisk); err != nil {
				return err
			}

			profile := c.profile(withDisk, func(p *qemu.RunProfile) {
				if accel != "" {
					p.Accelerator = accel
				}
			})

			return c.app.launch(cmd.Context(), profile)
		},
	}

	cmd.Flags().BoolVar(&withDisk, "disk", false, "attach the disk image")
	cmd.Flags().Var(acceleratorValue{&accel}, "accel", "QEMU accelerator")

	return cmd
}

func (c *commandLine) testCommand() *cobra.Command {
	var withDisk, gdb bool

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Build and boot the image with interrupt tracing or a paused GDB stub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.build(cmd.Context(), withDisk); err != nil {
				return err
			}

			profile := c.profile(withDisk, func(p *qemu.RunProfile) {
				p.Debug = qemu.DebugTrace
				if gdb {
					p.Debug = qemu.DebugGDB
				}
			})

			return c.app.launch(cmd.Context(), profile)
		},
	}

	cmd.Flags().BoolVar(&withDisk, "disk", false, "attach the disk image")
	cmd.Flags().BoolVar(&gdb, "gdb", false, "pause at start and wait for GDB instead of tracing")

	return cmd
}

func (c *commandLine) kvmCommand() *cobra.Command {
	var withDisk bool

	cmd := &cobra.Command{
		Use:   "kvm",
		Short: "Build and boot the image with KVM acceleration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.build(cmd.Context(), withDisk); err != nil {
				return err
			}

			profile := c.profile(withDisk, func(p *qemu.RunProfile) {
				p.Accelerator = qemu.AcceleratorKVM
			})

			return c.app.launch(cmd.Context(), profile)
		},
	}

	cmd.Flags().BoolVar(&withDisk, "disk", false, "attach the disk image")

	return cmd
}

func (c *commandLine) cleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove generated images, stamps and scratch directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.clean(cmd.Context())
		},
	}
}

func (c *commandLine) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [image]",
		Short: "Print and verify the partition table of a disk image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			image := c.app.cfg.Disk.Image
			if len(args) > 0 {
				image = args[0]
			}

			return c.app.inspect(image)
		},
	}
}
