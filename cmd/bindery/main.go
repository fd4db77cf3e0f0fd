// Command bindery converts between packaged book containers and the
// in-memory content tree, and splits collated single-file books.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"github.com/coursewright/bindery/core/adapter"
	"github.com/coursewright/bindery/core/epubio"
	"github.com/coursewright/bindery/core/model"
	"github.com/coursewright/bindery/internal/logging"
)

const version = "0.1.0"

// stdout is swapped out by tests.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for bindery.
var CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging"`
	JSONLog bool `name:"json-log" help:"Emit logs as JSON"`

	Inspect InspectCmd `cmd:"" help:"Print a container's content tree as JSON"`
	Split   SplitCmd   `cmd:"" help:"Split a collated single-file book and print its tree"`
	Pack    PackCmd    `cmd:"" help:"Re-pack an extracted container into an archive"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// InspectCmd loads a container and prints its content tree.
type InspectCmd struct {
	Path string `arg:"" help:"Container path (directory, .epub, .tar.gz, or .tar.xz)" type:"path"`
}

func (c *InspectCmd) Run() error {
	logger := logging.GetLogger()
	pkgs, err := epubio.Read(afero.NewOsFs(), c.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to read container: %w", err)
	}
	for _, pkg := range pkgs {
		root, err := adapter.AdaptPackage(pkg, logger)
		if err != nil {
			return fmt.Errorf("failed to adapt %s: %w", pkg.Name, err)
		}
		if err := printTree(root); err != nil {
			return err
		}
	}
	return nil
}

// SplitCmd splits a collated single-file book and prints the resulting tree.
type SplitCmd struct {
	Path string `arg:"" help:"Path to the collated XHTML file" type:"existingfile"`
}

func (c *SplitCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.Path, err)
	}
	binder, err := adapter.AdaptSingleHTML(data, logging.GetLogger())
	if err != nil {
		return fmt.Errorf("failed to split: %w", err)
	}
	return printTree(binder)
}

// PackCmd re-packs a container into another on-disk form.
type PackCmd struct {
	In  string `arg:"" help:"Source container (directory or archive)" type:"path"`
	Out string `arg:"" help:"Destination path; extension selects the format"`
}

func (c *PackCmd) Run() error {
	logger := logging.GetLogger()
	fsys := afero.NewOsFs()
	pkgs, err := epubio.Read(fsys, c.In, logger)
	if err != nil {
		return fmt.Errorf("failed to read container: %w", err)
	}
	if err := epubio.Write(fsys, c.Out, pkgs, logger); err != nil {
		return fmt.Errorf("failed to write container: %w", err)
	}
	logger.Info("container packed", "in", c.In, "out", c.Out, "packages", len(pkgs))
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "bindery v%s\n", version)
	fmt.Fprintln(stdout, "Packaged-book container and content tree toolkit")
	return nil
}

func printTree(node model.Node) error {
	data, err := json.MarshalIndent(model.ModelToTree(node), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bindery"),
		kong.Description("Convert packaged book containers to and from content trees"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := logging.LevelInfo
	if CLI.Verbose {
		level = logging.LevelDebug
	}
	format := logging.FormatText
	if CLI.JSONLog {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
