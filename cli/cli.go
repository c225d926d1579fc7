// Package cli owns everything around the edit pass: argument parsing, file
// handling, the in-place replacement policy, and comment list I/O. The core
// packages never touch the filesystem; this one never touches the bytes of
// the stream.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"opusedit/status"
)

// DefaultInPlaceSuffix is appended to the input path to name the temporary
// file used by --in-place before it replaces the original.
const DefaultInPlaceSuffix = ".utmp"

// Options is the resolved configuration of one invocation.
type Options struct {
	PathIn  string
	PathOut string
	// InPlace holds the temporary-file suffix when in-place editing is
	// enabled, empty otherwise.
	InPlace   string
	Overwrite bool
	ToAdd     []string
	ToDelete  []string
	DeleteAll bool
}

type flagValues struct {
	output    string
	inPlace   string
	overwrite bool
	toDelete  []string
	toAdd     []string
	toSet     []string
	deleteAll bool
	setAll    bool
}

// NewCommand builds the opusedit root command.
func NewCommand(logger *zap.Logger) *cobra.Command {
	var f flagValues
	cmd := &cobra.Command{
		Use:   "opusedit [OPTIONS] INPUT",
		Short: "Edit the comments of an Ogg-Opus file without re-encoding the audio",
		Long: `opusedit reads an Ogg-Opus file, rewrites its comment header, and copies
every audio page through untouched.

Without --output or --in-place, the comments are printed to standard output
and nothing is written.

Examples:
  # List the comments.
  opusedit input.opus

  # Set the title, replacing any existing one, into a new file.
  opusedit -s TITLE=Foo -o output.opus input.opus

  # Remove every comment in place.
  opusedit -D -i input.opus

  # Replace the whole comment list from standard input.
  opusedit -S -o output.opus input.opus < comments.txt`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return status.New(status.BadArguments, "exactly one input file is required")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			return Run(logger, opt)
		},
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return status.Wrap(status.BadArguments, err, "bad arguments")
	})

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "write the edited stream to this file")
	flags.StringVarP(&f.inPlace, "in-place", "i", "", "edit the input file in place, using this temporary suffix")
	flags.Lookup("in-place").NoOptDefVal = DefaultInPlaceSuffix
	flags.BoolVarP(&f.overwrite, "overwrite", "y", false, "overwrite the output file if it already exists")
	flags.StringArrayVarP(&f.toDelete, "delete", "d", nil, "delete the comments with this field name")
	flags.StringArrayVarP(&f.toAdd, "add", "a", nil, "add a NAME=VALUE comment")
	flags.StringArrayVarP(&f.toSet, "set", "s", nil, "replace the comments with this field name by NAME=VALUE")
	flags.BoolVarP(&f.deleteAll, "delete-all", "D", false, "delete all the existing comments")
	flags.BoolVarP(&f.setAll, "set-all", "S", false, "replace the whole comment list with the one read from standard input")
	return cmd
}

// resolve validates the flag values and turns them into Options. Every
// rejection is a BadArguments status.
func (f *flagValues) resolve(cmd *cobra.Command, pathIn string) (Options, error) {
	opt := Options{
		PathIn:    pathIn,
		PathOut:   f.output,
		InPlace:   f.inPlace,
		Overwrite: f.overwrite,
		DeleteAll: f.deleteAll,
	}

	if opt.PathOut != "" && opt.InPlace != "" {
		return Options{}, status.New(status.BadArguments,
			"--output and --in-place are mutually exclusive")
	}
	if opt.InPlace != "" && opt.PathIn == "-" {
		return Options{}, status.New(status.BadArguments,
			"cannot edit in place when reading from standard input")
	}

	for _, comment := range f.toAdd {
		if !strings.Contains(comment, "=") {
			return Options{}, status.New(status.BadArguments,
				"the comment to add %q does not contain an equals sign", comment)
		}
		opt.ToAdd = append(opt.ToAdd, comment)
	}
	opt.ToDelete = append(opt.ToDelete, f.toDelete...)
	for _, comment := range f.toSet {
		name, _, found := strings.Cut(comment, "=")
		if !found {
			return Options{}, status.New(status.BadArguments,
				"the comment to set %q does not contain an equals sign", comment)
		}
		opt.ToDelete = append(opt.ToDelete, name)
		opt.ToAdd = append(opt.ToAdd, comment)
	}

	if f.setAll {
		if opt.PathIn == "-" {
			return Options{}, status.New(status.BadArguments,
				"--set-all cannot read from standard input when the input file is - too")
		}
		comments, err := ReadComments(cmd.InOrStdin())
		if err != nil {
			return Options{}, err
		}
		opt.DeleteAll = true
		opt.ToAdd = append(opt.ToAdd, comments...)
	}

	editing := opt.DeleteAll || len(opt.ToAdd) > 0 || len(opt.ToDelete) > 0
	if editing && opt.PathOut == "" && opt.InPlace == "" {
		return Options{}, status.New(status.BadArguments,
			"--output or --in-place is required to save the edited comments")
	}
	return opt, nil
}
