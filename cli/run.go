package cli

import (
	"bufio"
	"os"

	"go.uber.org/zap"

	"opusedit/editor"
	"opusedit/ogg"
	"opusedit/status"
)

// Run executes one edit pass. It owns the file handles end to end: the input
// is opened read-only, the output is created separately, and with in-place
// editing the temporary file replaces the original only once the whole pass
// succeeded, so a failure never corrupts the input.
func Run(logger *zap.Logger, opt Options) error {
	in, err := openInput(opt.PathIn)
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			logger.Warn("failed to close the input file", zap.Error(err))
		}
	}()

	reader := ogg.NewReader(in)
	edit := editor.Options{
		ToAdd:     opt.ToAdd,
		ToDelete:  opt.ToDelete,
		DeleteAll: opt.DeleteAll,
		Overwrite: opt.Overwrite,
		List:      os.Stdout,
		Logger:    logger,
	}

	pathOut := opt.PathOut
	if opt.InPlace != "" {
		pathOut = opt.PathIn + opt.InPlace
	}

	switch pathOut {
	case "":
		// Read-only mode: print the comments, write nothing.
		return editor.Process(reader, nil, edit)
	case "-":
		out := bufio.NewWriter(os.Stdout)
		if err := editor.Process(reader, ogg.NewWriter(out), edit); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return status.Wrap(status.StandardError, err, "could not flush the output")
		}
		return nil
	}

	if err := writeFile(logger, reader, pathOut, edit, opt.Overwrite); err != nil {
		return err
	}
	if opt.InPlace != "" {
		logger.Debug("replacing the input file",
			zap.String("from", pathOut), zap.String("to", opt.PathIn))
		if err := os.Rename(pathOut, opt.PathIn); err != nil {
			return status.Wrap(status.FatalError, err,
				"could not replace '%s'", opt.PathIn)
		}
	}
	return nil
}

func openInput(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	in, err := os.Open(path)
	if err != nil {
		return nil, status.Wrap(status.StandardError, err, "could not open '%s'", path)
	}
	return in, nil
}

// writeFile runs the pass into path, removing the partial file when the pass
// fails.
func writeFile(logger *zap.Logger, reader *ogg.Reader, path string, edit editor.Options, overwrite bool) (err error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	out, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return status.New(status.FatalError,
				"'%s' already exists (use -y to overwrite)", path)
		}
		return status.Wrap(status.StandardError, err, "could not create '%s'", path)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = status.Wrap(status.StandardError, closeErr,
				"could not close '%s'", path)
		}
		if err != nil {
			if rmErr := os.Remove(path); rmErr != nil {
				logger.Warn("failed to remove the partial output file",
					zap.Error(rmErr))
			} else {
				logger.Debug("removed the partial output file",
					zap.String("path", path))
			}
		}
	}()

	buffered := bufio.NewWriter(out)
	if err := editor.Process(reader, ogg.NewWriter(buffered), edit); err != nil {
		return err
	}
	if err := buffered.Flush(); err != nil {
		return status.Wrap(status.StandardError, err, "could not flush '%s'", path)
	}
	return nil
}
