// Package editor orchestrates a single streaming edit pass over an Ogg-Opus
// stream: the identification header is validated and forwarded, the comment
// header is decoded, edited and recoded, and every other page is copied to
// the output byte-for-byte.
package editor

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"opusedit/ogg"
	"opusedit/opus"
	"opusedit/status"
)

// Options describes the edits to apply to the comment header.
type Options struct {
	// ToDelete lists field names whose comments are removed, by exact
	// case-sensitive match on the part before the first equals sign.
	ToDelete []string
	// ToAdd lists NAME=VALUE comments appended after the deletions, in
	// the given order.
	ToAdd []string
	// DeleteAll drops every existing comment before adding.
	DeleteAll bool
	// Overwrite is consumed by the caller owning the output file; the
	// processor itself never touches the filesystem.
	Overwrite bool
	// List receives the comment listing when no writer is given.
	List io.Writer
	// Logger may be nil.
	Logger *zap.Logger
}

// Process reads the stream from reader and writes the edited stream to
// writer. With a nil writer it runs in read-only mode and prints the comments
// to opt.List instead. Any failure aborts the pass immediately, and the error
// carries the exact status code of the component that failed.
func Process(reader *ogg.Reader, writer *ogg.Writer, opt Options) error {
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	packetCount := 0
	pageCount := 0
	var serial uint32
	for {
		page, err := reader.ReadPage()
		if status.CodeOf(err) == status.EndOfStream {
			break
		}
		if err != nil {
			return err
		}
		if pageCount == 0 {
			serial = page.SerialNo()
		}
		pageCount++

		// Once both header packets went through, or when the page
		// belongs to another logical stream, the page is not ours to
		// interpret.
		if packetCount >= 2 || page.SerialNo() != serial {
			if writer != nil {
				if err := writer.WritePage(page); err != nil {
					return err
				}
			}
			continue
		}

		for {
			packet, err := reader.ReadPacket()
			if status.CodeOf(err) == status.EndOfPage {
				break
			}
			if err != nil {
				return err
			}
			packetCount++

			switch packetCount {
			case 1:
				if err := opus.ValidateIdentificationHeader(packet.Data); err != nil {
					return err
				}
				logger.Debug("forwarding the identification header",
					zap.Uint32("serial", page.SerialNo()))
				if writer != nil {
					writer.PrepareStream(page.SerialNo())
					if err := writer.WritePacket(packet); err != nil {
						return err
					}
					if err := writer.FlushPage(); err != nil {
						return err
					}
				}
			case 2:
				tags, err := opus.ParseTags(packet.Data)
				if err != nil {
					return err
				}
				editTags(&tags, opt)
				if writer == nil {
					if err := printComments(tags.Comments, opt.List); err != nil {
						return err
					}
					continue
				}
				logger.Debug("rewriting the comment header",
					zap.Int("comments", len(tags.Comments)),
					zap.Int("extra_data_bytes", len(tags.ExtraData)))
				writer.PrepareStream(page.SerialNo())
				if err := writer.WritePacket(opus.RenderTags(tags)); err != nil {
					return err
				}
				if err := writer.FlushPage(); err != nil {
					return err
				}
			default:
				return status.New(status.FatalError,
					"unexpected packet %d in the header pages", packetCount)
			}
		}
	}

	if packetCount < 2 {
		return status.New(status.FatalError,
			"the stream ended before the two header packets were read")
	}
	logger.Debug("processed the whole stream", zap.Int("pages", pageCount))
	return nil
}

// editTags applies the requested edits: delete-all, per-name deletions, then
// appends, in that order.
func editTags(tags *opus.Tags, opt Options) {
	if opt.DeleteAll {
		tags.Comments = nil
	} else {
		for _, name := range opt.ToDelete {
			opus.DeleteComments(tags, name)
		}
	}
	tags.Comments = append(tags.Comments, opt.ToAdd...)
}

func printComments(comments []string, w io.Writer) error {
	if w == nil {
		return nil
	}
	for _, comment := range comments {
		if _, err := fmt.Fprintln(w, comment); err != nil {
			return status.Wrap(status.StandardError, err, "could not print the comments")
		}
	}
	return nil
}
