package classify

import (
	"context"

	"media-classify/lib"
)

func (b *batch) processPicture(ctx context.Context, item lib.MediaItem) (string, outcome, error) {
	ts, err := b.resolver.Picture(item.Path)
	if err != nil {
		return "", 0, err
	}
	b.logger.Debug("Picture taken", "path", item.Path, "time", ts.Time, "source", ts.Source)

	destDir, err := b.outputDir(item.Path)
	if err != nil {
		return "", 0, err
	}

	nameFor := b.namer.NameFor
	if b.settings.KeepOriginal {
		if dest, ok := b.existingCopy(item.Path, destDir, ts.Time, item.Ext); ok {
			b.logger.Debug("Picture already copied", "path", item.Path, "copy", dest)
			return item.Path, outcomeUnchanged, nil
		}
		nameFor = b.nameForCopy
	}
	dest, err := nameFor(item.Path, destDir, ts.Time, item.Ext)
	if err != nil {
		return "", 0, err
	}

	if dest == item.Path {
		b.logger.Debug("Picture already named correctly", "path", item.Path)
		return item.Path, outcomeUnchanged, nil
	}
	return b.place("picture", item.Path, dest)
}
