package lib

// WorkList is the immutable set of media items a batch operates on. Remove and
// Replace never mutate the receiver; they return a new list with a bumped version.
type WorkList struct {
	version int
	items   []MediaItem
}

func NewWorkList(items []MediaItem) WorkList {
	copied := make([]MediaItem, len(items))
	copy(copied, items)
	return WorkList{items: copied}
}

func (w WorkList) Version() int { return w.version }

func (w WorkList) Len() int { return len(w.items) }

// Items returns a copy of every item in scan order.
func (w WorkList) Items() []MediaItem {
	out := make([]MediaItem, len(w.items))
	copy(out, w.items)
	return out
}

func (w WorkList) Pictures() []MediaItem { return w.ofKind(Picture) }

func (w WorkList) Videos() []MediaItem { return w.ofKind(Video) }

func (w WorkList) ofKind(kind Kind) []MediaItem {
	var out []MediaItem
	for _, item := range w.items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

func (w WorkList) Contains(path string) bool {
	return w.indexOf(path) >= 0
}

func (w WorkList) indexOf(path string) int {
	for i, item := range w.items {
		if item.Path == path {
			return i
		}
	}
	return -1
}

// Remove returns a list without path.
func (w WorkList) Remove(path string) (WorkList, error) {
	idx := w.indexOf(path)
	if idx < 0 {
		return w, &InvariantError{Op: "remove", Path: path, Err: ErrNotInList}
	}
	items := make([]MediaItem, 0, len(w.items)-1)
	items = append(items, w.items[:idx]...)
	items = append(items, w.items[idx+1:]...)
	return WorkList{version: w.version + 1, items: items}, nil
}

// Replace returns a list where the item at oldPath is swapped for item, keeping
// its position. Used after a rename or a re-encode moves a file.
func (w WorkList) Replace(oldPath string, item MediaItem) (WorkList, error) {
	idx := w.indexOf(oldPath)
	if idx < 0 {
		return w, &InvariantError{Op: "replace", Path: oldPath, Err: ErrNotInList}
	}
	items := w.Items()
	items[idx] = item
	return WorkList{version: w.version + 1, items: items}, nil
}
