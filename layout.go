package phantom

// Grid geometry of the editor canvas in pixels.
const (
	GridMargin    = 16
	GridGap       = 8
	GridCellWidth = 96
	GridRowHeight = 40
)

// Page size of the exported report, 12 columns wide.
const (
	PageWidth  = 2*GridMargin + 12*GridCellWidth + 11*GridGap
	PageHeight = 720
)

// GridToPixels converts grid layout to absolute pixel geometry.
// Negative offsets are clamped to 0 and sizes to 1.
func GridToPixels(l Layout) Rect {
	x, y, w, h := l.X, l.Y, l.W, l.H
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return Rect{
		X:      GridMargin + x*(GridCellWidth+GridGap),
		Y:      GridMargin + y*(GridRowHeight+GridGap),
		Width:  w*GridCellWidth + (w-1)*GridGap,
		Height: h*GridRowHeight + (h-1)*GridGap,
	}
}

// pageHeightFor returns page height fitting all items.
func pageHeightFor(items []*VisualItem) int {
	height := PageHeight
	for _, item := range items {
		if item == nil {
			continue
		}
		r := GridToPixels(item.Layout)
		if bottom := r.Y + r.Height + GridMargin; bottom > height {
			height = bottom
		}
	}
	return height
}
