package quant

// PixmapView is a non-owning view over a raw pixel buffer, matching the
// spec's external interface: (data, width, height, hstride, num_channels).
// Byte order per pixel is B, G, R at channel offsets 0, 1, 2 — the layout
// gocv.Mat already uses, which is why the CLI driver can hand a Mat's bytes
// straight in without a channel swap.
type PixmapView struct {
	Data        []byte
	Width       int
	Height      int
	Hstride     int
	NumChannels int
}

// NewPixmapView builds a PixmapView over data with a tightly packed row
// stride (hstride = width * numChannels).
func NewPixmapView(data []byte, width, height, numChannels int) PixmapView {
	return PixmapView{
		Data:        data,
		Width:       width,
		Height:      height,
		Hstride:     width * numChannels,
		NumChannels: numChannels,
	}
}

// At returns the pixel at (x, y) as a channel slice of length NumChannels.
func (pm PixmapView) At(x, y int) []byte {
	off := x*pm.NumChannels + y*pm.Hstride
	return pm.Data[off : off+pm.NumChannels]
}

// SetChannel writes a single channel value at (x, y).
func (pm PixmapView) SetChannel(x, y, channel int, v uint8) {
	pm.Data[x*pm.NumChannels+y*pm.Hstride+channel] = v
}

// NewIndexPixmap allocates an output view with one byte per pixel, each
// holding a palette index in 0..P-1.
func NewIndexPixmap(width, height int) PixmapView {
	return NewPixmapView(make([]byte, width*height), width, height, 1)
}
