package monitor

import "image/color"

var (
	colorBG       = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	colorFG       = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorDim      = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	colorHeaderBG = color.RGBA{R: 0x18, G: 0x18, B: 0x40, A: 0xff}
	colorHalted   = color.RGBA{R: 0xa0, G: 0x10, B: 0x10, A: 0xff}

	colorFree  = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	colorFrame = color.RGBA{R: 0x4a, G: 0xdf, B: 0x6a, A: 0xff}
	colorBlock = color.RGBA{R: 0xff, G: 0xdd, B: 0x66, A: 0xff}
)
