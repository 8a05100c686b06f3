package viz

import (
	"strings"
)

// Braille cells hold 2x4 dots starting at U+2800:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
	return c
}

// Set lights the dot at sub-pixel (x, y). The canvas is Width*2 by
// Height*4 dots; out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine uses Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Plane selects the two box axes a projection keeps.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

func (p Plane) axes() (int, int) {
	switch p {
	case PlaneXZ:
		return 0, 2
	case PlaneYZ:
		return 1, 2
	}
	return 0, 1
}

func (p Plane) String() string {
	return [...]string{"xy", "xz", "yz"}[p]
}

// Project clears the canvas, outlines the box and plots every position,
// wrapped into the box, on the chosen plane.
func (c *Canvas) Project(positions [][3]float64, box [3]float64, plane Plane) {
	c.Clear()
	a, b := plane.axes()
	w, h := c.Width*2-1, c.Height*4-1
	c.DrawLine(0, 0, w, 0)
	c.DrawLine(0, h, w, h)
	c.DrawLine(0, 0, 0, h)
	c.DrawLine(w, 0, w, h)
	if box[a] <= 0 || box[b] <= 0 {
		return
	}
	for _, p := range positions {
		u := wrapUnit(p[a] / box[a])
		v := wrapUnit(p[b] / box[b])
		c.Set(int(u*float64(w)), h-int(v*float64(h)))
	}
}

func wrapUnit(x float64) float64 {
	x -= float64(int(x))
	if x < 0 {
		x++
	}
	return x
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
