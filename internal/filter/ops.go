package filter

import (
	"math"

	"github.com/DMarby/photo-editor/internal/pixel"
)

const maxChannel = 255

var blurKernel = [3][3]int{
	{1, 1, 1},
	{1, 1, 1},
	{1, 1, 1},
}

const blurKernelSum = 9

var sobelX = [3][3]int{
	{-1, 0, 1},
	{-2, 0, 2},
	{-1, 0, 1},
}

var sobelY = [3][3]int{
	{1, 2, 1},
	{0, 0, 0},
	{-1, -2, -1},
}

// The explicit float64 conversions below keep the compiler from fusing
// multiply-adds, which would change truncated results on some architectures.

// Luminosity returns the truncated 0.30R + 0.59G + 0.11B grayscale value of a colour
func Luminosity(c pixel.RGB) uint8 {
	gray := float64(0.3*float64(c.R)) + float64(0.59*float64(c.G)) + float64(0.11*float64(c.B))
	return clamp(int(gray))
}

// InvertColor returns the inverse of a colour
func InvertColor(c pixel.RGB) pixel.RGB {
	return pixel.RGB{
		R: maxChannel - c.R,
		G: maxChannel - c.G,
		B: maxChannel - c.B,
	}
}

// SepiaTone returns the sepia tone of a colour, with each channel capped at 255
func SepiaTone(c pixel.RGB) pixel.RGB {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)

	tr := float64(0.393*r) + float64(0.769*g) + float64(0.189*b)
	tg := float64(0.349*r) + float64(0.686*g) + float64(0.168*b)
	tb := float64(0.272*r) + float64(0.534*g) + float64(0.131*b)

	return pixel.RGB{
		R: clamp(int(tr)),
		G: clamp(int(tg)),
		B: clamp(int(tb)),
	}
}

func clamp(v int) uint8 {
	if v > maxChannel {
		return maxChannel
	}

	if v < 0 {
		return 0
	}

	return uint8(v)
}

func grayscale(src, dst *pixel.Buffer) {
	for x := 0; x < src.Width(); x++ {
		for y := 0; y < src.Height(); y++ {
			gray := Luminosity(src.At(x, y))
			dst.Put(x, y, pixel.RGB{R: gray, G: gray, B: gray})
		}
	}
}

func invert(src, dst *pixel.Buffer) {
	for x := 0; x < src.Width(); x++ {
		for y := 0; y < src.Height(); y++ {
			dst.Put(x, y, InvertColor(src.At(x, y)))
		}
	}
}

func sepia(src, dst *pixel.Buffer) {
	for x := 0; x < src.Width(); x++ {
		for y := 0; y < src.Height(); y++ {
			dst.Put(x, y, SepiaTone(src.At(x, y)))
		}
	}
}

// blur only writes interior pixels. Every row of the kernel samples the same
// diagonal (x+i, y+i), so the result smears along the diagonal instead of
// averaging the full 3x3 neighbourhood.
func blur(src, dst *pixel.Buffer) {
	for x := 1; x < src.Width()-1; x++ {
		for y := 1; y < src.Height()-1; y++ {
			var r, g, b int

			for i := -1; i <= 1; i++ {
				for j := -1; j <= 1; j++ {
					c := src.At(x+i, y+i)
					weight := blurKernel[i+1][j+1]

					r += int(c.R) * weight
					g += int(c.G) * weight
					b += int(c.B) * weight
				}
			}

			dst.Put(x, y, pixel.RGB{
				R: clamp(r / blurKernelSum),
				G: clamp(g / blurKernelSum),
				B: clamp(b / blurKernelSum),
			})
		}
	}
}

// edgeDetect only writes interior pixels. The kernels are indexed [x offset][y offset].
func edgeDetect(src, dst *pixel.Buffer) {
	width, height := src.Width(), src.Height()

	gray := make([]int, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray[y*width+x] = int(Luminosity(src.At(x, y)))
		}
	}

	for x := 1; x < width-1; x++ {
		for y := 1; y < height-1; y++ {
			var gx, gy int

			for i := -1; i <= 1; i++ {
				for j := -1; j <= 1; j++ {
					v := gray[(y+j)*width+x+i]
					gx += v * sobelX[i+1][j+1]
					gy += v * sobelY[i+1][j+1]
				}
			}

			magnitude := clamp(int(math.Sqrt(float64(gx*gx + gy*gy))))
			dst.Put(x, y, pixel.RGB{R: magnitude, G: magnitude, B: magnitude})
		}
	}
}
