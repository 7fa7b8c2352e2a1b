package ocr

import (
	"image"
	"image/color"
)

// grayLevels returns the (R+G+B)/3 level of every pixel in row-major order
func grayLevels(img *image.NRGBA) []uint8 {
	b := img.Bounds()
	out := make([]uint8, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+3]
			out = append(out, uint8((int(p[0])+int(p[1])+int(p[2]))/3))
		}
	}
	return out
}

// otsu picks the level t maximizing the between-class variance
// wB*wF*(mB-mF)^2, where the background class holds levels <= t. The
// lowest t wins ties.
func otsu(hist *[256]int, total int) int {
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var sumB, best float64
	var wB int
	threshold := 0
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = t
		}
	}
	return threshold
}

// OtsuThreshold computes the global Otsu threshold of img
func OtsuThreshold(img image.Image) int {
	levels := grayLevels(toNRGBA(img))
	var hist [256]int
	for _, v := range levels {
		hist[v]++
	}
	return otsu(&hist, len(levels))
}

// binarize maps every pixel to pure black or white around the Otsu
// threshold. The larger class is treated as background and becomes white,
// so light-on-dark drawings come out dark-on-light like paper.
func binarize(img *image.NRGBA) *image.NRGBA {
	levels := grayLevels(img)
	var hist [256]int
	for _, v := range levels {
		hist[v]++
	}
	t := otsu(&hist, len(levels))

	low := 0
	for i := 0; i <= t; i++ {
		low += hist[i]
	}
	lowIsBackground := low > len(levels)-low

	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i, v := range levels {
		isLow := int(v) <= t
		c := color.NRGBA{A: 255}
		if isLow == lowIsBackground {
			c.R, c.G, c.B = 255, 255, 255
		}
		out.SetNRGBA(i%b.Dx(), i/b.Dx(), c)
	}
	return out
}
