package media

import (
	"image"

	"golang.org/x/image/draw"
)

// resizeRGB scales an RGB buffer of sw x sh to dw x dh. The result never
// aliases src.
func resizeRGB(src []byte, sw, sh, dw, dh int) []byte {
	if sw == dw && sh == dh {
		return append([]byte(nil), src...)
	}
	in := rgbToRGBA(src, sw, sh)
	out := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), in, in.Bounds(), draw.Src, nil)
	return rgbaToRGB(out)
}

func rgbToRGBA(pix []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	n := w * h
	if len(pix) < n*3 {
		n = len(pix) / 3
	}
	for i := 0; i < n; i++ {
		img.Pix[i*4] = pix[i*3]
		img.Pix[i*4+1] = pix[i*3+1]
		img.Pix[i*4+2] = pix[i*3+2]
		img.Pix[i*4+3] = 0xff
	}
	return img
}

func rgbaToRGB(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			o := (y*w + x) * 3
			out[o] = row[x*4]
			out[o+1] = row[x*4+1]
			out[o+2] = row[x*4+2]
		}
	}
	return out
}
