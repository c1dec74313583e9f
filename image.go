package main

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// PlanesFromImage turns a still image into a single frame.
//
// *image.YCbCr sources with 4:4:4, 4:2:2 or 4:2:0 sampling keep their native
// planes, so a decoded JPEG is stored without any colour conversion. Every
// other image is converted to 4:4:4 YCbCr, which is exact for YCbCr and gray
// sources and rounds for RGB ones.
func PlanesFromImage(img image.Image) (Geometry, Frame, error) {
	b := img.Bounds()
	g := Geometry{Width: b.Dx(), Height: b.Dy(), Subsampling: Subsampling444}

	if src, ok := img.(*image.YCbCr); ok {
		if s, ok := nativeSubsampling(src); ok {
			g.Subsampling = s
			if g.Validate() == nil {
				f := NewFrame(g, 0)
				extractYCbCrNative(src, g, f)
				f.Samples = g.FrameSize()
				return g, f, nil
			}
			g.Subsampling = Subsampling444
		}
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, Frame{}, err
	}

	f := NewFrame(g, 0)
	yPlane, cbPlane, crPlane := f.Planes[planeY].Pix, f.Planes[planeU].Pix, f.Planes[planeV].Pix
	w, h := g.Width, g.Height

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			baseIdx := y * w
			pixRow := y * src.Stride
			for x := 0; x < w; x++ {
				p := pixRow + x*4
				idx := baseIdx + x
				yPlane[idx], cbPlane[idx], crPlane[idx] = color.RGBToYCbCr(src.Pix[p], src.Pix[p+1], src.Pix[p+2])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			baseIdx := y * w
			copy(yPlane[baseIdx:baseIdx+w], src.Pix[y*src.Stride:y*src.Stride+w])
			for x := 0; x < w; x++ {
				cbPlane[baseIdx+x] = 128
				crPlane[baseIdx+x] = 128
			}
		}
	default:
		for y := 0; y < h; y++ {
			baseIdx := y * w
			for x := 0; x < w; x++ {
				c := color.YCbCrModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.YCbCr)
				idx := baseIdx + x
				yPlane[idx], cbPlane[idx], crPlane[idx] = c.Y, c.Cb, c.Cr
			}
		}
	}
	f.Samples = g.FrameSize()
	return g, f, nil
}

func nativeSubsampling(src *image.YCbCr) (Subsampling, bool) {
	switch src.SubsampleRatio {
	case image.YCbCrSubsampleRatio444:
		return Subsampling444, true
	case image.YCbCrSubsampleRatio422:
		// Chroma columns must start on an even luma column.
		return Subsampling422, src.Rect.Min.X%2 == 0
	case image.YCbCrSubsampleRatio420:
		return Subsampling420, src.Rect.Min.X%2 == 0 && src.Rect.Min.Y%2 == 0
	}
	return 0, false
}

func extractYCbCrNative(src *image.YCbCr, g Geometry, f Frame) {
	minX, minY := src.Rect.Min.X, src.Rect.Min.Y

	yp := f.Planes[planeY]
	for y := 0; y < yp.Rows; y++ {
		off := src.YOffset(minX, minY+y)
		copy(yp.Pix[y*yp.Cols:(y+1)*yp.Cols], src.Y[off:off+yp.Cols])
	}

	rows, cols := g.PlaneSize(planeU)
	rowStep := 1
	if g.Subsampling == Subsampling420 {
		rowStep = 2
	}
	for y := 0; y < rows; y++ {
		off := src.COffset(minX, minY+y*rowStep)
		copy(f.Planes[planeU].Pix[y*cols:(y+1)*cols], src.Cb[off:off+cols])
		copy(f.Planes[planeV].Pix[y*cols:(y+1)*cols], src.Cr[off:off+cols])
	}
}

// ImageFromFrame rebuilds an image.YCbCr with the stream's chroma layout.
func ImageFromFrame(g Geometry, f Frame) (*image.YCbCr, error) {
	if err := g.checkFrame(f); err != nil {
		return nil, err
	}
	ratio := image.YCbCrSubsampleRatio444
	switch g.Subsampling {
	case Subsampling422:
		ratio = image.YCbCrSubsampleRatio422
	case Subsampling420:
		ratio = image.YCbCrSubsampleRatio420
	}
	img := image.NewYCbCr(image.Rect(0, 0, g.Width, g.Height), ratio)

	yp := f.Planes[planeY]
	for y := 0; y < yp.Rows; y++ {
		copy(img.Y[y*img.YStride:y*img.YStride+yp.Cols], yp.Pix[y*yp.Cols:(y+1)*yp.Cols])
	}
	rows, cols := g.PlaneSize(planeU)
	for y := 0; y < rows; y++ {
		copy(img.Cb[y*img.CStride:y*img.CStride+cols], f.Planes[planeU].Pix[y*cols:(y+1)*cols])
		copy(img.Cr[y*img.CStride:y*img.CStride+cols], f.Planes[planeV].Pix[y*cols:(y+1)*cols])
	}
	return img, nil
}

// singleFrame returns the only frame of a still-image stream.
func singleFrame(frames []Frame) (Frame, error) {
	if len(frames) != 1 {
		return Frame{}, errors.Wrapf(ErrUnsupportedFormat, "still-image output needs exactly one frame, stream has %d", len(frames))
	}
	return frames[0], nil
}
