package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// pngOf encodes a solid image of the given size as PNG
func pngOf(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func decodedBounds(data []byte) image.Rectangle {
	img, _, err := image.Decode(bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	return img.Bounds()
}

var _ = Describe("imagePrep", func() {
	When("the image is larger than the bound", func() {
		It("should fit it inside the bound keeping the aspect ratio", func() {
			out, err := defaultPrep.prepare(pngOf(3000, 1000), "image/png")
			Expect(err).NotTo(HaveOccurred())
			b := decodedBounds(out)
			Expect(b.Dx()).To(Equal(1500))
			Expect(b.Dy()).To(Equal(500))
		})
	})

	When("the image is within the bound", func() {
		It("should keep its size", func() {
			out, err := defaultPrep.prepare(pngOf(40, 20), "image/png")
			Expect(err).NotTo(HaveOccurred())
			b := decodedBounds(out)
			Expect(b.Dx()).To(Equal(40))
			Expect(b.Dy()).To(Equal(20))
		})
	})

	When("enhancement is enabled", func() {
		It("should still produce a PNG", func() {
			prep := imagePrep{maxDimension: 100, enhance: true}
			out, err := prep.prepare(pngOf(200, 50), "IMAGE/PNG ")
			Expect(err).NotTo(HaveOccurred())
			Expect(decodedBounds(out).Dx()).To(Equal(100))
		})
	})

	When("the data is not an image", func() {
		It("returns the error", func() {
			_, err := defaultPrep.prepare([]byte("not an image"), "image/jpeg")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported image format"))
		})
	})
})

var _ = Describe("Rotate", func() {
	var data []byte

	BeforeEach(func() {
		data = pngOf(20, 10)
	})

	It("should swap the sides for a quarter turn", func() {
		out, contentType, err := Rotate(data, "image/png", 90)
		Expect(err).NotTo(HaveOccurred())
		Expect(contentType).To(Equal("image/png"))
		b := decodedBounds(out)
		Expect(b.Dx()).To(Equal(10))
		Expect(b.Dy()).To(Equal(20))
	})

	It("should treat negative angles as the opposite turn", func() {
		out, _, err := Rotate(data, "image/png", -90)
		Expect(err).NotTo(HaveOccurred())
		Expect(decodedBounds(out).Dx()).To(Equal(10))
	})

	It("should keep the sides for a half turn", func() {
		out, _, err := Rotate(data, "image/png", 180)
		Expect(err).NotTo(HaveOccurred())
		Expect(decodedBounds(out).Dx()).To(Equal(20))
	})

	It("should return the input untouched for a full turn", func() {
		out, contentType, err := Rotate(data, "image/jpeg", 360)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
		Expect(contentType).To(Equal("image/jpeg"))
	})
})

var _ = Describe("HEIC detection", func() {
	It("should detect the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("should reject short data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})

	It("should reject other brands", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypisom0000")...)
		Expect(isHEICFormat(data)).To(BeFalse())
	})

	It("should detect HEIC MIME types", func() {
		Expect(isHEICMimeType(normalizeMimeType("Image/HEIC"))).To(BeTrue())
		Expect(isHEICMimeType("image/heif")).To(BeTrue())
		Expect(isHEICMimeType("image/png")).To(BeFalse())
	})

	It("should default an empty MIME type to JPEG", func() {
		Expect(normalizeMimeType("  ")).To(Equal("image/jpeg"))
	})
})
