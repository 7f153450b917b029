package recognize

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ocrPrompt asks the vision model for a verbatim transcription. Field
// interpretation happens on-device in the extract package, so the model
// is told not to summarize, translate or reorder anything.
const ocrPrompt = `Transcribe every piece of text visible in this document image, exactly as printed, one line of the document per line of output. Keep the original language, numbers, dates and punctuation. Do not translate, summarize, interpret or reorder anything. Do not add commentary, labels or markdown. Output the raw text only.`

// pdfToPNG renders the first page of a PDF. Receipts and warranty cards
// are single-page in practice.
func pdfToPNG(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeToPNG re-encodes any supported image format as PNG. HEIC (the
// iPhone default) is handled by a dedicated decoder since the standard
// image package does not know it.
func decodeToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	if isHEIC(imageData, mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC sniffs the ftyp box brands HEIC containers use, and also trusts
// an explicit HEIC MIME type.
func isHEIC(data []byte, mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if strings.Contains(mt, "heic") || strings.Contains(mt, "heif") {
		return true
	}
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		switch string(data[8:12]) {
		case "heic", "heif", "mif1", "msf1":
			return true
		}
	}
	return false
}

// preparePNG converts whatever the capture layer hands over (JPEG, PNG,
// GIF, HEIC or PDF) into PNG bytes for the vision backends.
func preparePNG(imageData []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	switch {
	case mimeType == "application/pdf":
		return pdfToPNG(imageData)
	case mimeType == "image/png" && !isHEIC(imageData, mimeType):
		return imageData, nil
	default:
		return decodeToPNG(imageData, mimeType)
	}
}
