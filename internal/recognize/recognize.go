package recognize

// Recognizer turns a captured photo or PDF into raw text. Interpretation
// of that text is the extraction engine's job, not the recognizer's.
type Recognizer interface {
	// RecognizeText transcribes every piece of text visible in the
	// document image.
	RecognizeText(imageData []byte, contentType string) (string, error)

	// Close releases recognizer resources.
	Close() error
}
