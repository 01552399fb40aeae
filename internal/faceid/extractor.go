package faceid

import (
	"fmt"
	"os"

	goface "github.com/Kagami/go-face"
)

// Extractor converts an uploaded image into a signature. Implementations
// must be deterministic for identical input bytes and must fail rather than
// guess when the image does not contain exactly one face.
type Extractor interface {
	Extract(image []byte) (Signature, error)
}

// DlibExtractor extracts signatures with dlib's face detector and 128-D
// descriptor network. It is safe for concurrent use.
type DlibExtractor struct {
	rec *goface.Recognizer
}

// NewDlibExtractor loads the dlib models from modelsDir.
func NewDlibExtractor(modelsDir string) (*DlibExtractor, error) {
	rec, err := goface.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: init recognizer: %v", ErrProcessing, err)
	}
	return &DlibExtractor{rec: rec}, nil
}

// Close releases the dlib recognizer.
func (e *DlibExtractor) Close() {
	if e.rec != nil {
		e.rec.Close()
	}
}

// Extract decodes a JPEG image and returns the signature of the single face
// in it. The image is staged in a temp file for dlib; the file is removed on
// every exit path.
func (e *DlibExtractor) Extract(image []byte) (Signature, error) {
	tmp, err := os.CreateTemp("", "faceid-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("%w: temp file: %v", ErrProcessing, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: write temp file: %v", ErrProcessing, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: close temp file: %v", ErrProcessing, err)
	}

	faces, err := e.rec.RecognizeFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	switch len(faces) {
	case 0:
		return nil, ErrNoFaceDetected
	case 1:
	default:
		return nil, ErrAmbiguousInput
	}

	sig := make(Signature, Dim)
	for i, v := range faces[0].Descriptor {
		sig[i] = float64(v)
	}
	return sig, nil
}
