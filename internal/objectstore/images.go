package objectstore

import (
	"context"

	"go.uber.org/zap"
)

// UploadImage writes an image blob under the image-store key scheme
// and returns the final key. The filename is used only for
// extension-first content-type detection; the key itself is derived from
// ontology and sourceID, not filename, so re-uploads under the same source
// overwrite rather than accumulate.
func (s *Store) UploadImage(ctx context.Context, ontology, sourceID, filename string, data []byte) (key string, mime string, err error) {
	detected, ok := DetectContentType(filename, data)
	if !ok {
		s.logWarnUnrecognizedSignature(filename)
	}
	ext := ExtensionFor(detected)
	key = ImageKey(ontology, sourceID, ext)
	if err := s.put(ctx, key, data, detected); err != nil {
		return "", "", err
	}
	return key, detected, nil
}

func (s *Store) logWarnUnrecognizedSignature(filename string) {
	s.logger.Warn("unrecognized image signature, defaulting to image/jpeg", zap.String("filename", filename))
}
