package videogen

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// NormalizeBase64 strips a data URI prefix if present and verifies the
// remainder is valid base64. Generation endpoints want the raw payload,
// while stored scene images may carry the "data:image/...;base64,"
// prefix depending on how they were saved.
func NormalizeBase64(data string) (string, error) {
	data = strings.TrimSpace(data)
	if idx := strings.Index(data, "base64,"); idx >= 0 && strings.HasPrefix(data, "data:") {
		data = data[idx+len("base64,"):]
	}
	if data == "" {
		return "", fmt.Errorf("empty image data")
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return "", fmt.Errorf("invalid base64 image data: %w", err)
	}
	return data, nil
}

// VideoDataURI encodes raw video bytes as a data URI suitable for
// storing on a project.
func VideoDataURI(video []byte) string {
	return "data:video/mp4;base64," + base64.StdEncoding.EncodeToString(video)
}
