// Package digest implements the chat-digest pipeline: content
// classification, window selection, and prompt assembly for the
// chat-completion call.
package digest

import (
	"encoding/base64"
	"strings"

	"google.golang.org/genai"

	"github.com/okatrych/digestobot/internal/database"
	apperrors "github.com/okatrych/digestobot/internal/errors"
)

// DispatchContent classifies a stored content string into a typed prompt
// part. Inline JPEG data URIs become image parts carrying the decoded
// payload; everything else, including undecodable image payloads, degrades
// to a verbatim text part. Classification is pure and total.
func DispatchContent(content string) *genai.Part {
	if strings.HasPrefix(content, database.InlineImagePrefix) {
		encoded := strings.TrimPrefix(content, database.InlineImagePrefix)
		if data, err := base64.StdEncoding.DecodeString(encoded); err == nil {
			return genai.NewPartFromBytes(data, "image/jpeg")
		}
	}
	return genai.NewPartFromText(content)
}

// EncodeImage renders raw JPEG bytes as the inline data URI stored in the
// message content column.
func EncodeImage(data []byte) string {
	return database.InlineImagePrefix + base64.StdEncoding.EncodeToString(data)
}

// ValidateJPEG checks the JPEG file signature: the SOI marker (FF D8) at
// the start and the EOI marker (FF D9) at the end. Payloads failing the
// check are discarded at ingestion.
func ValidateJPEG(data []byte) error {
	if len(data) < 4 {
		return apperrors.NewContentError("image payload too short for JPEG")
	}
	if data[0] != 0xFF || data[1] != 0xD8 {
		return apperrors.NewContentError("invalid JPEG header (missing SOI marker)")
	}
	if data[len(data)-2] != 0xFF || data[len(data)-1] != 0xD9 {
		return apperrors.NewContentError("invalid JPEG footer (missing EOI marker)")
	}
	return nil
}
