package services

import (
	"sms-ingress-server/internal/models"
	"sms-ingress-server/pkg/gsm"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxSegments is the segment budget used when none is configured
const DefaultMaxSegments = 6

// Per-segment character limits. Multi-part messages lose room to the
// concatenation header carried in every part.
const (
	gsmSingleLimit  = 160
	gsmMultiLimit   = 153
	ucs2SingleLimit = 70
	ucs2MultiLimit  = 67
)

// SegmentationResult describes how a message will be split by the carrier
type SegmentationResult struct {
	// Text is the NFC form that was measured and must be what gets sent
	Text     string
	Encoding models.SmsEncoding
	Segments int
	// Length is the effective length: septets for GSM, UTF-16 units for Unicode
	Length int
}

// Segmenter validates message text against the carrier segment budget
type Segmenter struct {
	maxSegments int
}

// NewSegmenter creates a segmenter that rejects messages longer than maxSegments parts
func NewSegmenter(maxSegments int) *Segmenter {
	if maxSegments <= 0 {
		maxSegments = DefaultMaxSegments
	}
	return &Segmenter{maxSegments: maxSegments}
}

// MaxSegments returns the configured segment budget
func (s *Segmenter) MaxSegments() int {
	return s.maxSegments
}

// SegmentLimits returns the single-part and per-part limits for an encoding
func SegmentLimits(enc models.SmsEncoding) (single, multi int) {
	if enc == models.EncodingGSM {
		return gsmSingleLimit, gsmMultiLimit
	}
	return ucs2SingleLimit, ucs2MultiLimit
}

// SegmentCount returns how many parts a message of length units needs
func SegmentCount(enc models.SmsEncoding, length int) int {
	single, multi := SegmentLimits(enc)
	if length <= single {
		return 1
	}
	return (length + multi - 1) / multi
}

// Evaluate picks the encoding for text and counts its segments. An empty hint
// selects GSM when every character fits the GSM-7 tables and Unicode otherwise.
func (s *Segmenter) Evaluate(text string, hint models.SmsEncoding) (*SegmentationResult, error) {
	if hint != "" && !hint.Valid() {
		return nil, ErrUnknownEncoding
	}

	text = norm.NFC.String(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	septets, isGSM := gsm.SeptetLength(text)

	result := &SegmentationResult{Text: text}
	switch {
	case hint == models.EncodingGSM && !isGSM:
		return nil, ErrEncodingMismatch
	case hint == models.EncodingUnicode, !isGSM:
		result.Encoding = models.EncodingUnicode
		result.Length = gsm.UCS2Length(text)
	default:
		result.Encoding = models.EncodingGSM
		result.Length = septets
	}

	result.Segments = SegmentCount(result.Encoding, result.Length)
	if result.Segments > s.maxSegments {
		_, multi := SegmentLimits(result.Encoding)
		return nil, &TooManySegmentsError{
			Encoding:      result.Encoding,
			Segments:      result.Segments,
			MaxSegments:   s.maxSegments,
			MaxCharacters: s.maxSegments * multi,
		}
	}

	return result, nil
}
